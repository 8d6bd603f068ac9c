// Package content normalizes Gmail message payloads into plain text.
// Message bodies arrive as URL-safe base64 inside a tree of MIME parts;
// the normalizer prefers text/plain parts and falls back to HTML-stripped
// content or the message snippet.
package content

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// DecodeBody decodes Gmail's URL-safe base64 body data into UTF-8 text.
// Returns "" when the data cannot be decoded.
func DecodeBody(data string) string {
	if data == "" {
		return ""
	}
	std := strings.NewReplacer("-", "+", "_", "/").Replace(data)
	if pad := len(std) % 4; pad != 0 {
		std += strings.Repeat("=", 4-pad)
	}
	raw, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return ""
	}
	return string(raw)
}

var (
	breakTags  = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>`)
	cellTags   = regexp.MustCompile(`(?i)</td>|</th>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	numEntity  = regexp.MustCompile(`&#(\d+);`)
	whitespace = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

// StripHTML reduces an HTML body to readable text: block-level closing tags
// and <br> become newlines, remaining tags are removed, common entities are
// decoded and whitespace is collapsed.
func StripHTML(html string) string {
	text := breakTags.ReplaceAllString(html, "\n")
	text = cellTags.ReplaceAllString(text, " ")
	text = anyTag.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = numEntity.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(numEntity.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		return string(rune(n))
	})
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// findBodyInParts walks a MIME part tree collecting the first text/plain and
// text/html bodies it can decode. Untyped content counts as plain text only
// when nothing better was found.
func findBodyInParts(parts []*gmail.MessagePart) (plain, html string) {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if len(part.Parts) > 0 {
			nestedPlain, nestedHTML := findBodyInParts(part.Parts)
			if plain == "" {
				plain = nestedPlain
			}
			if html == "" {
				html = nestedHTML
			}
		}
		if part.Body == nil || part.Body.Data == "" {
			continue
		}
		decoded := DecodeBody(part.Body.Data)
		if decoded == "" {
			continue
		}
		switch part.MimeType {
		case "text/plain":
			if plain == "" {
				plain = decoded
			}
		case "text/html":
			if html == "" {
				html = decoded
			}
		default:
			if plain == "" && html == "" {
				plain = decoded
			}
		}
	}
	return plain, html
}

// BodyText extracts the best plain-text rendering of a message body.
// Preference order: direct payload body, text/plain part, HTML-stripped
// text/html part, snippet.
func BodyText(msg *gmail.Message) string {
	if msg == nil {
		return ""
	}

	var body string
	if msg.Payload != nil {
		if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
			body = DecodeBody(msg.Payload.Body.Data)
			if strings.Contains(msg.Payload.MimeType, "html") {
				body = StripHTML(body)
			}
		} else if len(msg.Payload.Parts) > 0 {
			plain, html := findBodyInParts(msg.Payload.Parts)
			if plain != "" {
				body = plain
			} else if html != "" {
				body = StripHTML(html)
			}
		}
	}

	if body == "" {
		body = msg.Snippet
	}
	return body
}

// Header returns the value of the named payload header, case-insensitively.
func Header(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
