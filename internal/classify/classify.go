// Package classify decides whether a mailbox message describes a real money
// movement and, when it does, extracts a FinancialEvent from it. Detection is
// deterministic: ordered phrase lists tuned for Chilean banking mail, with
// exclusion rules running before any acceptance rule.
package classify

import (
	"net/mail"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"google.golang.org/api/gmail/v1"

	"github.com/dvloznov/mail-ledger/internal/amount"
	"github.com/dvloznov/mail-ledger/internal/content"
	"github.com/dvloznov/mail-ledger/internal/domain"
)

// Rejection reasons reported back for diagnostics.
const (
	ReasonMissingHeaders   = "missing headers"
	ReasonExcessiveEmojis  = "excessive emojis in subject"
	ReasonMarketingContent = "marketing content"
	ReasonCreditOffer      = "credit offer"
	ReasonMarketingSubject = "marketing subject shape"
	ReasonNotTransaction   = "no transaction signal"
	ReasonNoAmount         = "no amount found"
)

const maxDescriptionLen = 50

// Classifier extracts financial events from raw messages. Now is injectable
// for tests and defaults to time.Now.
type Classifier struct {
	Now func() time.Time
}

func New() *Classifier {
	return &Classifier{Now: time.Now}
}

// Classify inspects one fetched message. It returns the extracted event, or
// nil together with the reason the message was rejected.
func (c *Classifier) Classify(msg *gmail.Message) (*domain.FinancialEvent, string) {
	subject := content.Header(msg, "Subject")
	from := content.Header(msg, "From")
	if subject == "" || from == "" {
		return nil, ReasonMissingHeaders
	}

	body := content.BodyText(msg)
	combined := strings.ToLower(subject + " " + body)

	if reason := rejectionReason(subject, combined); reason != "" {
		return nil, reason
	}
	if !isTransaction(combined) {
		return nil, ReasonNotTransaction
	}

	value, ok := amount.Extract(subject + "\n" + body)
	if !ok {
		return nil, ReasonNoAmount
	}

	direction := DetectDirection(combined)
	date := c.messageDate(msg)

	return &domain.FinancialEvent{
		ID:          msg.Id,
		Date:        date,
		DisplayDate: domain.FormatDisplayDate(date),
		Amount:      value,
		Direction:   direction,
		Category:    DetectCategory(combined, direction),
		Source:      SourceName(from),
		Description: Describe(subject),
	}, ""
}

// rejectionReason runs the exclusion rules in order. Exclusions always win
// over acceptance signals, so a credit offer phrased like a purchase
// notification still gets dropped.
func rejectionReason(subject, combined string) string {
	if len(emojiPattern.FindAllString(subject, -1)) >= 2 {
		return ReasonExcessiveEmojis
	}
	for _, phrase := range marketingExclusionPhrases {
		if strings.Contains(combined, phrase) {
			return ReasonMarketingContent
		}
	}
	for _, phrase := range creditOfferExclusionPhrases {
		if strings.Contains(combined, phrase) {
			return ReasonCreditOffer
		}
	}
	for _, pattern := range creditOfferExclusionPatterns {
		if pattern.MatchString(combined) {
			return ReasonCreditOffer
		}
	}
	trimmed := strings.TrimSpace(subject)
	for _, pattern := range marketingSubjectPatterns {
		if pattern.MatchString(trimmed) {
			return ReasonMarketingSubject
		}
	}
	return ""
}

// isTransaction accepts messages that carry a strong completion phrase, or
// that combine financial vocabulary with an action hint.
func isTransaction(combined string) bool {
	for _, phrase := range requiredTransactionPhrases {
		if strings.Contains(combined, phrase) {
			return true
		}
	}

	hasKeyword := false
	for _, kw := range append(append([]string{}, incomeKeywords...), expenseKeywords...) {
		if strings.Contains(combined, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}
	for _, hint := range transactionActionHints {
		if strings.Contains(combined, hint) {
			return true
		}
	}
	return false
}

// DetectDirection decides income versus expense. Definite expense phrases win
// first because bank mail about outgoing transfers often reuses income
// vocabulary ("abono a terceros"). Ties on the keyword score fall to expense,
// the common case for bank notifications.
func DetectDirection(combined string) domain.EventDirection {
	for _, phrase := range definiteExpensePhrases {
		if strings.Contains(combined, phrase) {
			return domain.DirectionExpense
		}
	}
	for _, phrase := range definiteIncomePhrases {
		if strings.Contains(combined, phrase) {
			return domain.DirectionIncome
		}
	}

	incomeScore, expenseScore := 0, 0
	for _, kw := range incomeKeywords {
		if strings.Contains(combined, kw) {
			incomeScore++
		}
	}
	for _, kw := range expenseKeywords {
		if strings.Contains(combined, kw) {
			expenseScore++
		}
	}
	if incomeScore > expenseScore {
		return domain.DirectionIncome
	}
	return domain.DirectionExpense
}

var categoryKeywords = []struct {
	category domain.EventCategory
	keywords []string
}{
	{domain.CategoryCredit, []string{
		"crédito", "credito", "cuota", "préstamo", "prestamo",
		"hipotecario", "dividendo",
	}},
	{domain.CategoryTransfer, []string{
		"transferencia", "transferido", "tef", "giro",
		"te han transferido",
	}},
	{domain.CategoryService, []string{
		"servicio", "factura", "boleta", "luz", "agua", "gas",
		"internet", "teléfono", "telefono", "plan", "suscripción",
		"suscripcion", "mensualidad",
	}},
}

// DetectCategory picks the event category by ordered keyword containment.
// Income events always land in the income category; anything unmatched
// defaults to a card movement.
func DetectCategory(combined string, direction domain.EventDirection) domain.EventCategory {
	if direction == domain.DirectionIncome {
		return domain.CategoryIncome
	}
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(combined, kw) {
				return group.category
			}
		}
	}
	return domain.CategoryCard
}

var replyPrefixes = []string{"re:", "fwd:", "fw:", "rv:", "rv :"}

// Describe turns the subject into a short event description: reply and
// forward prefixes and bracketed tags are stripped, and the result is
// truncated to a display-friendly length.
func Describe(subject string) string {
	desc := strings.TrimSpace(subject)
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(desc)
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(lower, prefix) {
				desc = strings.TrimSpace(desc[len(prefix):])
				changed = true
				break
			}
		}
		if strings.HasPrefix(desc, "[") {
			if end := strings.Index(desc, "]"); end >= 0 {
				desc = strings.TrimSpace(desc[end+1:])
				changed = true
			}
		}
	}
	if desc == "" {
		return "Movimiento bancario"
	}
	if runes := []rune(desc); len(runes) > maxDescriptionLen {
		desc = strings.TrimSpace(string(runes[:maxDescriptionLen])) + "..."
	}
	return desc
}

// SourceName extracts a human-readable sender from a From header. The display
// name wins when present; otherwise the local part of the address is used.
func SourceName(from string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		name := strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		if name != "" {
			return name
		}
	}
	addr := strings.Trim(from, "<> ")
	if at := strings.Index(addr, "@"); at > 0 {
		return addr[:at]
	}
	return addr
}

// messageDate resolves the event date: the server-side internal timestamp
// when present, the Date header otherwise, and the current time as a last
// resort.
func (c *Classifier) messageDate(msg *gmail.Message) civil.Date {
	if msg.InternalDate > 0 {
		return civil.DateOf(time.UnixMilli(msg.InternalDate).UTC())
	}
	if raw := content.Header(msg, "Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			return civil.DateOf(t)
		}
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return civil.DateOf(now())
}
