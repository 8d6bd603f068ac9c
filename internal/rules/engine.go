package rules

import "strings"

// Verdict is the outcome of evaluating one message against the rule lists.
// Reason names the rule that decided it, for sync diagnostics.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Engine evaluates fetched messages against a settings snapshot. The mailbox
// query already narrows the search server-side; the engine re-checks locally
// because exclusion terms are advisory in the query but binding here, and
// detail payloads can reveal matches the query could not see.
type Engine struct {
	settings ScanSettings
}

func NewEngine(s ScanSettings) *Engine {
	return &Engine{settings: s}
}

// Evaluate gates one message. The sender must match an allowed-sender
// substring or the message is denied outright; keyword rules only widen the
// mailbox search, they never admit a sender locally. Exclusion rules deny
// even when the sender is allowed.
func (e *Engine) Evaluate(sender, subject, body string) Verdict {
	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)
	text := subject + " " + strings.ToLower(body)

	matched := e.matchAllowedSender(sender)
	if matched == "" {
		return Verdict{Allowed: false, Reason: "sender not allowed"}
	}

	for _, v := range enabledValues(e.settings.ExcludedSenders) {
		if strings.Contains(sender, v) {
			return Verdict{Allowed: false, Reason: "excluded sender: " + v}
		}
	}
	for _, v := range enabledValues(e.settings.ExcludedSubjects) {
		if strings.Contains(subject, v) {
			return Verdict{Allowed: false, Reason: "excluded subject: " + v}
		}
	}
	for _, v := range enabledValues(e.settings.ExcludedKeywords) {
		if strings.Contains(text, v) {
			return Verdict{Allowed: false, Reason: "excluded keyword: " + v}
		}
	}

	return Verdict{Allowed: true, Reason: matched}
}

// matchAllowedSender returns the reason string of the first allowed-sender
// substring contained in sender, or "" when none matches.
func (e *Engine) matchAllowedSender(sender string) string {
	if e.settings.UseDefaultSenders {
		for _, v := range DefaultFinancialSenders {
			if strings.Contains(sender, v) {
				return "default sender: " + v
			}
		}
	}
	for _, v := range enabledValues(e.settings.CustomSenders) {
		if strings.Contains(sender, v) {
			return "sender rule: " + v
		}
	}
	return ""
}
