// Package rules holds the user-editable scan configuration: sender and
// keyword rules that widen or narrow which messages reach the classifier,
// plus the category filter and scan window. Rule values are sanitized on
// every write so that stored settings can always be embedded verbatim in a
// mailbox search query.
package rules

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/dvloznov/mail-ledger/internal/domain"
)

// RuleType names the list a rule belongs to. Allow rules widen the scan,
// exclusion rules always win over any allow rule.
type RuleType string

const (
	TypeSender          RuleType = "sender"
	TypeKeyword         RuleType = "keyword"
	TypeExcludedSender  RuleType = "excludedSender"
	TypeExcludedKeyword RuleType = "excludedKeyword"
	TypeExcludedSubject RuleType = "excludedSubject"
)

const (
	MaxRuleValueLen = 120
	MinRuleValueLen = 2
	MaxRulesPerList = 200

	MinDaysToScan     = 1
	MaxDaysToScan     = 365
	DefaultDaysToScan = 30
)

var (
	ErrInvalidRuleValue = errors.New("rules: value empty or malformed after sanitizing")
	ErrDuplicateRule    = errors.New("rules: value already present in list")
	ErrListFull         = errors.New("rules: list is at capacity")
	ErrUnknownRuleType  = errors.New("rules: unknown rule type")
	ErrRuleNotFound     = errors.New("rules: no rule with that id")
)

// EmailRule is one entry in a rule list. IDs are unique across all lists.
type EmailRule struct {
	ID        string    `json:"id"`
	Type      RuleType  `json:"type"`
	Value     string    `json:"value"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// ScanSettings is the full scan configuration. The zero value is not usable;
// start from DefaultScanSettings.
type ScanSettings struct {
	CustomSenders     []EmailRule            `json:"customSenders"`
	Keywords          []EmailRule            `json:"keywords"`
	ExcludedSenders   []EmailRule            `json:"excludedSenders"`
	ExcludedKeywords  []EmailRule            `json:"excludedKeywords"`
	ExcludedSubjects  []EmailRule            `json:"excludedSubjects"`
	UseDefaultSenders bool                   `json:"useDefaultSenders"`
	EnabledCategories []domain.EventCategory `json:"enabledCategories"`
	DaysToScan        int                    `json:"daysToScan"`
}

// DefaultFinancialSenders is the built-in allowlist of Chilean banks,
// payment processors, utilities, telecoms and retailers. Matching is
// substring, case-insensitive, against the From header.
var DefaultFinancialSenders = []string{
	// Bancos
	"banco de chile", "bancoestado", "santander", "bci", "scotiabank",
	"itau", "falabella", "security", "bice", "consorcio", "ripley",
	// Pagos y fintech
	"transbank", "mercadopago", "mercadolibre", "paypal", "tenpo", "mach",
	"fpay", "flow",
	// Servicios básicos
	"enel", "chilectra", "aguas andinas", "essbio", "esval", "metrogas",
	"lipigas", "abastible",
	// Telecomunicaciones
	"entel", "movistar", "claro", "wom", "vtr", "gtd", "mundo",
	// Apps y delivery
	"rappi", "uber", "didi", "cornershop", "pedidosya",
	// Retail y otros
	"amazon", "netflix", "spotify", "apple", "google", "paris", "lider",
	"jumbo", "sodimac", "easy", "cencosud",
}

// DefaultScanSettings returns the configuration used before the user edits
// anything: built-in senders on, every category enabled, a 30-day window.
func DefaultScanSettings() ScanSettings {
	return ScanSettings{
		UseDefaultSenders: true,
		EnabledCategories: domain.AllCategories(),
		DaysToScan:        DefaultDaysToScan,
	}
}

// Sender values may carry address characters; keyword and subject values are
// held to plain words. Both keep Spanish letters.
var (
	senderDisallowed = regexp.MustCompile(`[^a-z0-9áéíóúüñ @._+\-]`)
	textDisallowed   = regexp.MustCompile(`[^a-z0-9áéíóúüñ ._\-]`)
	multiSpace       = regexp.MustCompile(`\s+`)
)

// SanitizeValue canonicalizes a rule value: Unicode NFKC, lowercase,
// whitespace collapsed, characters outside the per-type allowlist dropped,
// length clamped. ok is false when nothing usable remains.
func SanitizeValue(t RuleType, value string) (string, bool) {
	v := norm.NFKC.String(value)
	v = strings.ToLower(v)
	v = multiSpace.ReplaceAllString(v, " ")
	switch t {
	case TypeSender, TypeExcludedSender:
		v = senderDisallowed.ReplaceAllString(v, "")
	case TypeKeyword, TypeExcludedKeyword, TypeExcludedSubject:
		v = textDisallowed.ReplaceAllString(v, "")
	default:
		return "", false
	}
	v = strings.TrimSpace(multiSpace.ReplaceAllString(v, " "))
	if runes := []rune(v); len(runes) > MaxRuleValueLen {
		v = strings.TrimSpace(string(runes[:MaxRuleValueLen]))
	}
	if len([]rune(v)) < MinRuleValueLen {
		return "", false
	}
	return v, true
}

func (s *ScanSettings) listFor(t RuleType) *[]EmailRule {
	switch t {
	case TypeSender:
		return &s.CustomSenders
	case TypeKeyword:
		return &s.Keywords
	case TypeExcludedSender:
		return &s.ExcludedSenders
	case TypeExcludedKeyword:
		return &s.ExcludedKeywords
	case TypeExcludedSubject:
		return &s.ExcludedSubjects
	}
	return nil
}

func (s *ScanSettings) lists() []*[]EmailRule {
	return []*[]EmailRule{
		&s.CustomSenders, &s.Keywords,
		&s.ExcludedSenders, &s.ExcludedKeywords, &s.ExcludedSubjects,
	}
}

// AddRule sanitizes value and appends it to the list for t. Duplicates
// (post-sanitizing) and full lists are rejected.
func (s *ScanSettings) AddRule(t RuleType, value string) (EmailRule, error) {
	list := s.listFor(t)
	if list == nil {
		return EmailRule{}, ErrUnknownRuleType
	}
	clean, ok := SanitizeValue(t, value)
	if !ok {
		return EmailRule{}, ErrInvalidRuleValue
	}
	if len(*list) >= MaxRulesPerList {
		return EmailRule{}, ErrListFull
	}
	for _, r := range *list {
		if r.Value == clean {
			return EmailRule{}, ErrDuplicateRule
		}
	}
	rule := EmailRule{
		ID:        uuid.NewString(),
		Type:      t,
		Value:     clean,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	*list = append(*list, rule)
	return rule, nil
}

// RemoveRule deletes the rule with the given id from whichever list holds it.
func (s *ScanSettings) RemoveRule(id string) error {
	for _, list := range s.lists() {
		for i, r := range *list {
			if r.ID == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
	}
	return ErrRuleNotFound
}

// ToggleRule flips the enabled flag of the rule with the given id.
func (s *ScanSettings) ToggleRule(id string) error {
	for _, list := range s.lists() {
		for i := range *list {
			if (*list)[i].ID == id {
				(*list)[i].Enabled = !(*list)[i].Enabled
				return nil
			}
		}
	}
	return ErrRuleNotFound
}

// SetEnabledCategories replaces the category filter, dropping unknown values.
// An empty result is rejected so the filter can never hide everything.
func (s *ScanSettings) SetEnabledCategories(categories []domain.EventCategory) error {
	seen := map[domain.EventCategory]bool{}
	var valid []domain.EventCategory
	for _, c := range categories {
		if domain.IsValidCategory(c) && !seen[c] {
			seen[c] = true
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return errors.New("rules: at least one category must stay enabled")
	}
	s.EnabledCategories = valid
	return nil
}

// CategoryEnabled reports whether events of the category pass the filter.
func (s *ScanSettings) CategoryEnabled(c domain.EventCategory) bool {
	for _, enabled := range s.EnabledCategories {
		if enabled == c {
			return true
		}
	}
	return false
}

// Normalize repairs settings loaded from storage: every rule value is
// re-sanitized, malformed and duplicate entries are dropped, lists are capped
// and the scalar fields are clamped to their valid ranges. Settings written
// by older builds or edited by hand come out safe to use.
func (s *ScanSettings) Normalize() {
	for _, t := range []RuleType{
		TypeSender, TypeKeyword,
		TypeExcludedSender, TypeExcludedKeyword, TypeExcludedSubject,
	} {
		list := s.listFor(t)
		seen := map[string]bool{}
		kept := (*list)[:0]
		for _, r := range *list {
			clean, ok := SanitizeValue(t, r.Value)
			if !ok || seen[clean] {
				continue
			}
			seen[clean] = true
			r.Value = clean
			r.Type = t
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			kept = append(kept, r)
			if len(kept) >= MaxRulesPerList {
				break
			}
		}
		*list = kept
	}

	if s.DaysToScan < MinDaysToScan {
		s.DaysToScan = DefaultDaysToScan
	}
	if s.DaysToScan > MaxDaysToScan {
		s.DaysToScan = MaxDaysToScan
	}
	if err := s.SetEnabledCategories(s.EnabledCategories); err != nil {
		s.EnabledCategories = domain.AllCategories()
	}
}

// enabledValues returns the values of the enabled rules in a list.
func enabledValues(list []EmailRule) []string {
	var out []string
	for _, r := range list {
		if r.Enabled {
			out = append(out, r.Value)
		}
	}
	return out
}

// AllowedSenders returns every enabled sender term the scan should cover:
// the built-in list (when on) plus the user's custom sender rules.
func (s *ScanSettings) AllowedSenders() []string {
	var out []string
	if s.UseDefaultSenders {
		out = append(out, DefaultFinancialSenders...)
	}
	return append(out, enabledValues(s.CustomSenders)...)
}
