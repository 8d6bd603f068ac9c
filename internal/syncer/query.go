package syncer

import (
	"fmt"
	"strings"

	"github.com/dvloznov/mail-ledger/internal/rules"
)

// QuoteQueryTerm makes a rule value safe to embed in a mailbox search query.
// Embedded quotes are dropped and multi-word terms are quoted so the provider
// treats them as a phrase.
func QuoteQueryTerm(term string) string {
	term = strings.ReplaceAll(term, `"`, "")
	term = strings.TrimSpace(term)
	if strings.ContainsAny(term, " \t") {
		return `"` + term + `"`
	}
	return term
}

// BuildQuery translates the scan settings into one provider search query:
// an OR group of allowed senders and keyword phrases, minus excluded senders,
// subjects and keywords, bounded by the scan window. Exclusions here are an
// optimization; the rule engine re-applies them locally.
func BuildQuery(s rules.ScanSettings) string {
	var clauses []string

	var include []string
	for _, sender := range s.AllowedSenders() {
		include = append(include, "from:"+QuoteQueryTerm(sender))
	}
	for _, r := range s.Keywords {
		if r.Enabled {
			include = append(include, QuoteQueryTerm(r.Value))
		}
	}
	if len(include) == 1 {
		clauses = append(clauses, include[0])
	} else if len(include) > 1 {
		clauses = append(clauses, "("+strings.Join(include, " OR ")+")")
	}

	for _, r := range s.ExcludedSenders {
		if r.Enabled {
			clauses = append(clauses, "-from:"+QuoteQueryTerm(r.Value))
		}
	}
	for _, r := range s.ExcludedSubjects {
		if r.Enabled {
			clauses = append(clauses, "-subject:"+QuoteQueryTerm(r.Value))
		}
	}
	for _, r := range s.ExcludedKeywords {
		if r.Enabled {
			clauses = append(clauses, "-"+QuoteQueryTerm(r.Value))
		}
	}

	clauses = append(clauses, fmt.Sprintf("newer_than:%dd", s.DaysToScan))
	return strings.Join(clauses, " ")
}
