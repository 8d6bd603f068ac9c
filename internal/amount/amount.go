// Package amount parses monetary amounts written in the Chilean locale
// format, where dots group thousands and a comma marks decimals
// ("$1.234.567", "$1.234,50").
package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAmount is the floor below which a match is treated as noise (phone
// extensions, dates, list indexes) rather than a transaction amount.
var MinAmount = decimal.NewFromInt(100)

// MinBareAmount is the higher floor applied to bare grouped-digit matches,
// which carry no currency marker at all.
var MinBareAmount = decimal.NewFromInt(1000)

// amountPatterns are tried in priority order. Each one anchors the number to
// transaction vocabulary so that unrelated digits in the message do not win.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)monto\s*(?:transferido)?[\s\n:]+\$?\s*[\d.]+`),
	regexp.MustCompile(`\$\s*[\d.]+(?:,\d{1,2})?`),
	regexp.MustCompile(`(?i)CLP\s*[\d.]+`),
	regexp.MustCompile(`(?i)monto[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)total[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)cargo[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)pago[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)valor[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)cuota[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)depósito[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)transferencia[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)abono[:\s]+\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)compra\s+(?:por|de)?\s*\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)retiro\s+(?:por|de)?\s*\$?\s*[\d.]+`),
	regexp.MustCompile(`(?i)[\d.]+\s*(?:pesos|CLP)`),
}

// currencyPattern matches any currency-symbol-prefixed number, the fallback
// when no phrase pattern fires.
var currencyPattern = regexp.MustCompile(`\$\s*[\d.]+`)

// barePattern matches bare grouped-digit numbers ("19.843"), the last-resort
// fallback held to the higher floor.
var barePattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})+\b`)

var nonNumeric = regexp.MustCompile(`[^\d.,]`)

// Parse normalizes one locale-formatted amount string to a decimal value.
// It returns ok=false for non-positive or unparseable input.
func Parse(s string) (decimal.Decimal, bool) {
	clean := nonNumeric.ReplaceAllString(s, "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)
	if clean == "" || clean == "." {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(clean)
	if err != nil || !v.IsPositive() {
		return decimal.Decimal{}, false
	}
	return v, true
}

// Extract finds the transaction amount in free text using the tiered
// strategy: phrase patterns first, then any currency-prefixed number, then
// bare grouped digits. Within each tier the first valid match in priority
// order wins; matches below the tier's floor are skipped.
func Extract(text string) (decimal.Decimal, bool) {
	for _, pattern := range amountPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if v, ok := Parse(match); ok && v.GreaterThanOrEqual(MinAmount) {
				return v, true
			}
		}
	}

	for _, match := range currencyPattern.FindAllString(text, -1) {
		if v, ok := Parse(match); ok && v.GreaterThanOrEqual(MinAmount) {
			return v, true
		}
	}

	for _, match := range barePattern.FindAllString(text, -1) {
		if v, ok := Parse(match); ok && v.GreaterThanOrEqual(MinBareAmount) {
			return v, true
		}
	}

	return decimal.Decimal{}, false
}
