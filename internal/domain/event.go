package domain

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// EventDirection tells whether money moved into or out of the account.
type EventDirection string

const (
	DirectionIncome  EventDirection = "income"
	DirectionExpense EventDirection = "expense"
)

// EventCategory is the coarse classification of a financial event.
type EventCategory string

const (
	CategoryCard     EventCategory = "card"
	CategoryCredit   EventCategory = "credit"
	CategoryService  EventCategory = "service"
	CategoryTransfer EventCategory = "transfer"
	CategoryIncome   EventCategory = "income"
)

// AllCategories returns every valid category in display order.
func AllCategories() []EventCategory {
	return []EventCategory{
		CategoryCard,
		CategoryCredit,
		CategoryService,
		CategoryTransfer,
		CategoryIncome,
	}
}

// IsValidCategory reports whether c is one of the known categories.
func IsValidCategory(c EventCategory) bool {
	switch c {
	case CategoryCard, CategoryCredit, CategoryService, CategoryTransfer, CategoryIncome:
		return true
	}
	return false
}

// FinancialEvent is one extracted transaction record. ID equals the source
// message's unique identifier and is the natural dedup key; an event is never
// mutated after creation.
type FinancialEvent struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	DisplayDate string          `json:"displayDate"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   EventDirection  `json:"direction"`
	Category    EventCategory   `json:"category"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
}

// Month returns the event's month in "YYYY-MM" form.
func (e FinancialEvent) Month() string {
	return fmt.Sprintf("%04d-%02d", e.Date.Year, int(e.Date.Month))
}

// spanish month abbreviations for display dates (es-CL)
var shortMonths = [...]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// FormatDisplayDate renders a date the way the dashboard shows it ("24 oct").
func FormatDisplayDate(d civil.Date) string {
	m := int(d.Month)
	if m < 1 || m > 12 {
		return d.String()
	}
	return fmt.Sprintf("%d %s", d.Day, shortMonths[m-1])
}

// SortEventsByDateDesc orders events newest first. The sort is stable so that
// same-day events keep their relative order across repeated merges.
func SortEventsByDateDesc(events []FinancialEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[j].Date.Before(events[i].Date)
	})
}

// MonthlySummary aggregates one month of events.
type MonthlySummary struct {
	Month         string          `json:"month"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpense  decimal.Decimal `json:"totalExpense"`
	NetDifference decimal.Decimal `json:"netDifference"`
	EventCount    int             `json:"eventCount"`
}

// Summarize computes the monthly totals for the given events, which are
// assumed to already be filtered to a single month.
func Summarize(month string, events []FinancialEvent) MonthlySummary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, e := range events {
		switch e.Direction {
		case DirectionIncome:
			income = income.Add(e.Amount)
		case DirectionExpense:
			expense = expense.Add(e.Amount)
		}
	}
	return MonthlySummary{
		Month:         month,
		TotalIncome:   income,
		TotalExpense:  expense,
		NetDifference: income.Sub(expense),
		EventCount:    len(events),
	}
}
