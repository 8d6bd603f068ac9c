package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func TestFinancialEvent_Month(t *testing.T) {
	e := FinancialEvent{Date: date(2023, 10, 24)}
	if got := e.Month(); got != "2023-10" {
		t.Errorf("Month() = %q, want %q", got, "2023-10")
	}

	e = FinancialEvent{Date: date(2024, 1, 3)}
	if got := e.Month(); got != "2024-01" {
		t.Errorf("Month() = %q, want %q", got, "2024-01")
	}
}

func TestFormatDisplayDate(t *testing.T) {
	tests := []struct {
		name string
		in   civil.Date
		want string
	}{
		{"october", date(2023, 10, 24), "24 oct"},
		{"january single digit day", date(2024, 1, 3), "3 ene"},
		{"december", date(2023, 12, 31), "31 dic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDisplayDate(tt.in); got != tt.want {
				t.Errorf("FormatDisplayDate(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortEventsByDateDesc(t *testing.T) {
	events := []FinancialEvent{
		{ID: "a", Date: date(2023, 10, 1)},
		{ID: "b", Date: date(2023, 10, 24)},
		{ID: "c", Date: date(2023, 10, 24)},
		{ID: "d", Date: date(2023, 9, 30)},
	}

	SortEventsByDateDesc(events)

	wantOrder := []string{"b", "c", "a", "d"}
	for i, want := range wantOrder {
		if events[i].ID != want {
			t.Fatalf("position %d: got %q, want %q (order %v)", i, events[i].ID, want, events)
		}
	}
}

func TestSummarize(t *testing.T) {
	events := []FinancialEvent{
		{Direction: DirectionIncome, Amount: decimal.NewFromInt(500000)},
		{Direction: DirectionExpense, Amount: decimal.NewFromInt(19843)},
		{Direction: DirectionExpense, Amount: decimal.NewFromInt(30157)},
	}

	sum := Summarize("2023-10", events)

	if !sum.TotalIncome.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("TotalIncome = %s, want 500000", sum.TotalIncome)
	}
	if !sum.TotalExpense.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("TotalExpense = %s, want 50000", sum.TotalExpense)
	}
	if !sum.NetDifference.Equal(decimal.NewFromInt(450000)) {
		t.Errorf("NetDifference = %s, want 450000", sum.NetDifference)
	}
	if sum.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", sum.EventCount)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize("2023-10", nil)
	if !sum.NetDifference.IsZero() || sum.EventCount != 0 {
		t.Errorf("empty summary should be zero, got %+v", sum)
	}
}

func TestCategoryIcon_Deterministic(t *testing.T) {
	for _, c := range AllCategories() {
		if CategoryIcon(c) == "" {
			t.Errorf("CategoryIcon(%s) is empty", c)
		}
	}
	if CategoryIcon(CategoryTransfer) != "swap_horiz" {
		t.Errorf("CategoryIcon(transfer) = %q", CategoryIcon(CategoryTransfer))
	}
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range AllCategories() {
		if !IsValidCategory(c) {
			t.Errorf("IsValidCategory(%s) = false", c)
		}
	}
	if IsValidCategory("groceries") {
		t.Error("IsValidCategory(groceries) = true, want false")
	}
}
