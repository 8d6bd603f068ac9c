package mirror

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/mail-ledger/internal/domain"
)

func TestDomainRoundTrip(t *testing.T) {
	event := domain.FinancialEvent{
		ID:          "msg-1",
		Date:        civil.Date{Year: 2024, Month: 10, Day: 24},
		DisplayDate: "24 oct",
		Amount:      decimal.NewFromInt(19843),
		Direction:   domain.DirectionExpense,
		Category:    domain.CategoryTransfer,
		Source:      "Banco de Chile",
		Description: "Transferencia realizada",
	}

	row := FromDomain("user-1", event)
	if row.UserID != "user-1" || row.ExternalID != "msg-1" {
		t.Errorf("row keys = %q/%q", row.UserID, row.ExternalID)
	}
	if row.Direction != "expense" || row.Category != "transfer" {
		t.Errorf("row = %+v", row)
	}

	back := row.ToDomain()
	if back.ID != event.ID || back.Date != event.Date ||
		back.Direction != event.Direction || back.Category != event.Category ||
		back.Source != event.Source || back.Description != event.Description {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if !back.Amount.Equal(event.Amount) {
		t.Errorf("amount = %s", back.Amount)
	}
	if back.DisplayDate != "24 oct" {
		t.Errorf("display date = %q", back.DisplayDate)
	}
}
