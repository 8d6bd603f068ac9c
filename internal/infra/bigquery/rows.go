// Package bigquery is the BigQuery-backed mirror store: one users table and
// one events table, events keyed by (user_id, external_id) where external_id
// is the source message id.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/mail-ledger/internal/mirror"
)

type UserRow struct {
	UserID     string    `bigquery:"user_id"`     // REQUIRED
	ExternalID string    `bigquery:"external_id"` // REQUIRED, provider user id
	Email      string    `bigquery:"email"`       // NULLABLE
	Name       string    `bigquery:"name"`        // NULLABLE
	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
}

type EventRow struct {
	UserID      string     `bigquery:"user_id"`     // REQUIRED
	ExternalID  string     `bigquery:"external_id"` // REQUIRED, message id
	EventDate   civil.Date `bigquery:"event_date"`  // REQUIRED
	Amount      *big.Rat   `bigquery:"amount"`      // REQUIRED NUMERIC
	Direction   string     `bigquery:"direction"`   // REQUIRED
	Category    string     `bigquery:"category"`    // REQUIRED
	Source      string     `bigquery:"source"`      // NULLABLE
	Description string     `bigquery:"description"` // NULLABLE
	CreatedTS   time.Time  `bigquery:"created_ts"`  // REQUIRED
}

func userRowFrom(u *mirror.User) *UserRow {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &UserRow{
		UserID:     u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		CreatedTS:  created,
	}
}

func (r *UserRow) toMirror() *mirror.User {
	return &mirror.User{
		ID:         r.UserID,
		ExternalID: r.ExternalID,
		Email:      r.Email,
		Name:       r.Name,
		CreatedAt:  r.CreatedTS,
	}
}

func eventRowFrom(e mirror.Event) *EventRow {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &EventRow{
		UserID:      e.UserID,
		ExternalID:  e.ExternalID,
		EventDate:   e.Date,
		Amount:      e.Amount.Rat(),
		Direction:   e.Direction,
		Category:    e.Category,
		Source:      e.Source,
		Description: e.Description,
		CreatedTS:   created,
	}
}

func (r *EventRow) toMirror() mirror.Event {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = decimal.NewFromBigRat(r.Amount, 2)
	}
	return mirror.Event{
		UserID:      r.UserID,
		ExternalID:  r.ExternalID,
		Date:        r.EventDate,
		Amount:      amount,
		Direction:   r.Direction,
		Category:    r.Category,
		Source:      r.Source,
		Description: r.Description,
		CreatedAt:   r.CreatedTS,
	}
}
