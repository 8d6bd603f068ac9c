// Package mirror is the optional persistence seam: a relational copy of the
// in-memory ledger keyed by provider ids, so events survive across devices.
// Every call is best-effort from the engine's point of view; a broken mirror
// never fails a sync.
package mirror

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/mail-ledger/internal/domain"
)

var (
	ErrNotFound  = errors.New("mirror: not found")
	ErrDuplicate = errors.New("mirror: duplicate event")
)

// User is one mirrored account, keyed by the identity provider's user id.
type User struct {
	ID         string
	ExternalID string
	Email      string
	Name       string
	CreatedAt  time.Time
}

// Event is one mirrored ledger entry. ExternalID is the source message id,
// unique per user.
type Event struct {
	UserID      string
	ExternalID  string
	Date        civil.Date
	Amount      decimal.Decimal
	Direction   string
	Category    string
	Source      string
	Description string
	CreatedAt   time.Time
}

// Store is the mirror backend.
type Store interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	GetEvents(ctx context.Context, userID string) ([]Event, error)
	// CreateEvents inserts the batch, skipping rows already present for the
	// user. Returns how many rows were actually inserted.
	CreateEvents(ctx context.Context, userID string, events []Event) (int, error)
	DeleteEventByExternalID(ctx context.Context, userID, externalID string) error
}

// FromDomain converts a ledger event into its mirror row.
func FromDomain(userID string, e domain.FinancialEvent) Event {
	return Event{
		UserID:      userID,
		ExternalID:  e.ID,
		Date:        e.Date,
		Amount:      e.Amount,
		Direction:   string(e.Direction),
		Category:    string(e.Category),
		Source:      e.Source,
		Description: e.Description,
	}
}

// ToDomain converts a mirror row back into a ledger event.
func (e Event) ToDomain() domain.FinancialEvent {
	return domain.FinancialEvent{
		ID:          e.ExternalID,
		Date:        e.Date,
		DisplayDate: domain.FormatDisplayDate(e.Date),
		Amount:      e.Amount,
		Direction:   domain.EventDirection(e.Direction),
		Category:    domain.EventCategory(e.Category),
		Source:      e.Source,
		Description: e.Description,
	}
}
