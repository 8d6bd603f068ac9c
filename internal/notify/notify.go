// Package notify is the fire-and-forget notification seam. The engine calls
// it after background syncs that found new events; delivery failures are
// invisible to the caller.
package notify

import (
	"context"
	"fmt"

	"github.com/dvloznov/mail-ledger/internal/logger"
)

// Notifier delivers one user-facing notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// NewEventsBody renders the standard new-transactions notification text.
func NewEventsBody(count int) string {
	if count == 1 {
		return "Se detectó 1 nueva transacción en tu correo"
	}
	return fmt.Sprintf("Se detectaron %d nuevas transacciones en tu correo", count)
}

// LogNotifier writes notifications to the structured log, for headless runs.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, title, body string) {
	log := logger.FromContext(ctx)
	log.Info().
		Str("title", title).
		Str("body", body).
		Msg("notification")
}
