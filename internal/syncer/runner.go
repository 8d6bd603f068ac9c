package syncer

import (
	"context"
	"fmt"

	"github.com/dvloznov/mail-ledger/internal/gmail"
	"github.com/dvloznov/mail-ledger/internal/rules"
)

// GmailRunner builds a freshly authenticated fetch client for every run, so
// each sync uses the engine's current access token.
type GmailRunner struct{}

func (GmailRunner) Run(ctx context.Context, accessToken string, settings rules.ScanSettings, processedIDs map[string]bool, progress func(Progress)) (*RunResult, error) {
	box, err := gmail.NewGoogleMailbox(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("building mailbox client: %w", err)
	}
	return New(gmail.NewFetchClient(box)).Run(ctx, settings, processedIDs, progress)
}
