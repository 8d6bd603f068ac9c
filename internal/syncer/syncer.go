// Package syncer runs one mailbox scan end to end: build the search query,
// fetch message ids and payloads, gate them through the rule engine, classify
// and filter, and hand back sorted events with run diagnostics. Ledger state
// (merging, dedup, metadata) belongs to the sync engine, not here.
package syncer

import (
	"context"
	"fmt"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/dvloznov/mail-ledger/internal/classify"
	"github.com/dvloznov/mail-ledger/internal/content"
	"github.com/dvloznov/mail-ledger/internal/domain"
	"github.com/dvloznov/mail-ledger/internal/gmail"
	"github.com/dvloznov/mail-ledger/internal/logger"
	"github.com/dvloznov/mail-ledger/internal/rules"
)

// Phase names the stage a running scan is in, for progress reporting.
type Phase string

const (
	PhaseSearching   Phase = "searching"
	PhaseDownloading Phase = "downloading"
	PhaseProcessing  Phase = "processing"
)

// Progress is one progress report. Done/Total are zero for phases without a
// meaningful count.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// Fetcher is the slice of the fetch client the orchestrator needs.
type Fetcher interface {
	SearchMessageIDs(ctx context.Context, query string) ([]string, error)
	FetchMessages(ctx context.Context, ids []string, progress func(done, total int)) ([]*gmailapi.Message, gmail.FetchStats, error)
}

// Diagnostics summarizes how a run went beyond the events themselves.
type Diagnostics struct {
	Degraded              bool
	Warning               string
	DetailRequests        int
	PartialDetailFailures int
	ParsingFailures       int
	RejectedByRules       int
	RejectedByClassifier  int
}

// RunResult is the outcome of one scan. ProcessedIDs lists every message id
// that was fully handled this run, accepted or not, so the next scan can
// skip it.
type RunResult struct {
	Events       []domain.FinancialEvent
	ProcessedIDs []string
	Diagnostics  Diagnostics
}

// Orchestrator drives one scan at a time over an injected fetcher.
type Orchestrator struct {
	fetch      Fetcher
	classifier *classify.Classifier
}

func New(fetch Fetcher) *Orchestrator {
	return &Orchestrator{fetch: fetch, classifier: classify.New()}
}

// Run executes a scan with the given settings. Message ids present in
// processedIDs are skipped before any detail fetch. Individual message
// failures never abort the run; they surface in the diagnostics.
func (o *Orchestrator) Run(ctx context.Context, settings rules.ScanSettings, processedIDs map[string]bool, progress func(Progress)) (*RunResult, error) {
	log := logger.FromContext(ctx)
	report := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	report(Progress{Phase: PhaseSearching})
	query := BuildQuery(settings)
	log.Debug().Str("query", query).Msg("starting mailbox scan")

	ids, err := o.fetch.SearchMessageIDs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	var fresh []string
	for _, id := range ids {
		if !processedIDs[id] {
			fresh = append(fresh, id)
		}
	}
	log.Info().Int("found", len(ids)).Int("new", len(fresh)).Msg("mailbox search done")

	report(Progress{Phase: PhaseDownloading, Total: len(fresh)})
	messages, stats, err := o.fetch.FetchMessages(ctx, fresh, func(done, total int) {
		report(Progress{Phase: PhaseDownloading, Done: done, Total: total})
	})
	if err != nil {
		return nil, fmt.Errorf("downloading messages: %w", err)
	}

	result := &RunResult{
		Diagnostics: Diagnostics{
			Degraded:              stats.Degraded,
			DetailRequests:        stats.Requested,
			PartialDetailFailures: stats.Failed,
		},
	}
	var warnings []string
	if stats.Degraded {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d messages could not be downloaded; results may be incomplete",
			stats.Failed, stats.Requested))
	}

	engine := rules.NewEngine(settings)
	report(Progress{Phase: PhaseProcessing, Total: len(messages)})
	for i, msg := range messages {
		o.processMessage(ctx, engine, settings, msg, result)
		report(Progress{Phase: PhaseProcessing, Done: i + 1, Total: len(messages)})
	}

	if result.Diagnostics.ParsingFailures > 0 {
		result.Diagnostics.Degraded = true
		warnings = append(warnings, fmt.Sprintf(
			"%d messages had no readable amount", result.Diagnostics.ParsingFailures))
	}
	result.Diagnostics.Warning = strings.Join(warnings, "; ")

	domain.SortEventsByDateDesc(result.Events)
	log.Info().
		Int("events", len(result.Events)).
		Int("rejectedByRules", result.Diagnostics.RejectedByRules).
		Int("rejectedByClassifier", result.Diagnostics.RejectedByClassifier).
		Int("parsingFailures", result.Diagnostics.ParsingFailures).
		Msg("scan complete")
	return result, nil
}

// processMessage runs one message through the rule gate, the classifier and
// the category filter. The message id counts as processed whatever the
// outcome, so rejected mail is not re-fetched on the next run.
func (o *Orchestrator) processMessage(ctx context.Context, engine *rules.Engine, settings rules.ScanSettings, msg *gmailapi.Message, result *RunResult) {
	log := logger.FromContext(ctx)
	result.ProcessedIDs = append(result.ProcessedIDs, msg.Id)

	sender := content.Header(msg, "From")
	subject := content.Header(msg, "Subject")
	verdict := engine.Evaluate(sender, subject, content.BodyText(msg))
	if !verdict.Allowed {
		result.Diagnostics.RejectedByRules++
		log.Debug().Str("id", msg.Id).Str("reason", verdict.Reason).Msg("message rejected by rules")
		return
	}

	event, reason := o.classifier.Classify(msg)
	if event == nil {
		if reason == classify.ReasonNoAmount {
			result.Diagnostics.ParsingFailures++
		} else {
			result.Diagnostics.RejectedByClassifier++
		}
		log.Debug().Str("id", msg.Id).Str("reason", reason).Msg("message not classified")
		return
	}

	if !settings.CategoryEnabled(event.Category) {
		result.Diagnostics.RejectedByClassifier++
		return
	}
	result.Events = append(result.Events, *event)
}
