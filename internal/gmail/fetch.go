package gmail

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/mail-ledger/internal/logger"
)

// Fetch policy. Retries count extra attempts after the first.
const (
	listTimeout   = 12 * time.Second
	detailTimeout = 10 * time.Second
	listRetries   = 2
	detailRetries = 1

	backoffBase = 400 * time.Millisecond
	backoffCap  = 2500 * time.Millisecond
	jitterMax   = 250 * time.Millisecond

	breakerThreshold = 4
	breakerCooldown  = 30 * time.Second

	pageSize        = 100
	maxMessageIDs   = 500
	detailBatchSize = 10
)

var (
	// ErrUnauthorized marks 401/403 responses. Never retried: the token is
	// bad and only a re-auth fixes it.
	ErrUnauthorized = errors.New("gmail: unauthorized")
	// ErrCircuitOpen is returned while the breaker cools down.
	ErrCircuitOpen = errors.New("gmail: circuit open, mailbox temporarily unavailable")
	// ErrMailboxUnstable aborts a run whose detail failure rate crossed 50%.
	ErrMailboxUnstable = errors.New("gmail: too many message fetches failed, mailbox unstable")
)

// breaker trips after a run of consecutive failures and stays open for a
// cooldown window. Any success resets the count.
type breaker struct {
	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.After(b.openUntil) || now.Equal(b.openUntil)
}

func (b *breaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= breakerThreshold {
		b.openUntil = now.Add(breakerCooldown)
		b.failures = 0
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// FetchStats reports how a detail-fetch run went.
type FetchStats struct {
	Requested int
	Failed    int
	Degraded  bool
}

// FetchClient drives MailboxAPI with the fetch policy applied. The clock,
// sleeper and jitter source are injectable for tests.
type FetchClient struct {
	api     MailboxAPI
	breaker breaker

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

func NewFetchClient(api MailboxAPI) *FetchClient {
	return &FetchClient{
		api:    api,
		now:    time.Now,
		sleep:  sleepCtx,
		jitter: func() time.Duration { return time.Duration(rand.Int63n(int64(jitterMax))) },
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// unauthorized reports whether err is a 401/403 from the provider.
func unauthorized(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401 || apiErr.Code == 403
	}
	return false
}

// retriable covers transient provider trouble: throttling, server errors,
// request timeouts and plain network failures. Auth errors and context
// cancellation are terminal.
func retriable(err error) bool {
	if unauthorized(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 408 || apiErr.Code == 429 || apiErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (c *FetchClient) backoff(attempt int) time.Duration {
	d := backoffBase << attempt
	if d > backoffCap {
		d = backoffCap
	}
	return d + c.jitter()
}

// withRetry runs op under the breaker and the per-attempt timeout, retrying
// transient failures with exponential backoff.
func (c *FetchClient) withRetry(ctx context.Context, timeout time.Duration, retries int, op func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if !c.breaker.allow(c.now()) {
			return ErrCircuitOpen
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := op(attemptCtx)
		cancel()

		if err == nil {
			c.breaker.recordSuccess()
			return nil
		}
		if unauthorized(err) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, err)
		}
		c.breaker.recordFailure(c.now())
		if attempt >= retries || !retriable(err) {
			return err
		}
		if sleepErr := c.sleep(ctx, c.backoff(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
}

// SearchMessageIDs pages through the mailbox query and returns up to 500
// message ids, newest first as the provider orders them.
func (c *FetchClient) SearchMessageIDs(ctx context.Context, query string) ([]string, error) {
	log := logger.FromContext(ctx)
	var ids []string
	pageToken := ""

	for {
		size := int64(pageSize)
		if remaining := maxMessageIDs - len(ids); remaining < pageSize {
			size = int64(remaining)
		}

		var resp *gmailapi.ListMessagesResponse
		err := c.withRetry(ctx, listTimeout, listRetries, func(ctx context.Context) error {
			var opErr error
			resp, opErr = c.api.ListMessages(ctx, query, pageToken, size)
			return opErr
		})
		if err != nil {
			return nil, fmt.Errorf("searching mailbox: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || len(ids) >= maxMessageIDs {
			break
		}
	}

	log.Debug().Int("count", len(ids)).Msg("mailbox search complete")
	return ids, nil
}

// FetchMessages downloads full message payloads in concurrent batches.
// Individual failures are tolerated up to half of the run; past that the
// mailbox is treated as unstable and the whole fetch fails. The progress
// callback, when set, receives the running done count after every batch.
func (c *FetchClient) FetchMessages(ctx context.Context, ids []string, progress func(done, total int)) ([]*gmailapi.Message, FetchStats, error) {
	log := logger.FromContext(ctx)
	stats := FetchStats{Requested: len(ids)}
	if len(ids) == 0 {
		return nil, stats, nil
	}

	results := make([]*gmailapi.Message, len(ids))
	for start := 0; start < len(ids); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				var msg *gmailapi.Message
				err := c.withRetry(gctx, detailTimeout, detailRetries, func(ctx context.Context) error {
					var opErr error
					msg, opErr = c.api.GetMessage(ctx, ids[i])
					return opErr
				})
				if err != nil {
					// Auth failures and an open breaker abort the run;
					// anything else becomes a hole in the results.
					if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrCircuitOpen) {
						return err
					}
					log.Warn().Str("id", ids[i]).Err(err).Msg("message fetch failed")
					return nil
				}
				results[i] = msg
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, stats, err
		}
		if progress != nil {
			progress(end, len(ids))
		}
	}

	var messages []*gmailapi.Message
	for _, m := range results {
		if m == nil {
			stats.Failed++
			continue
		}
		messages = append(messages, m)
	}

	if stats.Failed*2 > stats.Requested {
		return nil, stats, fmt.Errorf("%w: %d of %d failed", ErrMailboxUnstable, stats.Failed, stats.Requested)
	}
	if stats.Failed > 0 {
		stats.Degraded = true
		log.Warn().Int("failed", stats.Failed).Int("requested", stats.Requested).Msg("partial message fetch")
	}
	return messages, stats, nil
}
