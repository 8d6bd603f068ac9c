// Package gmail wraps the Gmail REST API behind a narrow interface and a
// fetch client that owns the retry, timeout and circuit-breaker policy. The
// rest of the system never talks to the provider directly.
package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// MailboxAPI is the provider boundary: exactly the two calls the sync flow
// needs, returning the provider's tagged response types.
type MailboxAPI interface {
	ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*gmailapi.ListMessagesResponse, error)
	GetMessage(ctx context.Context, id string) (*gmailapi.Message, error)
}

// GoogleMailbox is the real MailboxAPI over the Gmail service for the
// authenticated user.
type GoogleMailbox struct {
	svc *gmailapi.Service
}

// NewGoogleMailbox builds a Gmail service authenticated with the given
// bearer token.
func NewGoogleMailbox(ctx context.Context, accessToken string) (*GoogleMailbox, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &GoogleMailbox{svc: svc}, nil
}

func (g *GoogleMailbox) ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*gmailapi.ListMessagesResponse, error) {
	call := g.svc.Users.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return resp, nil
}

func (g *GoogleMailbox) GetMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}
	return msg, nil
}
