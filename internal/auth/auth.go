// Package auth is the identity-provider seam: token acquisition, refresh,
// profile lookup and revocation. The sync engine only sees this interface;
// the Google implementation lives in google.go.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNeedsConsent means silent refresh is not possible and the user has to
// go through the consent flow again. The engine reacts with a forced logout.
var ErrNeedsConsent = errors.New("auth: user consent required")

// Credentials is a live access token. The refresh token never leaves the
// provider implementation.
type Credentials struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the token is past (or has no) expiry at the given
// instant.
func (c Credentials) Expired(now time.Time) bool {
	return c.AccessToken == "" || !now.Before(c.ExpiresAt)
}

// UserInfo is the authenticated user's profile.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// TokenProvider abstracts the OAuth provider.
type TokenProvider interface {
	// RequestToken acquires fresh credentials, prompting for consent when
	// forceConsent is set or no prior grant exists.
	RequestToken(ctx context.Context, forceConsent bool) (Credentials, error)
	// RefreshToken silently renews credentials. Returns ErrNeedsConsent when
	// the stored grant is gone or revoked.
	RefreshToken(ctx context.Context) (Credentials, error)
	FetchUserInfo(ctx context.Context, accessToken string) (UserInfo, error)
	RevokeAccess(ctx context.Context, accessToken string) error
}
