package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	revokeURL   = "https://oauth2.googleapis.com/revoke"

	gmailReadonlyScope = "https://www.googleapis.com/auth/gmail.readonly"
)

// GoogleProvider implements TokenProvider against Google's OAuth endpoints.
// It runs headless: consent happens out of band and the resulting refresh
// token is handed in; RequestToken then mints access tokens from it.
type GoogleProvider struct {
	cfg          *oauth2.Config
	refreshToken string

	httpClient *http.Client
	// endpoint overrides for tests
	userInfoURL string
	revokeURL   string
}

func NewGoogleProvider(clientID, clientSecret, refreshToken string) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				gmailReadonlyScope,
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		refreshToken: refreshToken,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		userInfoURL:  userInfoURL,
		revokeURL:    revokeURL,
	}
}

// ConsentURL is the URL the user has to visit to grant access when no
// refresh token is available.
func (p *GoogleProvider) ConsentURL() string {
	return p.cfg.AuthCodeURL("state",
		oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (p *GoogleProvider) RequestToken(ctx context.Context, forceConsent bool) (Credentials, error) {
	if forceConsent || p.refreshToken == "" {
		return Credentials{}, fmt.Errorf("%w: visit %s and supply the refresh token", ErrNeedsConsent, p.ConsentURL())
	}
	return p.RefreshToken(ctx)
}

func (p *GoogleProvider) RefreshToken(ctx context.Context) (Credentials, error) {
	if p.refreshToken == "" {
		return Credentials{}, ErrNeedsConsent
	}
	src := p.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		// invalid_grant means the refresh token is revoked or expired.
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return Credentials{}, fmt.Errorf("%w: %s", ErrNeedsConsent, retrieveErr.ErrorCode)
		}
		return Credentials{}, fmt.Errorf("refreshing token: %w", err)
	}
	return Credentials{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

func (p *GoogleProvider) FetchUserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return UserInfo{}, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return UserInfo{}, fmt.Errorf("decoding userinfo: %w", err)
	}
	return info, nil
}

func (p *GoogleProvider) RevokeAccess(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned %d", resp.StatusCode)
	}
	return nil
}
