package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// RefreshMargin is how long before the recorded expiry a token is
	// already treated as expired, so it cannot die mid-request.
	RefreshMargin = time.Minute
)

// Scopes required for device listing and playback control.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
}

// Authorizer owns the credential record lifecycle: initial code
// exchange, expiry checks, and refresh. It is the single writer of the
// Store; refresh is serialized so a caller that observes a refresh in
// flight waits for it instead of starting a second one.
type Authorizer struct {
	config *oauth2.Config
	store  *Store
	logger *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewAuthorizer creates an Authorizer from Spotify client credentials.
// Expects "client_id" and "client_secret"; "redirect_uri" defaults to
// the local callback address.
func NewAuthorizer(credentials map[string]string, store *Store, logger *log.Logger) (*Authorizer, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return newAuthorizer(config, store, logger), nil
}

func newAuthorizer(config *oauth2.Config, store *Store, logger *log.Logger) *Authorizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Authorizer{
		config: config,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Config exposes the OAuth2 configuration for the callback handler.
func (a *Authorizer) Config() *oauth2.Config {
	return a.config
}

// AuthURL returns the authorization URL to present to the operator.
func (a *Authorizer) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the initial credential
// record and persists it.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}

	creds := FromToken(token, a.config.Scopes)
	if err := a.store.Save(creds); err != nil {
		return nil, err
	}

	return creds, nil
}

// Token returns a valid access token for immediate use.
//
// A token inside the refresh margin is refreshed first; the caller is
// never handed an expired token. Errors:
//   - [shared.ErrNotAuthorized] when no record exists (human action needed)
//   - [shared.ErrAuthRevoked] when the refresh grant is permanently rejected
//   - [shared.ErrTransient] on network failure during refresh
func (a *Authorizer) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	creds, err := a.store.Load()
	if err != nil {
		return "", err
	}

	if creds.Fresh(a.now(), RefreshMargin) {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		return "", fmt.Errorf("%w: record has no refresh token", shared.ErrNotAuthorized)
	}

	refreshed, err := a.refresh(ctx, creds)
	if err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

// ForceRefresh discards the current access token and performs a refresh
// exchange regardless of the recorded expiry. Used after the API
// rejects a token that looked fresh locally.
func (a *Authorizer) ForceRefresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	creds, err := a.store.Load()
	if err != nil {
		return err
	}

	if creds.RefreshToken == "" {
		return fmt.Errorf("%w: record has no refresh token", shared.ErrNotAuthorized)
	}

	_, err = a.refresh(ctx, creds)
	return err
}

// refresh performs the refresh-token exchange and persists the mutated
// record. Callers must hold a.mu.
func (a *Authorizer) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	source := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			a.logger.Warn("refresh token rejected, re-authorization required")
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthRevoked, err)
		}
		return nil, fmt.Errorf("%w: token refresh: %v", shared.ErrTransient, err)
	}

	creds.Update(token)
	if err := a.store.Save(creds); err != nil {
		return nil, err
	}

	a.logger.Debug("access token refreshed", "expiry", creds.Expiry)
	return creds, nil
}
