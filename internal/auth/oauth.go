package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// Scopes required for the Issues API.
var Scopes = []string{"data:read", "data:write"}

// FlowConfig carries the externally supplied OAuth settings.
type FlowConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	CallbackPort int
}

// Flow drives the 3-legged authorization-code exchange (with PKCE) and
// the refresh grant. Resulting tokens are written to the Store.
type Flow struct {
	conf   *oauth2.Config
	store  Store
	port   int
	logger *slog.Logger

	mu       sync.Mutex
	verifier string
	state    string
}

// NewFlow creates an OAuth flow backed by the given store.
func NewFlow(cfg FlowConfig, store Store, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store:  store,
		port:   cfg.CallbackPort,
		logger: logger,
	}
}

// AuthCodeURL builds the consent URL the user must visit. A fresh PKCE
// verifier and state are generated for each call; the matching Exchange
// must follow before another AuthCodeURL.
func (f *Flow) AuthCodeURL() (string, error) {
	state, err := randomState()
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.verifier = oauth2.GenerateVerifier()
	f.state = state
	verifier := f.verifier
	f.mu.Unlock()

	return f.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	), nil
}

// Exchange trades an authorization code for a token and persists it.
// The state from the callback must match the one issued by AuthCodeURL.
func (f *Flow) Exchange(ctx context.Context, code, state string) (*Token, error) {
	f.mu.Lock()
	verifier := f.verifier
	expectedState := f.state
	f.verifier = ""
	f.state = ""
	f.mu.Unlock()

	if verifier == "" {
		return nil, &types.AuthError{Reason: "no authorization in progress"}
	}
	if state != expectedState {
		return nil, &types.AuthError{Reason: "state mismatch in OAuth callback"}
	}

	tok, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &types.AuthError{Reason: "authorization code rejected", Err: err}
	}

	t := fromOAuth2(tok)
	if err := f.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting token: %w", err)
	}
	f.logger.Info("authorization complete", "expires_at", t.ExpiresAt)
	return t, nil
}

// Refresh trades a refresh token for a new token pair and persists it.
// Only a rejection by the provider is terminal: the store is cleared and
// the returned AuthError has Reauth set. A transport failure reaching
// the token endpoint keeps the stored token so a later attempt can still
// succeed.
func (f *Flow) Refresh(ctx context.Context, current *Token) (*Token, error) {
	if !current.Refreshable() {
		return nil, &types.AuthError{Reason: "no refresh token available", Reauth: true}
	}

	src := f.conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: current.RefreshToken,
		// Force the refresh grant even if the library considers the
		// access token still live.
		Expiry: time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if !errors.As(err, &retrieveErr) {
			// The provider was never reached; nothing is known about
			// the refresh token's validity.
			return nil, fmt.Errorf("reaching token endpoint: %w", err)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			// Provider-side outage, not a verdict on the token.
			return nil, fmt.Errorf("token endpoint unavailable: %w", err)
		}
		if clearErr := f.store.Clear(ctx); clearErr != nil {
			f.logger.Warn("failed to clear rejected token", "error", clearErr)
		}
		return nil, &types.AuthError{Reason: "refresh token rejected", Reauth: true, Err: err}
	}

	t := fromOAuth2(tok)
	// The provider may omit the refresh token when it is unchanged.
	if t.RefreshToken == "" {
		t.RefreshToken = current.RefreshToken
	}
	if err := f.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}
	f.logger.Debug("token refreshed", "expires_at", t.ExpiresAt)
	return t, nil
}

// Authorize runs the full interactive flow: logs the consent URL, waits
// for the local callback, and exchanges the code. It blocks until the
// user completes consent or ctx is done.
func (f *Flow) Authorize(ctx context.Context) (*Token, error) {
	authURL, err := f.AuthCodeURL()
	if err != nil {
		return nil, err
	}

	cb := NewCallbackServer(f.port, callbackPath(f.conf.RedirectURL))
	f.logger.Info("authorization required, open this URL in a browser", "url", authURL)

	code, state, err := cb.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return f.Exchange(ctx, code, state)
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
