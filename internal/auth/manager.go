package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// refreshKey is the single singleflight key; there is one token per
// process, so all refreshes collapse onto it.
const refreshKey = "token-refresh"

// Refresher exchanges an old token for a new one. Implemented by *Flow;
// a fake suffices in tests.
type Refresher interface {
	Refresh(ctx context.Context, current *Token) (*Token, error)
}

// Manager owns the live token. It guarantees that AccessToken never
// returns a token expiring within the safety margin and that at most one
// refresh is in flight at a time, so concurrent callers cannot race a
// refresh-token invalidation.
type Manager struct {
	flow   Refresher
	store  Store
	margin time.Duration
	logger *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	current *Token
}

// NewManager creates a token manager with the given safety margin.
func NewManager(flow Refresher, store Store, margin time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		flow:   flow,
		store:  store,
		margin: margin,
		logger: logger,
	}
}

// SetToken primes the manager after an interactive authorization.
func (m *Manager) SetToken(tok *Token) {
	m.mu.Lock()
	m.current = tok
	m.mu.Unlock()
}

// AccessToken returns an access token guaranteed valid for at least the
// safety margin, refreshing proactively when expiry is near.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tok, err := m.token(ctx)
	if err != nil {
		return "", err
	}
	if tok.Valid(m.margin) {
		return tok.AccessToken, nil
	}
	return m.refresh(ctx)
}

// ForceRefresh discards the current access token and obtains a new one.
// Used by the API client after an authentication-rejection response.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.current != nil {
		// Replace rather than mutate; callers may hold the old pointer.
		m.current = &Token{RefreshToken: m.current.RefreshToken}
	}
	m.mu.Unlock()
	return m.refresh(ctx)
}

// token returns the in-memory token, falling back to the store on first
// use after a restart.
func (m *Manager) token(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	tok := m.current
	m.mu.Unlock()
	if tok != nil {
		return tok, nil
	}

	tok, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoToken) {
		return nil, &types.AuthError{Reason: "not authorized yet", Reauth: true}
	}
	if err != nil {
		return nil, err
	}
	m.SetToken(tok)
	return tok, nil
}

// refresh runs the refresh grant behind singleflight. Callers that pile
// up during a refresh all receive the token produced by the one flight.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	v, err, shared := m.group.Do(refreshKey, func() (interface{}, error) {
		// A concurrent flight may have refreshed while this caller
		// waited on the group; don't burn the refresh token again.
		m.mu.Lock()
		tok := m.current
		m.mu.Unlock()
		if tok.Valid(m.margin) {
			return tok, nil
		}

		if !tok.Refreshable() {
			return nil, &types.AuthError{Reason: "token expired and not refreshable", Reauth: true}
		}

		fresh, err := m.flow.Refresh(ctx, tok)
		if err != nil {
			// Drop the cached token only when the refresh token itself
			// was rejected; a transient failure leaves it usable for
			// the next attempt.
			var authErr *types.AuthError
			if errors.As(err, &authErr) && authErr.Reauth {
				m.SetToken(nil)
			}
			return nil, err
		}
		m.SetToken(fresh)
		return fresh, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		m.logger.Debug("token refresh shared with concurrent caller")
	}
	return v.(*Token).AccessToken, nil
}
