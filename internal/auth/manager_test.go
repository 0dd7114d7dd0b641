package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// fakeRefresher counts refresh calls and can be made slow or failing.
type fakeRefresher struct {
	calls int32
	delay time.Duration
	err   error
	ttl   time.Duration
}

func (f *fakeRefresher) Refresh(ctx context.Context, current *Token) (*Token, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Token{
		AccessToken:  "refreshed",
		RefreshToken: current.RefreshToken,
		ExpiresAt:    time.Now().Add(ttl),
	}, nil
}

func TestManagerAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token returned without refresh", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "live",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(time.Hour),
		}))

		ref := &fakeRefresher{}
		m := NewManager(ref, store, 60*time.Second, nil)

		got, err := m.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "live", got)
		assert.EqualValues(t, 0, atomic.LoadInt32(&ref.calls))
	})

	t.Run("token inside safety margin triggers refresh", func(t *testing.T) {
		// Expires in 30s with a 60s margin: must refresh before return.
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "stale",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(30 * time.Second),
		}))

		ref := &fakeRefresher{}
		m := NewManager(ref, store, 60*time.Second, nil)

		got, err := m.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", got)
		assert.EqualValues(t, 1, atomic.LoadInt32(&ref.calls))
	})

	t.Run("never returns an expired token", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "expired",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		ref := &fakeRefresher{}
		m := NewManager(ref, store, 60*time.Second, nil)

		got, err := m.AccessToken(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, "expired", got)
	})

	t.Run("no token and no refresh possible is an AuthError", func(t *testing.T) {
		m := NewManager(&fakeRefresher{}, NewMemoryStore(), 60*time.Second, nil)

		_, err := m.AccessToken(ctx)
		var authErr *types.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.True(t, authErr.Reauth)
	})

	t.Run("expired token without refresh token is an AuthError", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken: "expired",
			ExpiresAt:   time.Now().Add(-time.Minute),
		}))

		m := NewManager(&fakeRefresher{}, store, 60*time.Second, nil)

		_, err := m.AccessToken(ctx)
		var authErr *types.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.True(t, authErr.Reauth)
	})

	t.Run("concurrent callers share a single refresh", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "stale",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(10 * time.Second),
		}))

		ref := &fakeRefresher{delay: 50 * time.Millisecond}
		m := NewManager(ref, store, 60*time.Second, nil)

		const callers = 10
		var wg sync.WaitGroup
		tokens := make([]string, callers)
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tokens[i], errs[i] = m.AccessToken(ctx)
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, "refreshed", tokens[i])
		}
		assert.EqualValues(t, 1, atomic.LoadInt32(&ref.calls),
			"refresh must be single-flighted")
	})

	t.Run("transient refresh failure keeps the token for a later attempt", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "stale",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		ref := &fakeRefresher{err: errors.New("dial tcp: connection refused")}
		m := NewManager(ref, store, 60*time.Second, nil)

		_, err := m.AccessToken(ctx)
		require.Error(t, err)
		var authErr *types.AuthError
		assert.False(t, errors.As(err, &authErr))

		// The outage clears; the retained refresh token must still work.
		ref.err = nil
		got, err := m.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", got)
		assert.EqualValues(t, 2, atomic.LoadInt32(&ref.calls))
	})

	t.Run("refresh failure surfaces and clears the cached token", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, &Token{
			AccessToken:  "stale",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}))

		refreshErr := &types.AuthError{Reason: "refresh token rejected", Reauth: true}
		m := NewManager(&fakeRefresher{err: refreshErr}, store, 60*time.Second, nil)

		_, err := m.AccessToken(ctx)
		assert.True(t, errors.Is(err, refreshErr) || err == refreshErr)
	})
}

func TestManagerForceRefresh(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, &Token{
		AccessToken:  "live-but-rejected-remotely",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	ref := &fakeRefresher{}
	m := NewManager(ref, store, 60*time.Second, nil)

	// Prime the in-memory token.
	_, err := m.AccessToken(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, atomic.LoadInt32(&ref.calls))

	got, err := m.ForceRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", got)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ref.calls))
}
