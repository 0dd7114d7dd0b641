package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// fakeTokens counts how often each token path is taken.
type fakeTokens struct {
	accessCalls  int32
	refreshCalls int32
	refreshErr   error
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.accessCalls, 1)
	return "token-initial", nil
}

func (f *fakeTokens) ForceRefresh(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "token-refreshed", nil
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := &fakeTokens{}
	client, err := NewClient(srv.URL, tokens, opts...)
	require.NoError(t, err)
	return client, tokens
}

func TestClientDo(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches bearer token and decodes response", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-initial", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"abc","title":"Leaky pipe"}`))
		}))

		var out struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		require.NoError(t, client.Get(ctx, "projects/p1/issues/abc", nil, &out))
		assert.Equal(t, "Leaky pipe", out.Title)
	})

	t.Run("401 triggers exactly one refresh and one retry", func(t *testing.T) {
		var requests int32
		client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&requests, 1)
			if n == 1 {
				assert.Equal(t, "Bearer token-initial", r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer token-refreshed", r.Header.Get("Authorization"))
			w.Write([]byte(`{"ok":true}`))
		}))

		require.NoError(t, client.Get(ctx, "projects/p1/issues", nil, nil))
		assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
		assert.EqualValues(t, 1, atomic.LoadInt32(&tokens.refreshCalls))
	})

	t.Run("second 401 surfaces APIError without further retries", func(t *testing.T) {
		var requests int32
		client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"token revoked"}`))
		}))

		err := client.Get(ctx, "projects/p1/issues", nil, nil)
		var apiErr *types.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.EqualValues(t, 2, atomic.LoadInt32(&requests), "exactly one retry")
		assert.EqualValues(t, 1, atomic.LoadInt32(&tokens.refreshCalls))
	})

	t.Run("refresh failure surfaces the auth error", func(t *testing.T) {
		client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		tokens.refreshErr = &types.AuthError{Reason: "refresh token rejected", Reauth: true}

		err := client.Get(ctx, "projects/p1/issues", nil, nil)
		var authErr *types.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.True(t, authErr.Reauth)
	})

	t.Run("non-auth error status surfaces immediately with payload", func(t *testing.T) {
		var requests int32
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"BAD_INPUT","detail":"title exceeds 100 characters"}`))
		}))

		err := client.Post(ctx, "projects/p1/issues", map[string]string{"title": "x"}, nil)
		var apiErr *types.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "BAD_INPUT", apiErr.Code)
		assert.Equal(t, "title exceeds 100 characters", apiErr.Detail)
		assert.EqualValues(t, 1, atomic.LoadInt32(&requests), "400 must not be retried")
	})

	t.Run("deadline exceeded is a TimeoutError, not APIError", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}), WithTimeout(20*time.Millisecond))

		err := client.Get(ctx, "projects/p1/issues", nil, nil)
		var timeoutErr *types.TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		var apiErr *types.APIError
		assert.False(t, errors.As(err, &apiErr))
	})

	t.Run("remote error payload with field errors is summarized", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"errors":[{"field":"dueDate","message":"must be a date"},{"field":"status","message":"unknown"}]}`))
		}))

		err := client.Get(ctx, "projects/p1/issues", nil, nil)
		var apiErr *types.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Detail, "dueDate")
		assert.Contains(t, apiErr.Detail, "status")
	})
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("stops after MaxAttempts", func(t *testing.T) {
		calls := 0
		_, err := doWithRetry(ctx, RetryPolicy{MaxAttempts: 3}, func(error) bool { return true },
			func(attempt int) (int, error) {
				calls++
				return 0, assert.AnError
			})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry unrecoverable failures", func(t *testing.T) {
		calls := 0
		_, err := doWithRetry(ctx, RetryPolicy{MaxAttempts: 3}, func(error) bool { return false },
			func(attempt int) (int, error) {
				calls++
				return 0, assert.AnError
			})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("returns first success", func(t *testing.T) {
		calls := 0
		got, err := doWithRetry(ctx, RetryPolicy{MaxAttempts: 3}, func(error) bool { return true },
			func(attempt int) (int, error) {
				calls++
				if calls < 2 {
					return 0, assert.AnError
				}
				return 42, nil
			})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		calls := 0
		_, err := doWithRetry(cancelled, RetryPolicy{MaxAttempts: 3}, func(error) bool { return true },
			func(attempt int) (int, error) {
				calls++
				return 0, assert.AnError
			})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
