package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *SQLiteStore {
		t.Helper()
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Run("load on empty store returns ErrNoToken", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		store := newStore(t)

		want := &Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.AccessToken, got.AccessToken)
		assert.Equal(t, want.RefreshToken, got.RefreshToken)
		assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("save replaces the previous token", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Save(ctx, &Token{AccessToken: "old", RefreshToken: "old-r", ExpiresAt: time.Now()}))
		require.NoError(t, store.Save(ctx, &Token{AccessToken: "new", RefreshToken: "new-r", ExpiresAt: time.Now()}))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new", got.AccessToken)
		assert.Equal(t, "new-r", got.RefreshToken)
	})

	t.Run("clear removes the token", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Save(ctx, &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now()}))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("token survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.db")

		store, err := NewSQLiteStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, &Token{AccessToken: "persist", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}))
		require.NoError(t, store.Close())

		reopened, err := NewSQLiteStore(path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "persist", got.AccessToken)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now()}
	require.NoError(t, store.Save(ctx, tok))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	// Load hands out a copy; mutating it must not affect the store.
	got.AccessToken = "mutated"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.AccessToken)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenValid(t *testing.T) {
	t.Run("nil and empty tokens are invalid", func(t *testing.T) {
		var tok *Token
		assert.False(t, tok.Valid(0))
		assert.False(t, (&Token{}).Valid(0))
	})

	t.Run("margin treats near-expiry as invalid", func(t *testing.T) {
		tok := &Token{AccessToken: "a", ExpiresAt: time.Now().Add(30 * time.Second)}
		assert.True(t, tok.Valid(0))
		assert.False(t, tok.Valid(60*time.Second))
	})
}
