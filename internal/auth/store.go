package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoToken is returned by Store.Load when nothing is persisted.
var ErrNoToken = errors.New("no token stored")

// Store persists the OAuth token across process restarts. A single token
// row is kept; Save replaces it.
type Store interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, tok *Token) error
	Clear(ctx context.Context) error
	Close() error
}

// SQLiteStore keeps the token in a small SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

const tokenSchema = `
CREATE TABLE IF NOT EXISTS oauth_token (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
)`

// NewSQLiteStore opens (creating if necessary) the token database at
// dbPath. Parent directories are created with owner-only permissions
// since the file holds live credentials.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	if _, err := db.Exec(tokenSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply token schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the persisted token, or ErrNoToken.
func (s *SQLiteStore) Load(ctx context.Context) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT access_token, refresh_token, expires_at FROM oauth_token WHERE id = 1")

	var tok Token
	var expiresAt int64
	if err := row.Scan(&tok.AccessToken, &tok.RefreshToken, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	tok.ExpiresAt = time.Unix(expiresAt, 0)
	return &tok, nil
}

// Save replaces the persisted token.
func (s *SQLiteStore) Save(ctx context.Context, tok *Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_token (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		tok.AccessToken, tok.RefreshToken, tok.ExpiresAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the persisted token.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM oauth_token WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MemoryStore holds the token in memory only. Used in tests and when no
// persistence path is configured.
type MemoryStore struct {
	mu  sync.Mutex
	tok *Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, ErrNoToken
	}
	cp := *s.tok
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tok = &cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
