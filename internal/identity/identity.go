// Package identity persists the authenticated-user record across restarts.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"unidelas/safety-agent/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotAuthenticated is returned when no identity has been stored.
var ErrNotAuthenticated = errors.New("no authenticated user")

// Store wraps the SQLite database holding the local user identity.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitSchema ensures the identity table exists.
func (s *Store) InitSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS user_identity (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		user_id TEXT NOT NULL,
		email TEXT NOT NULL,
		stored_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);`

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Save stores the identity, replacing any previous record. Exactly one
// identity exists at a time; the fixed slot enforces last-write-wins.
func (s *Store) Save(ctx context.Context, id model.UserIdentity) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if id.ID == "" {
		return fmt.Errorf("identity requires an id")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO user_identity (slot, user_id, email, stored_at)
		 VALUES (1, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(slot) DO UPDATE SET user_id = excluded.user_id,
			 email = excluded.email,
			 stored_at = excluded.stored_at;`,
		id.ID,
		id.Email,
	)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Current returns the stored identity, or ErrNotAuthenticated when none exists.
func (s *Store) Current(ctx context.Context) (model.UserIdentity, error) {
	if s.db == nil {
		return model.UserIdentity{}, fmt.Errorf("store not initialized")
	}

	var id model.UserIdentity
	err := s.db.QueryRowContext(ctx, `SELECT user_id, email FROM user_identity WHERE slot = 1;`).
		Scan(&id.ID, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserIdentity{}, ErrNotAuthenticated
	}
	if err != nil {
		return model.UserIdentity{}, fmt.Errorf("load identity: %w", err)
	}
	return id, nil
}

// Clear removes the stored identity. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_identity;`); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}
