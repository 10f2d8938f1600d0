package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/coursesync/ports"
)

// DraftStore implements ports.DraftStore using SQLite.
type DraftStore struct {
	db  *DB
	now func() time.Time
}

// NewDraftStore creates a new SQLite draft store.
func NewDraftStore(db *DB) *DraftStore {
	return &DraftStore{db: db, now: time.Now}
}

// WithClock sets the time source for updated_at.
func (s *DraftStore) WithClock(c ports.Clock) *DraftStore {
	s.now = c.Now
	return s
}

// Get returns the stored value, or nil if absent.
func (s *DraftStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *DraftStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set draft %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *DraftStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove draft %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *DraftStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM drafts WHERE key = ?`, key).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("draft %s updated_at: %w", key, err)
	}
	return at, true, nil
}

// Prune deletes drafts not written since before.
func (s *DraftStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune drafts: %w", err)
	}
	return result.RowsAffected()
}

// Ensure interface compliance.
var _ ports.DraftStore = (*DraftStore)(nil)
