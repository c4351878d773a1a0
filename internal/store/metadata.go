package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Metadata keys used by the sync machinery.
const (
	metaLastSyncTime = "last_sync_time"
	metaAuthTokens   = "auth_tokens"
)

// GetMeta returns the value stored under key, or nil when absent.
func (s *Store) GetMeta(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetMeta(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// LastSyncTime returns the timestamp of the last completed sync, or the
// zero time when no sync has run yet.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	value, err := s.GetMeta(ctx, metaLastSyncTime)
	if err != nil || value == nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last sync time: %w", err)
	}
	return t, nil
}

func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.SetMeta(ctx, metaLastSyncTime, []byte(t.UTC().Format(time.RFC3339)))
}

// SaveTokens persists the marshalled token pair so a restart keeps the
// session. The value type lives in the api package; this layer only stores
// opaque JSON.
func (s *Store) SaveTokens(ctx context.Context, tokens any) error {
	buf, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}
	return s.SetMeta(ctx, metaAuthTokens, buf)
}

// DeleteTokens removes the persisted token pair (logout).
func (s *Store) DeleteTokens(ctx context.Context) error {
	return s.DeleteMeta(ctx, metaAuthTokens)
}

// LoadTokens unmarshals the persisted token pair into out. Returns false
// when no tokens are stored.
func (s *Store) LoadTokens(ctx context.Context, out any) (bool, error) {
	value, err := s.GetMeta(ctx, metaAuthTokens)
	if err != nil || value == nil {
		return false, err
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, fmt.Errorf("decoding tokens: %w", err)
	}
	return true, nil
}
