package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/faddenpatrick/ironledger/internal/models"
)

// Enqueue appends a deferred mutation to the queue. Sequence numbers are
// assigned by the database and define replay order.
func (s *Store) Enqueue(ctx context.Context, method models.QueueMethod, endpoint string, payload any, entityType, entityID string) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding queue payload: %w", err)
		}
	}
	query := `INSERT INTO sync_queue (created_at, method, endpoint, payload, entity_type, entity_id, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)`
	_, err := s.db.ExecContext(ctx, query,
		time.Now().UTC().Format(time.RFC3339), string(method), endpoint, string(body), entityType, entityID)
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	return nil
}

// Unsynced returns drain candidates in ascending sequence order. Abandoned
// items are excluded.
func (s *Store) Unsynced(ctx context.Context) ([]models.QueueItem, error) {
	query := `SELECT seq, created_at, method, endpoint, COALESCE(payload, ''), entity_type,
			COALESCE(entity_id, ''), synced, attempts, abandoned, COALESCE(last_error, '')
		FROM sync_queue
		WHERE synced = 0 AND abandoned = 0
		ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		var method, payload string
		if err := rows.Scan(&item.Seq, &item.CreatedAt, &method, &item.Endpoint, &payload,
			&item.EntityType, &item.EntityID, &item.Synced, &item.Attempts, &item.Abandoned, &item.LastError); err != nil {
			return nil, err
		}
		item.Method = models.QueueMethod(method)
		if payload != "" {
			item.Payload = json.RawMessage(payload)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkSynced flags the item as confirmed; it never appears in a drain again.
func (s *Store) MarkSynced(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET synced = 1, last_error = NULL WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("failed to mark queue item synced: %w", err)
	}
	return nil
}

// MarkError records the failure and bumps the attempt counter; the item
// stays eligible for the next drain.
func (s *Store) MarkError(ctx context.Context, seq int64, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET last_error = ?, attempts = attempts + 1 WHERE seq = ?`, message, seq)
	if err != nil {
		return fmt.Errorf("failed to record queue item error: %w", err)
	}
	return nil
}

// MarkAbandoned dead-letters the item: the recorded error is kept for
// inspection but the item no longer counts as pending or gets replayed.
func (s *Store) MarkAbandoned(ctx context.Context, seq int64, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET abandoned = 1, last_error = ?, attempts = attempts + 1 WHERE seq = ?`, message, seq)
	if err != nil {
		return fmt.Errorf("failed to abandon queue item: %w", err)
	}
	return nil
}

// PendingCount reports how many mutations still await confirmation.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE synced = 0 AND abandoned = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return n, nil
}

// PruneSynced removes confirmed items, keeping the queue table small.
func (s *Store) PruneSynced(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE synced = 1`)
	if err != nil {
		return fmt.Errorf("failed to prune synced queue items: %w", err)
	}
	return nil
}
