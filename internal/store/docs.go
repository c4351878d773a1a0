package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/dbx"
)

// marshalDoc renders an entity as its stored JSON document.
func marshalDoc(v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	return string(buf), nil
}

// getDoc loads a single document by primary key. Returns common.ErrNotFound
// when no row matches.
func getDoc[T any](ctx context.Context, db dbx.DBTX, query string, args ...any) (*T, error) {
	var doc string
	err := db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	var v T
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &v, nil
}

// listDocs loads every document matched by query, in query order.
func listDocs[T any](ctx context.Context, db dbx.DBTX, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
