// Package store is the local durable mirror of the server's entities plus
// the mutation queue. One SQLite database holds a table per mirrored
// collection, keyed by the entity id with secondary indexes on the foreign
// keys the read filters need. Records are stored as JSON documents with the
// indexed fields lifted into columns.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/faddenpatrick/ironledger/internal/dbx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps the SQLite database behind typed collection accessors.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the local database at dsn and applies
// pending migrations. Use ":memory:" for throwaway stores in tests.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}
	// modernc's driver serializes at the connection level; a single
	// connection avoids SQLITE_BUSY between interleaved writers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating local database: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

var allTables = []string{
	"exercises",
	"workout_templates",
	"workouts",
	"sets",
	"meal_categories",
	"foods",
	"meals",
	"meal_items",
	"nutrition_summaries",
	"sync_queue",
	"metadata",
}

// ClearAll wipes every collection and the queue in one transaction, leaving
// the store as it was on first run. Required on logout.
func (s *Store) ClearAll(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range allTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}
