package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const driverName = "sqlite"

// SQLiteConnect opens the SQLite database at path and verifies its schema.
// Use ":memory:" for a throwaway database.
func SQLiteConnect(ctx context.Context, path string) (*sqlx.DB, error) {
	pool, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	pool.SetMaxOpenConns(1)

	if err := InitializeSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to sqlite database", "db.path", path)
	return pool, nil
}

// InitializeSchema creates the tables the service needs if they are missing.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	kvSchema := `
	CREATE TABLE IF NOT EXISTS kv_store (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}
