package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	join_date TEXT NOT NULL,
	login_count INTEGER NOT NULL DEFAULT 0,
	challenges_completed INTEGER NOT NULL DEFAULT 0
);`

// Connect opens the SQLite user database at path, checks its integrity and
// makes sure the schema exists. Any failure is fatal for the caller.
func Connect(ctx context.Context, path string) (*sqlx.DB, error) {
	pool, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// SQLite allows a single writer.
	pool.SetMaxOpenConns(1)

	if err := initialize(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "DB connection initialized and schema verified", "db.path", path)
	return pool, nil
}

func initialize(ctx context.Context, pool *sqlx.DB) error {
	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	var status string
	if err := pool.GetContext(ctx, &status, "PRAGMA integrity_check"); err != nil {
		return fmt.Errorf("failed to check database integrity: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("database integrity check failed: %s", status)
	}

	if _, err := pool.ExecContext(ctx, userSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}
