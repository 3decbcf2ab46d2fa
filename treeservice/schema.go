package treeservice

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB opens the SQLite database at path. ":memory:" keeps everything in
// process, which is what tests use.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	inMemory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")
	if !inMemory {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tree database: %w", err)
	}
	// One connection: SQLite has a single writer and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)

	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// runMigrations creates the necessary tables
func runMigrations(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trees (
			pubkey BLOB PRIMARY KEY,
			kind TEXT NOT NULL CHECK (kind IN ('state', 'address')),
			root BLOB NOT NULL,
			next_index INTEGER NOT NULL DEFAULT 0,
			sequence INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS leaves (
			tree BLOB NOT NULL REFERENCES trees(pubkey),
			leaf_index INTEGER NOT NULL,
			hash BLOB NOT NULL,
			address BLOB NOT NULL,
			owner BLOB NOT NULL,
			discriminator BLOB NOT NULL,
			data BLOB NOT NULL,
			data_hash BLOB NOT NULL,
			spent INTEGER NOT NULL DEFAULT 0,
			batch_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tree, leaf_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leaves_live_address ON leaves(address) WHERE spent = 0`,
		`CREATE INDEX IF NOT EXISTS idx_leaves_live_hash ON leaves(hash) WHERE spent = 0`,
		`CREATE TABLE IF NOT EXISTS addresses (
			tree BLOB NOT NULL REFERENCES trees(pubkey),
			address BLOB NOT NULL,
			seed BLOB NOT NULL,
			position INTEGER NOT NULL,
			batch_id TEXT NOT NULL,
			PRIMARY KEY (tree, address)
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			program_id BLOB NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run tree migrations: %w", err)
		}
	}
	return nil
}
