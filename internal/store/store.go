// Package store persists visitor analytics, contact drafts and submission
// outcomes in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and brings the schema
// up to date. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	s := &DB{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,  -- never the raw address
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
	`CREATE TABLE IF NOT EXISTS section_views (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_hash TEXT NOT NULL,
		section TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS drafts (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		subject TEXT,
		outcome TEXT NOT NULL,
		reason TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

func (s *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
