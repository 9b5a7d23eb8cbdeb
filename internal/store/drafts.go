package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// opTimeout bounds the draft queries, which run outside any request context.
const opTimeout = 5 * time.Second

// DraftStorage is the key/value space of one visitor session. It satisfies
// contact.Storage.
type DraftStorage struct {
	db        *DB
	namespace string
}

// Drafts returns the storage space for namespace.
func (s *DB) Drafts(namespace string) *DraftStorage {
	return &DraftStorage{db: s, namespace: namespace}
}

func (d *DraftStorage) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value []byte
	err := d.db.db.QueryRowContext(ctx,
		`SELECT value FROM drafts WHERE namespace = ? AND key = ?`,
		d.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load draft %s: %w", key, err)
	}
	return value, true, nil
}

func (d *DraftStorage) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := d.db.db.ExecContext(ctx, `
		INSERT INTO drafts (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE
		SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, d.namespace, key, value)
	if err != nil {
		return fmt.Errorf("save draft %s: %w", key, err)
	}
	return nil
}

func (d *DraftStorage) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := d.db.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE namespace = ? AND key = ?`, d.namespace, key)
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", key, err)
	}
	return nil
}
