package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/store"
)

// EntryStore implements store.Store on the entries table.
type EntryStore struct {
	db *DB
}

var _ store.Store = (*EntryStore)(nil)

func newEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db}
}

// Read returns the value stored under key, or store.ErrNotFound.
func (s *EntryStore) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.conn.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", key, err)
	}
	return value, nil
}

// Write inserts or replaces the value under key.
func (s *EntryStore) Write(ctx context.Context, key string, value []byte) error {
	m := newEntryModel(key, value)
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		m.Key, m.Value, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write entry %s: %w", key, err)
	}
	return nil
}

// DeleteNamespace removes namespace and every key below it.
func (s *EntryStore) DeleteNamespace(ctx context.Context, namespace string) error {
	child := namespace + "/"
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM entries WHERE key = ? OR substr(key, 1, length(?)) = ?`,
		namespace, child, child,
	)
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Debug(log.CatStore, "Deleted namespace", "namespace", namespace, "entries", n)
	}
	return nil
}

// List returns the keys starting with prefix, sorted.
func (s *EntryStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT key FROM entries WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan entry key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return keys, nil
}
