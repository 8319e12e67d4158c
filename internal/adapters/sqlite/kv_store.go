// Package sqlite stores the session record in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var _ ports.KeyValueStore = (*KVStore)(nil)

const schema = `CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// KVStore is a KeyValueStore backed by a single session_kv table.
type KVStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*KVStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer at a time; a single connection also keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, errors.Join(fmt.Errorf("sqlite: %s: %w", p, err), db.Close())
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Join(fmt.Errorf("sqlite: create schema: %w", err), db.Close())
	}

	return &KVStore{db: db, now: time.Now}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFoundf("key %q not found", key)
	}
	if err != nil {
		return "", apperrors.MapStoreError(fmt.Errorf("sqlite: get %s: %w", key, err))
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return apperrors.MapStoreError(fmt.Errorf("sqlite: set %s: %w", key, err))
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	//nolint:gosec // placeholders only, values are bound
	query := `DELETE FROM session_kv WHERE key IN (` + placeholders + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.MapStoreError(fmt.Errorf("sqlite: delete: %w", err))
	}
	return nil
}

// Close releases the database handle.
func (s *KVStore) Close() error {
	return s.db.Close()
}
