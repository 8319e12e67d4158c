// Package postgres stores the session record in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ports.KeyValueStore = (*KVStore)(nil)

const createTable = `CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// KVStore is a KeyValueStore backed by the session_kv table. The table is
// created lazily the first time a statement reports it missing.
type KVStore struct {
	pool *pgxpool.Pool

	schemaMu sync.Mutex
}

// NewKVStore wraps an existing pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Connect opens a pool for dsn and verifies connectivity.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.MapStoreError(fmt.Errorf("postgres: ping: %w", err))
	}
	return pool, nil
}

// EnsureSchema creates the session_kv table if it does not exist.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return apperrors.MapStoreError(fmt.Errorf("postgres: create session_kv: %w", err))
	}
	return nil
}

// withTable runs fn and, if the table is missing, creates it and retries once.
func (s *KVStore) withTable(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !apperrors.IsUndefinedTable(err) {
		return err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return fn()
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.withTable(ctx, func() error {
		return s.pool.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.NotFoundf("key %q not found", key)
	}
	if err != nil {
		return "", apperrors.MapStoreError(fmt.Errorf("postgres: get %s: %w", key, err))
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}
	err := s.withTable(ctx, func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, value)
		return err
	})
	if err != nil {
		return apperrors.MapStoreError(fmt.Errorf("postgres: set %s: %w", key, err))
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.withTable(ctx, func() error {
		_, err := s.pool.Exec(ctx, `DELETE FROM session_kv WHERE key = ANY($1)`, keys)
		return err
	})
	if err != nil {
		return apperrors.MapStoreError(fmt.Errorf("postgres: delete: %w", err))
	}
	return nil
}
