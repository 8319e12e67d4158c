package redis

// Package redis provides Redis-based adapters for the breedify session service.

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by KVStore.
const DefaultPrefix = "breedify:"

var _ ports.KeyValueStore = (*KVStore)(nil)

// KVStore is a Redis-backed persisted session record.
// Values never expire on their own; the session manager owns their lifetime.
type KVStore struct {
	client redis.UniversalClient
	prefix string
}

// NewKVStore creates a Redis key-value store with the default prefix.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return NewKVStoreWithPrefix(client, DefaultPrefix)
}

// NewKVStoreWithPrefix creates a Redis key-value store with a custom key prefix.
func NewKVStoreWithPrefix(client redis.UniversalClient, prefix string) *KVStore {
	return &KVStore{
		client: client,
		prefix: prefix,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperrors.NotFound("empty key")
	}
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFoundf("key %q not found", key)
		}
		return "", fmt.Errorf("redis get: %w", apperrors.MapStoreError(err))
	}
	return val, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", apperrors.MapStoreError(err))
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, s.prefix+k)
		}
	}
	if len(full) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", apperrors.MapStoreError(err))
	}
	return nil
}

// Ping checks connectivity within timeout.
func (s *KVStore) Ping(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.client.Ping(ctx).Err()
}
