package ports

import "context"

// KeyValueStore persists the session record across process restarts.
// Get returns an error satisfying errors.IsNotFound for absent keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// WatchableStore is implemented by stores that can report external changes.
type WatchableStore interface {
	KeyValueStore

	// Watch invokes onChange whenever the underlying record is modified by
	// another writer. It blocks until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
