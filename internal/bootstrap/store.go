package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/adapters/filestore"
	"github.com/Dev-16-apk/breedify/internal/adapters/postgres"
	redisadapter "github.com/Dev-16-apk/breedify/internal/adapters/redis"
	"github.com/Dev-16-apk/breedify/internal/adapters/sqlite"
	apperrors "github.com/Dev-16-apk/breedify/internal/errors"
	"github.com/Dev-16-apk/breedify/internal/observability/metrics"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/jonboulle/clockwork"
)

// StoreDeps groups dependencies for BuildStore.
type StoreDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Metrics receives store operation timings. Optional.
	Metrics metrics.Sink
	Clock   clockwork.Clock
}

// StoreHandle is the persisted store selected by configuration.
type StoreHandle struct {
	Kind  config.StoreKind
	Store ports.KeyValueStore
	// Watchable is non-nil when the store can report external edits.
	Watchable ports.WatchableStore

	closers []func() error
}

// Close releases connections held by the store.
func (h *StoreHandle) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// BuildStore opens the store named by cfg.Store.Kind.
func BuildStore(ctx context.Context, deps StoreDeps) (*StoreHandle, error) {
	if deps.Config == nil {
		return nil, errors.New("store config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	h := &StoreHandle{Kind: cfg.Store.Kind}

	switch cfg.Store.Kind {
	case config.StoreKindFile, "":
		fs, err := filestore.New(cfg.Store.FilePath, logger)
		if err != nil {
			return nil, err
		}
		h.Kind = config.StoreKindFile
		h.Store = newMeteredStore(fs, string(h.Kind), deps.Metrics, deps.Clock)
		if cfg.Store.Watch {
			h.Watchable = fs
		}
	case config.StoreKindSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, db.Close)
		h.Store = newMeteredStore(db, string(h.Kind), deps.Metrics, deps.Clock)
	case config.StoreKindRedis:
		// Redis commands are timed by the client hook.
		client, err := ConnectRedis(ctx, DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger, Metrics: deps.Metrics})
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, client.Close)
		h.Store = redisadapter.NewKVStoreWithPrefix(client, cfg.Store.RedisPrefix)
	case config.StoreKindPostgres:
		pool, err := ConnectPostgres(ctx, DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, func() error { pool.Close(); return nil })
		kv := postgres.NewKVStore(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		h.Store = newMeteredStore(kv, string(h.Kind), deps.Metrics, deps.Clock)
	default:
		return nil, fmt.Errorf("unsupported store kind %q", cfg.Store.Kind)
	}

	logger.Info("session store ready", "kind", h.Kind)
	return h, nil
}

// meteredStore reports every operation through metrics.EmitStoreOp.
type meteredStore struct {
	next    ports.KeyValueStore
	backend string
	sink    metrics.Sink
	clock   clockwork.Clock
}

func newMeteredStore(next ports.KeyValueStore, backend string, sink metrics.Sink, clock clockwork.Clock) ports.KeyValueStore {
	if sink == nil {
		return next
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &meteredStore{next: next, backend: backend, sink: sink, clock: clock}
}

// observe records op. A missing key is a miss, not a failure.
func (s *meteredStore) observe(op string, start time.Time, err error) {
	if apperrors.IsNotFound(err) {
		err = nil
	}
	metrics.EmitStoreOp(s.sink, s.backend, op, s.clock.Since(start), err)
}

func (s *meteredStore) Get(ctx context.Context, key string) (string, error) {
	start := s.clock.Now()
	v, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return v, err
}

func (s *meteredStore) Set(ctx context.Context, key, value string) error {
	start := s.clock.Now()
	err := s.next.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *meteredStore) Delete(ctx context.Context, keys ...string) error {
	start := s.clock.Now()
	err := s.next.Delete(ctx, keys...)
	s.observe("delete", start, err)
	return err
}
