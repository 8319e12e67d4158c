package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/adapters/backend"
	"github.com/Dev-16-apk/breedify/internal/adapters/demoauth"
	"github.com/Dev-16-apk/breedify/internal/observability/metrics"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/Dev-16-apk/breedify/internal/retry"
	"github.com/Dev-16-apk/breedify/internal/service"
	"github.com/jonboulle/clockwork"
)

// SessionDeps groups dependencies for BuildSessionManager.
type SessionDeps struct {
	Config  *config.AppConfig
	Store   ports.KeyValueStore
	Logger  *slog.Logger
	Metrics metrics.Sink
	Clock   clockwork.Clock
}

// BuildBackendClient creates the remote auth client with its breaker and retry
// policy. Breaker transitions are reported to sink.
func BuildBackendClient(cfg config.BackendConfig, logger *slog.Logger, sink metrics.Sink, clock clockwork.Clock) (*backend.Client, error) {
	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Breaker: backend.BreakerOptions{
			ConsecutiveFailures: cfg.BreakerFailures,
			OpenTimeout:         cfg.BreakerOpenTimeout,
		},
		Retry: retry.Policy{
			MaxAttempts:      cfg.RetryAttempts,
			InitialBackoff:   cfg.RetryInitialBackoff,
			RateLimitBackoff: cfg.RetryRateLimitBackoff,
			Clock:            clock,
		},
		Logger: logger,
		OnBreakerChange: func(_, to string) {
			metrics.EmitBreakerState(sink, "backend", to)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	return client, nil
}

// BuildSessionManager wires the backend client, the optional demo directory
// and the store into a SessionManager. Remote is always consulted first.
func BuildSessionManager(deps SessionDeps) (*service.SessionManager, error) {
	if deps.Config == nil {
		return nil, errors.New("session config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg := deps.Config

	api, err := BuildBackendClient(cfg.Backend, logger, deps.Metrics, clock)
	if err != nil {
		return nil, err
	}
	providers := []ports.Authenticator{api}

	if cfg.Demo.Enabled {
		demo, derr := demoauth.NewProvider(demoauth.Config{
			Password:    cfg.Demo.Password,
			Region:      cfg.Demo.Region,
			LoginDelay:  cfg.Demo.LoginDelay,
			SignupDelay: cfg.Demo.SignupDelay,
			Clock:       clock,
		})
		if derr != nil {
			return nil, fmt.Errorf("create demo provider: %w", derr)
		}
		providers = append(providers, demo)
		logger.Info("demo fallback enabled")
	}

	return service.NewSessionManager(service.SessionManagerOptions{
		API:                   api,
		Providers:             providers,
		Store:                 deps.Store,
		Clock:                 clock,
		Logger:                logger,
		Metrics:               deps.Metrics,
		ActivityKinds:         cfg.Session.Kinds(),
		DefaultTimeoutMinutes: cfg.Session.DefaultTimeoutMinutes,
		LogoutTimeout:         cfg.Backend.LogoutTimeout,
		AuthTimeout:           cfg.Session.AuthTimeout,
	})
}
