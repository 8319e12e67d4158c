package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dev-16-apk/breedify/config"
	httpx "github.com/Dev-16-apk/breedify/internal/http"
	"github.com/Dev-16-apk/breedify/internal/service"
)

const shutdownWaitTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Manager *service.SessionManager
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewHTTPServer builds the session HTTP server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var limiter *httpx.ClientLimiter
	if appCfg.HTTP.AuthRatePerMinute > 0 {
		limiter = httpx.NewClientLimiter(appCfg.HTTP.AuthRatePerMinute, appCfg.HTTP.AuthBurst)
	}

	handler := httpx.NewRouter(httpx.RouterOptions{
		Manager:        cfg.Manager,
		Logger:         logger,
		AllowedOrigins: appCfg.HTTP.AllowedOrigins,
		AuthLimiter:    limiter,
		Metrics:        cfg.Metrics,
	})

	// Guard against empty addr to avoid listening on Go default
	addr := appCfg.HTTP.Addr
	if addr == "" {
		addr = ":8090"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Websocket writes set their own deadlines after the upgrade.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ServeHTTP blocks serving requests until the server is shut down.
func ServeHTTP(server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	logger.Info("starting HTTP server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(parent, shutdownWaitTimeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
