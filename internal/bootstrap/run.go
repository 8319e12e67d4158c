package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/ports"
	"github.com/Dev-16-apk/breedify/internal/service"
	"golang.org/x/sync/errgroup"
)

// RunServicesWithShutdown runs the session service until SIGINT or SIGTERM.
func RunServicesWithShutdown(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg, logger)
}

// Run builds every component, restores the persisted session and serves
// HTTP until ctx is done or a component fails.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	obs := BuildObservability(logger, cfg.Observability)
	defer func() {
		if cerr := obs.Close(); cerr != nil {
			logger.Error("close metrics failed", "error", cerr)
		}
	}()

	store, err := BuildStore(ctx, StoreDeps{Config: cfg, Logger: logger, Metrics: obs.Sink})
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close store failed", "error", cerr)
		}
	}()

	manager, err := BuildSessionManager(SessionDeps{Config: cfg, Store: store.Store, Logger: logger, Metrics: obs.Sink})
	if err != nil {
		return fmt.Errorf("build session manager: %w", err)
	}
	// Closing waits for in-flight remote logouts, so it must precede store.Close.
	defer func() {
		if cerr := manager.Close(); cerr != nil {
			logger.Error("close session manager failed", "error", cerr)
		}
	}()

	restoreCtx, cancel := context.WithTimeout(ctx, cfg.Session.RestoreTimeout)
	manager.Restore(restoreCtx)
	cancel()
	logger.Info("session restored", "signed_in", manager.State().User != nil)

	server := NewHTTPServer(&HTTPServerConfig{
		Config:  cfg,
		Manager: manager,
		Metrics: obs.Handler,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ServeHTTP(server, logger) })
	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(ShutdownConfig{
			Context: context.WithoutCancel(gctx),
			Server:  server,
			Logger:  logger,
		})
	})
	if store.Watchable != nil {
		g.Go(func() error { return watchPreferences(gctx, store.Watchable, manager, logger) })
	}

	return g.Wait()
}

// watchPreferences reloads the timeout preference when another process edits
// the store, e.g. breedify-admin.
func watchPreferences(ctx context.Context, store ports.WatchableStore, m *service.SessionManager, logger *slog.Logger) error {
	err := store.Watch(ctx, func() {
		if rerr := m.ReloadPreferences(ctx); rerr != nil && !errors.Is(rerr, service.ErrManagerClosed) {
			logger.Warn("reload preferences failed", "error", rerr)
			return
		}
		logger.Info("preferences reloaded", "inactivity_timeout_minutes", m.InactivityTimeout())
	})
	if err != nil {
		// The service keeps running without live reload.
		logger.Warn("store watch stopped", "error", err)
	}
	return nil
}
