package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(os.Getenv("LOG_LEVEL"))
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev || cfg.LogLevel != "info" {
		level := cfg.LogLevel
		if cfg.IsDev {
			level = "debug"
		}
		logger = bootstrap.InitLogger(level)
	}

	logStartupInfo(ctx, logger, &cfg)

	return bootstrap.RunServicesWithShutdown(ctx, &cfg, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting breedify session service",
		"addr", cfg.HTTP.Addr,
		"backend", cfg.Backend.APIURL,
		"store", cfg.Store.Kind,
		"demo_fallback", cfg.Demo.Enabled,
		"default_timeout_minutes", cfg.Session.DefaultTimeoutMinutes)
}
