package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/Dev-16-apk/breedify/config"
	"github.com/Dev-16-apk/breedify/internal/bootstrap"
	"github.com/Dev-16-apk/breedify/internal/ports"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Store  ports.KeyValueStore
	// API is built on demand by commands that talk to the backend.
	API func() (ports.AuthAPI, error)
	In  io.Reader
	Out io.Writer
}

func main() {
	logger := bootstrap.InitLogger(os.Getenv("LOG_LEVEL"))

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	if err := run(cmd, logger, os.Args[2:]); err != nil {
		logger.Error("command failed", "command", cmdName, "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func run(cmd command, logger *slog.Logger, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := bootstrap.BuildStore(ctx, bootstrap.StoreDeps{Config: &cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close store failed", "error", cerr)
		}
	}()

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Store:  store.Store,
		API: func() (ports.AuthAPI, error) {
			return bootstrap.BuildBackendClient(cfg.Backend, logger, nil, nil)
		},
		In:  os.Stdin,
		Out: os.Stdout,
	}
	return cmd.run(cmdCtx, args)
}

func commands() map[string]command {
	return map[string]command{
		"show": {
			name:        "show",
			description: "Print the persisted session record and timeout preference",
			run:         runShow,
		},
		"clear": {
			name:        "clear",
			description: "Delete the persisted user and token (keeps preferences)",
			run:         runClear,
		},
		"timeout": {
			name:        "timeout",
			description: "Set the inactivity timeout: minutes or a preset (15min, 30min, 1hour, 4hours)",
			run:         runTimeout,
		},
		"verify": {
			name:        "verify",
			description: "Check the persisted token against the backend",
			run:         runVerify,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: breedify-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-10s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
