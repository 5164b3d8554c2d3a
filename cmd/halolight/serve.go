package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/halolight"
	"github.com/jpalmerr/halolight/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the HaloLight console server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console server",
	Long: `Start the HaloLight console server.

The server will:
  - Load configuration from the YAML file, if given, and HALOLIGHT_* variables
  - Restore persisted console state from the configured storage
  - Serve the console UI and API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  halolight serve
  halolight serve -c config.yaml
  HALOLIGHT_PORT=9090 halolight serve --config /etc/halolight/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(config.ParseLevel(cfg.LogLevel))
	logger.Info("config loaded",
		"file", configFile,
		"storage", cfg.Storage.Backend,
	)

	st, closeStorage, err := config.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()

	opts := append(config.BuildOptions(cfg),
		halolight.WithLogger(logger),
		halolight.WithStorage(st),
	)

	console, err := halolight.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- console.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
