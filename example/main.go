package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpalmerr/halolight"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// a file store keeps the session across restarts
	st, err := halolight.OpenFileStorage(filepath.Join(os.TempDir(), "halolight-demo.json"))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}

	console, err := halolight.New(
		halolight.WithTitle("HaloLight Demo"),
		halolight.WithPort(8080),
		halolight.WithLogger(logger),
		halolight.WithStorage(st),
		halolight.WithTokenSecret([]byte("demo-secret-do-not-use-in-prod")),
		halolight.WithNotifyInterval(3*time.Second),
		halolight.WithNotifyProbability(0.5),
		halolight.WithNotificationCallback(func(n halolight.Notification) {
			logger.Info("notification pushed", "type", n.Type, "title", n.Title)
		}),
	)
	if err != nil {
		logger.Error("failed to create console", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  HaloLight Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Sign in with admin@halolight.h7ml.cn / 123456")
	fmt.Println("  Metrics at http://localhost:8080/metrics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := console.Start(ctx); err != nil {
		logger.Error("halolight error", "error", err)
		os.Exit(1)
	}
}
