package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docchat/internal/app"
	"docchat/internal/config"
	"docchat/internal/logger"
)

func main() {
	// Initialize structured logger with correlation id propagation
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	a, err := app.New(cfg, deps.VectorStore, deps.Embedder, deps.Completer, deps.DriveSource)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// Kick off an interval sync in the background so startup never blocks on
	// the drive folder.
	if a.Coordinator != nil {
		go func() {
			if _, err := a.Coordinator.SyncIfNeeded(ctx, cfg.DriveFolderID); err != nil {
				slog.Error("startup sync failed", "error", err)
			}
		}()
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
