package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DeafMist/outbreak-radar/backend/internal/backend"
	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/schedule"
)

type pruner interface {
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

func main() {
	_ = godotenv.Load()

	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := backend.OpenWithRetry(ctx, cfg.Common, log, 10)
	if err != nil {
		log.Error("open storage", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	log.Info("retention job running",
		slog.String("backend", cfg.StorageBackend),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	// Run immediately on start, but don't fail if storage is temporarily unavailable
	err = schedule.Run(ctx, "@every "+cfg.Interval.String(), true, 2*time.Minute, func(ctx context.Context) {
		runOnce(ctx, log, store, cfg)
	}, log)
	if err != nil {
		log.Error("schedule", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("shutdown signal received")
}

func runOnce(ctx context.Context, log *slog.Logger, store pruner, cfg *config.Retention) int64 {
	deleted, err := store.DeleteOlderThan(ctx, cfg.MaxAge, cfg.BatchSize)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return 0
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted", deleted))
	} else {
		log.Debug("retention run completed, no old records found")
	}
	return deleted
}
