// Package backend opens the configured record store.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/postgres"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
)

// Open connects to the store named by cfg.StorageBackend and prepares its schema.
// The returned close function is never nil.
func Open(ctx context.Context, cfg config.Common, log *slog.Logger) (storage.Backend, func() error, error) {
	noop := func() error { return nil }
	log = logger.OrDiscard(log)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, noop, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, noop, err
		}
		log.Info("storage ready", "backend", cfg.StorageBackend)
		return store, store.Close, nil

	case config.BackendElasticsearch, "":
		client, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			return nil, noop, fmt.Errorf("create elasticsearch client: %w", err)
		}
		if err := client.EnsureIndex(ctx); err != nil {
			return nil, noop, err
		}
		log.Info("storage ready", "backend", config.BackendElasticsearch, "index", cfg.ElasticsearchIndex)
		return client, noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// OpenWithRetry calls Open with exponential backoff capped at 30s.
// It stops early when ctx is done.
func OpenWithRetry(ctx context.Context, cfg config.Common, log *slog.Logger, maxRetries int) (storage.Backend, func() error, error) {
	log = logger.OrDiscard(log)
	if maxRetries <= 0 {
		maxRetries = 1
	}

	retryDelay := retryBase
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		store, closeFn, err := Open(ctx, cfg, log)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = store.Ping(pingCtx)
			cancel()
			if err == nil {
				return store, closeFn, nil
			}
			_ = closeFn()
		}
		lastErr = err
		log.Warn("storage unavailable, retrying",
			slog.Any("err", err),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", maxRetries),
			slog.Duration("retry_in", retryDelay),
		)
		if i == maxRetries-1 {
			break
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, func() error { return nil }, ctx.Err()
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}
	return nil, func() error { return nil }, fmt.Errorf("connect storage after %d attempts: %w", maxRetries, lastErr)
}

var retryBase = 2 * time.Second
