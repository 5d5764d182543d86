package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "outbreaks:seen:"

// RedisLedger shares stored keys across worker processes.
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLedger parses a redis:// URL and returns a ledger over it.
func NewRedisLedger(rawURL string, ttl time.Duration) (*RedisLedger, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisLedgerWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisLedgerWithClient wraps an existing client.
func NewRedisLedgerWithClient(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, prefix: defaultPrefix, ttl: ttl}
}

// Ping checks connectivity.
func (l *RedisLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Seen reports whether key was marked and has not expired.
func (l *RedisLedger) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark records key with the ledger ttl.
func (l *RedisLedger) Mark(ctx context.Context, key string) error {
	if err := l.client.Set(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
