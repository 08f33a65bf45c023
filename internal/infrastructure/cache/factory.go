package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend bundles the caches the server runs with
type Backend struct {
	Tags        TagCache
	Idempotency shared.IdempotencyStore
	// Redis is nil when the in-memory implementations are in use
	Redis *redis.Client
}

// Close releases the idempotency store and the Redis client
func (b *Backend) Close() error {
	err := b.Idempotency.Close()
	if b.Redis != nil {
		if cerr := b.Redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Ping checks Redis connectivity. It always succeeds for the in-memory backend.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Redis == nil {
		return nil
	}
	return b.Redis.Ping(ctx).Err()
}

// NewBackend returns Redis-backed caches when Redis is enabled and
// reachable. When it is not, the in-memory implementations are used and a
// warning is logged, unless fallback is disallowed.
func NewBackend(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (*Backend, error) {
	if !cfg.Enabled {
		logger.Info("redis disabled, using in-memory caches")
		return newMemoryBackend(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !allowFallback {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("redis unavailable, falling back to in-memory caches; "+
			"cache invalidation and event dedupe will not be shared between instances",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return newMemoryBackend(), nil
	}

	logger.Info("using redis caches", zap.String("addr", cfg.Addr()))
	return &Backend{
		Tags:        NewRedisTagCache(client),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Redis:       client,
	}, nil
}

func newMemoryBackend() *Backend {
	return &Backend{
		Tags:        NewInMemoryTagCache(),
		Idempotency: NewInMemoryIdempotencyStore(time.Minute),
	}
}
