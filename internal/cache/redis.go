package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/product-extractor/internal/models"
)

const redisKeyPrefix = "extract:html:"

// RedisClient is the subset of the go-redis client used by Redis (for testing).
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis is a Store shared between processes. Redis errors degrade to misses.
type Redis struct {
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(client RedisClient, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "response_cache"),
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	if r.ttl <= 0 {
		return "", false
	}

	html, err := r.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.logger.Warn("cache read failed", "url", key, "error", err)
		return "", false
	}
	return html, true
}

func (r *Redis) Set(ctx context.Context, key, html string) {
	if r.ttl <= 0 {
		return
	}

	if err := r.client.Set(ctx, redisKey(key), html, r.ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", "url", key, "error", err)
	}
}

func redisKey(url string) string {
	return redisKeyPrefix + models.HashURL(url)
}
