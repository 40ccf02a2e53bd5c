// Package cache keeps public property search results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/alextreichler/estatehub/internal/search"
	"github.com/redis/go-redis/v9"
)

const (
	keyPattern = "property-search:*"
	scanCount  = 100
	DefaultTTL = 10 * time.Minute
)

// SearchCache stores search results keyed by search.Params.CacheKey.
type SearchCache interface {
	Get(ctx context.Context, p search.Params) (*search.Result, bool)
	Set(ctx context.Context, p search.Params, r *search.Result)
	Invalidate(ctx context.Context)
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, err
	}
	slog.Info("Connected to Redis", "addr", cfg.Addr)
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) Get(ctx context.Context, p search.Params) (*search.Result, bool) {
	key := p.CacheKey()
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis GET failed", "key", key, "error", err)
		}
		return nil, false
	}
	var r search.Result
	if err := json.Unmarshal(data, &r); err != nil {
		slog.Warn("Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	r.Params = p.Normalize()
	slog.Debug("Cache hit", "key", key)
	return &r, true
}

func (c *RedisCache) Set(ctx context.Context, p search.Params, r *search.Result) {
	key := p.CacheKey()
	data, err := json.Marshal(r)
	if err != nil {
		slog.Warn("Failed to encode search result for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("Redis SET failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached search result.
func (c *RedisCache) Invalidate(ctx context.Context) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, keyPattern, scanCount).Result()
		if err != nil {
			slog.Warn("Redis SCAN failed during invalidation", "pattern", keyPattern, "error", err)
			return
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Failed to delete cached search results", "count", len(keys), "error", err)
		return
	}
	slog.Debug("Search cache invalidated", "keys", len(keys))
}

// Noop is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, search.Params) (*search.Result, bool) { return nil, false }
func (Noop) Set(context.Context, search.Params, *search.Result) {}
func (Noop) Invalidate(context.Context) {}
