// Package cache keeps computed booking statistics in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/room-reservations/internal/application"
)

// DefaultPrefix namespaces every key written by the stats cache.
const DefaultPrefix = "roombook"

var _ application.StatsCache = (*RedisStatsCache)(nil)

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStatsCache stores application.Stats as JSON strings with a TTL.
type RedisStatsCache struct {
	client kv
	prefix string
	ttl    time.Duration
}

// NewRedisStatsCache wraps client. A zero ttl keeps entries until evicted.
func NewRedisStatsCache(client redis.Cmdable, ttl time.Duration) *RedisStatsCache {
	return newRedisStatsCache(client, ttl)
}

func newRedisStatsCache(client kv, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, prefix: DefaultPrefix, ttl: ttl}
}

// Options describes how to reach the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and pings it so misconfiguration surfaces at startup.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (c *RedisStatsCache) key(key string) string {
	return c.prefix + ":" + key
}

// GetStats implements application.StatsCache. A missing key is not an error.
func (c *RedisStatsCache) GetStats(ctx context.Context, key string) (application.Stats, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return application.Stats{}, false, nil
	}
	if err != nil {
		return application.Stats{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}

	var stats application.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return application.Stats{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return stats, true, nil
}

// SetStats implements application.StatsCache.
func (c *RedisStatsCache) SetStats(ctx context.Context, key string, stats application.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}
