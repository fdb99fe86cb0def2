// Package cache stores rendered recommendation lists in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pathconvert/pathconvert/internal/models"
)

const keyPrefix = "pathconvert:"

// RedisCache is a TTL-bounded recommendation cache. Keys embed the shop's
// cache version, so a rebuild makes older entries unreachable and they age
// out on their own.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis instance at url and verifies it answers.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck // connection never became usable.
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached list for key. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Recommendation, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}

	var recs []models.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false, fmt.Errorf("decoding cached recommendations: %w", err)
	}

	if recs == nil {
		recs = []models.Recommendation{}
	}

	return recs, true, nil
}

// Set stores recs under key for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, recs []models.Recommendation) error {
	if recs == nil {
		recs = []models.Recommendation{}
	}

	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
