// Package redis provides a Redis implementation of the workstream.Cache
// contract. It is the primary tier: shared across instances but allowed to
// be down, in which case callers fall back to the in-process tier.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/workstream/workstream/pkg/workstream"
)

// Config holds Redis cache configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "workstream:").
	KeyPrefix string

	// DefaultTTL is used when Set is called with a zero TTL
	// (default: 1h).
	DefaultTTL time.Duration

	// ScanCount is the COUNT hint for pattern scans (default: 100).
	ScanCount int64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "workstream:",
		DefaultTTL: time.Hour,
		ScanCount:  100,
	}
}

// Cache implements workstream.Cache using Redis.
type Cache struct {
	client redis.UniversalClient
	config Config
}

// New creates a new Redis cache adapter. The client can be *redis.Client,
// *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "workstream:"
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = time.Hour
	}
	if config.ScanCount <= 0 {
		config.ScanCount = 100
	}
	return &Cache{client: client, config: config}, nil
}

// Get implements workstream.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, workstream.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", workstream.ErrCacheUnavailable, err)
	}
	return value, nil
}

// Set implements workstream.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	if err := c.client.Set(ctx, c.config.KeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", workstream.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete implements workstream.Cache.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.config.KeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", workstream.ErrCacheUnavailable, err)
	}
	return n > 0, nil
}

// DeletePattern implements workstream.Cache using SCAN with a MATCH glob
// and batched DEL. Redis glob syntax already covers "*" and "?".
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.config.KeyPrefix+pattern, c.config.ScanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", workstream.ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("%w: %v", workstream.ErrCacheUnavailable, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Ping verifies connectivity to the Redis server.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
