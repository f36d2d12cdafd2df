// Package cache provides the Redis access layer: sessions, one-shot
// navigation state, the menu cache and login rate limits.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// errCorrupt marks a stored value that no longer decodes.
var errCorrupt = errors.New("corrupt cache entry")

// DefaultPoolSize is used when New is given no pool size.
const DefaultPoolSize = 10

// Cache holds the Redis client shared by the stores in this package.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, poolSize int) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	opt.PoolSize = poolSize
	opt.MinIdleConns = max(1, poolSize/5)
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// getJSON decodes the value at key into dst.
func (c *Cache) getJSON(ctx context.Context, key string, dst any) error {
	return decodeJSON(c.client.Get(ctx, key), dst)
}

// takeJSON decodes the value at key into dst and deletes it in the same
// round trip.
func (c *Cache) takeJSON(ctx context.Context, key string, dst any) error {
	return decodeJSON(c.client.GetDel(ctx, key), dst)
}

func decodeJSON(cmd *redis.StringCmd, dst any) error {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis %s: %w", cmd.Name(), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return nil
}

// setJSON stores v at key for ttl.
func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
