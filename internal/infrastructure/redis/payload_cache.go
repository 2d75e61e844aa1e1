package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the payload cache. Prefix
// namespaces every key the cache writes.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// PayloadCache keeps raw upstream statistics bodies in Redis so several
// service instances share one upstream call per range.
type PayloadCache struct {
	client goredis.UniversalClient
	prefix string
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewPayloadCache(client goredis.UniversalClient, prefix string) *PayloadCache {
	return &PayloadCache{client: client, prefix: prefix}
}

func (c *PayloadCache) key(k string) string {
	return c.prefix + k
}

// Get reports a miss as (nil, false, nil).
func (c *PayloadCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (c *PayloadCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete drops the given keys; missing keys are ignored.
func (c *PayloadCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.key(key)
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping is used by the health check.
func (c *PayloadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
