package cache

import (
	"context"
	"strings"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/redis/go-redis/v9"
)

// opTimeout bounds every Redis round trip.
const opTimeout = 2 * time.Second

// scanBatch is the COUNT hint used when listing keys.
const scanBatch = 500

// RedisCache is a Redis-backed translation cache shared between runs.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string        // e.g. "redis://localhost:6379/0"
	TTL       time.Duration // Zero means no expiration
	KeyPrefix string        // Defaults to DefaultKeyPrefix
}

// NewRedisCache connects to Redis and checks the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &prismlate.CacheError{Message: "invalid redis URL", Cause: err}
	}

	c := NewRedisCacheFromClient(redis.NewClient(opts), cfg.TTL, cfg.KeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		c.client.Close()
		return nil, err
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// Get returns the cached translation for key. Redis failures read as a
// miss.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a translation.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &prismlate.CacheError{Message: "redis SET failed", Cause: err}
	}
	return nil
}

// Entries lists every entry under the key prefix.
func (c *RedisCache) Entries() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*opTimeout)
	defer cancel()

	out := make(map[string]string)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, &prismlate.CacheError{Message: "redis SCAN failed", Cause: err}
		}
		if len(keys) > 0 {
			vals, err := c.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, &prismlate.CacheError{Message: "redis MGET failed", Cause: err}
			}
			for i, v := range vals {
				if s, ok := v.(string); ok {
					out[strings.TrimPrefix(keys[i], c.keyPrefix)] = s
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return &prismlate.CacheError{Message: "redis unreachable", Cause: err}
	}
	return nil
}

var _ Lister = (*RedisCache)(nil)
