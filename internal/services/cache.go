package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when Set is called with a non-positive ttl
	DefaultCacheTTL = 10 * time.Minute
)

// Cache stores JSON values by key.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr bumps an integer counter and returns the new value. Counters do not expire
	// and read back through Get as a JSON number.
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisCache is a Cache backed by Redis string keys.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get reports false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = CacheKeyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, CacheKeyPrefix+key).Result()
}

// CacheKey joins a resource name and identifier, e.g. CacheKey("bookmarks", id).
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}
