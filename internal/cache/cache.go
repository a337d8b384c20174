// Package cache stores rendered public menu responses in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON read-through cache for menu data.
type Cache interface {
	// Get decodes the cached value for key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Invalidate drops every menu entry.
	Invalidate(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys are namespaced under prefix.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) Cache {
	return &redisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *redisCache) key(k string) string {
	return fmt.Sprintf("%s:menu:%s", r.prefix, k)
}

func (r *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		// A stale shape is a miss; the caller overwrites it.
		return false, nil
	}
	return true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl).Err()
}

func (r *redisCache) Invalidate(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Noop never stores anything. Used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Invalidate(context.Context) error               { return nil }
