package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTagCache implements TagCache on Redis. Each tag is a set named
// tag:<name> holding the cache keys set with it.
type RedisTagCache struct {
	client *redis.Client
}

// NewRedisTagCache creates a cache over an existing client. The caller
// owns the client.
func NewRedisTagCache(client *redis.Client) *RedisTagCache {
	return &RedisTagCache{client: client}
}

// Get decodes the value stored at key into dest
func (c *RedisTagCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value and adds the key to each tag set. Tag sets get the
// entry's ttl so they do not outlive what they index.
func (c *RedisTagCache) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}

	fullKey := keyPrefix + key
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fullKey, data, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tagKey(tag), fullKey)
			if ttl > 0 {
				pipe.Expire(ctx, tagKey(tag), ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags reads each tag set, deletes its members, then the set itself
func (c *RedisTagCache) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		members, err := c.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil {
			return fmt.Errorf("redis smembers %s: %w", tag, err)
		}
		keys := append(members, tagKey(tag))
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis invalidate %s: %w", tag, err)
		}
	}
	return nil
}

var _ TagCache = (*RedisTagCache)(nil)
