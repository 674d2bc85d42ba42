package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis for cached query results, rolling counters and alert
// cooldown flags. It is an optimization layer: callers treat every error here
// as non-fatal and fall back to direct aggregation.
type Cache struct {
	client *redis.Client
}

func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// SetJSON stores a structured value under key with a TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetJSON loads a structured value into dest. Returns false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// GetInt reads a counter value; a missing key reads as zero.
func (c *Cache) GetInt(ctx context.Context, key string) (int64, error) {
	value, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Increment adds amount to a counter and refreshes its TTL as one atomic
// unit, so a concurrent first writer cannot strand the key without expiry.
func (c *Cache) Increment(ctx context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, amount)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return count > 0, nil
}

// DeletePattern removes every key matching pattern via SCAN. This is a linear
// scan over the keyspace; acceptable at community-bot scale.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		deleted int
		cursor  uint64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("delete %s: %w", pattern, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// ClearGuild drops every cached entry whose key carries the guild id segment.
func (c *Cache) ClearGuild(ctx context.Context, guildID string) (int, error) {
	return c.DeletePattern(ctx, "*:"+guildID+":*")
}

// SetAlertCooldown arms the suppression flag for (guild, kind).
func (c *Cache) SetAlertCooldown(ctx context.Context, guildID, kind string, ttl time.Duration) error {
	if err := c.client.Set(ctx, CooldownKey(guildID, kind), "1", ttl).Err(); err != nil {
		return fmt.Errorf("set cooldown %s/%s: %w", guildID, kind, err)
	}
	return nil
}

// AlertOnCooldown reports whether (guild, kind) is currently suppressed.
func (c *Cache) AlertOnCooldown(ctx context.Context, guildID, kind string) (bool, error) {
	return c.Exists(ctx, CooldownKey(guildID, kind))
}
