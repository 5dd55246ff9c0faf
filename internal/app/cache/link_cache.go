package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "link:"

// LinkCache keeps short code -> original URL lookups off the database.
// Entries never go stale because links cannot be edited or deleted.
type LinkCache interface {
	GetURL(ctx context.Context, code string) (string, bool, error)
	SetURL(ctx context.Context, code, originalURL string) error
}

type redisLinkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLinkCache returns a LinkCache stored in Redis with the given TTL.
func NewRedisLinkCache(client *redis.Client, ttl time.Duration) LinkCache {
	return &redisLinkCache{client: client, ttl: ttl}
}

func (c *redisLinkCache) GetURL(ctx context.Context, code string) (string, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", code, err)
	}
	return val, true, nil
}

func (c *redisLinkCache) SetURL(ctx context.Context, code, originalURL string) error {
	if err := c.client.Set(ctx, keyPrefix+code, originalURL, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", code, err)
	}
	return nil
}
