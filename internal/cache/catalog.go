package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
)

// CatalogCache caches public task listings in redis. It only ever serves the
// approved catalog: anything involving moderation state is recomputed from
// the store on every request. All mutations go through Invalidate.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

const listingPrefix = "catalog:list:"

// ListingKey derives a cache key from the serialized filter set.
func ListingKey(filters interface{}) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return listingPrefix + string(data), nil
}

func (c *CatalogCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached listing: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *CatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to read cached listing: %w", err)
	}

	return json.Unmarshal([]byte(data), dest)
}

// Invalidate drops every cached listing. Called after any task mutation so a
// moderation change is never served stale.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	keys, err := c.client.Keys(ctx, listingPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("failed to scan listing keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *CatalogCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return c.client.Ping(ctx).Err()
}
