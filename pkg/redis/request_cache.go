package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss reports that the key is absent or already expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a JSON view cache over the shared client. It is advisory only:
// callers must treat every error as a miss and fall through to the store.
type Cache struct {
	prefix string
	ttl    time.Duration
}

var (
	setCacheValue = Set
	getCacheValue = Get
	delCacheValue = Del
)

// NewCache creates a cache namespace with a fixed TTL.
func NewCache(prefix string, ttl time.Duration) *Cache {
	return &Cache{prefix: prefix, ttl: ttl}
}

// Save marshals v and stores it under the namespaced key.
func (c *Cache) Save(ctx context.Context, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return setCacheValue(ctx, c.prefix+id, data, c.ttl)
}

// Load unmarshals the cached value into dest. Returns ErrCacheMiss when the
// key does not exist.
func (c *Cache) Load(ctx context.Context, id string, dest interface{}) error {
	raw, err := getCacheValue(ctx, c.prefix+id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// Invalidate removes the cached value.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return delCacheValue(ctx, c.prefix+id)
}
