package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the single-process fallback. Values are stored as JSON so
// callers get copies, the same as with the networked backends.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store.Set(key, raw, ttl)
	return nil
}

func (c *MemoryCache) GetVersion(_ context.Context, key string) int64 {
	v, ok := c.store.Get(key)
	if !ok {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func (c *MemoryCache) IncrementVersion(_ context.Context, key string) error {
	if _, err := c.store.IncrementInt64(key, 1); err == nil {
		return nil
	}
	if err := c.store.Add(key, int64(1), gocache.NoExpiration); err != nil {
		// lost the race to another creator
		_, err = c.store.IncrementInt64(key, 1)
		return err
	}
	return nil
}
