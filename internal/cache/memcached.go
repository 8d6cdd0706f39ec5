package cache

import (
	"context"
	"encoding/json"
	defError "errors"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

type MemcachedCache struct {
	client *memcache.Client
}

func NewMemcachedCache(server string) *MemcachedCache {
	return &MemcachedCache{client: memcache.New(server)}
}

func (c *MemcachedCache) Get(_ context.Context, key string, dest any) (bool, error) {
	item, err := c.client.Get(key)
	if defError.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(item.Value, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemcachedCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{Key: key, Value: raw, Expiration: int32(ttl.Seconds())})
}

func (c *MemcachedCache) GetVersion(_ context.Context, key string) int64 {
	item, err := c.client.Get(key)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(string(item.Value), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion creates the counter on first use. Increment only works on
// existing keys, and Add loses to a concurrent creator, hence the retry.
func (c *MemcachedCache) IncrementVersion(_ context.Context, key string) error {
	_, err := c.client.Increment(key, 1)
	if !defError.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	err = c.client.Add(&memcache.Item{Key: key, Value: []byte("1")})
	if defError.Is(err, memcache.ErrNotStored) {
		_, err = c.client.Increment(key, 1)
	}
	return err
}
