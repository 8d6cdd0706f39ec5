package server

import (
	"context"

	"doc-tracker/internal/cache"
	"doc-tracker/internal/config"
	"doc-tracker/internal/session"

	"go.uber.org/zap"
)

// Backends are the cache and session store picked by CACHE_BACKEND.
type Backends struct {
	Cache    cache.Cache
	Sessions session.Store
	close    func()
}

func (b *Backends) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewBackends connects the configured cache. Redis also holds sessions;
// memcached may evict entries, so sessions stay in process with it. An
// unreachable redis falls back to memory.
func NewBackends(ctx context.Context, cfg config.Config, log *zap.Logger) *Backends {
	switch cfg.CacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddress)
		if err != nil {
			log.Warn("redis not available, running with in-memory cache and sessions",
				zap.String("address", cfg.RedisAddress), zap.Error(err))
			break
		}
		log.Info("redis connected", zap.String("address", cfg.RedisAddress))
		return &Backends{
			Cache:    cache.NewRedisCache(client),
			Sessions: session.NewRedisStore(client),
			close:    func() { client.Close() },
		}
	case "memcached":
		log.Info("using memcached", zap.String("address", cfg.MemcachedAddr))
		return &Backends{
			Cache:    cache.NewMemcachedCache(cfg.MemcachedAddr),
			Sessions: session.NewMemoryStore(),
		}
	}

	return &Backends{
		Cache:    cache.NewMemoryCache(),
		Sessions: session.NewMemoryStore(),
	}
}
