// Package cache holds read-through caches keyed by versioned keys: writers
// bump a version counter and readers fold the current version into the key,
// so stale entries are simply never read again.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetVersion(ctx context.Context, key string) int64
	IncrementVersion(ctx context.Context, key string) error
}
