package ports

import (
	"context"
	"time"
)

// Cache is a read-through accelerator. Callers must keep working, only
// slower, when every method fails. Get returns sentinel.ErrCacheMiss for an
// absent key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) bool
}
