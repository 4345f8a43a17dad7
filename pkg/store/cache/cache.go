package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. A miss is reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Settings struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New returns a Redis cache when an address is configured and an
// in-process cache otherwise.
func New(settings Settings) Cache {
	if settings.Addr == "" {
		return NewMemory()
	}
	return NewRedis(settings)
}
