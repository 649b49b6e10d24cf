package cache

import (
	"context"
	"time"
)

// NoopCache never stores anything. Used when CACHE_BACKEND=none.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

func (NoopCache) Clear(ctx context.Context) error { return nil }

func (NoopCache) Generation(ctx context.Context) (uint64, error) { return 0, nil }

func (NoopCache) SetIfGeneration(ctx context.Context, gen uint64, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, nil
}
