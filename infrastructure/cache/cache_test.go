package cache

import (
	"context"
	"testing"
	"time"

	"evotree-backend/application/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ ports.GenerationCache = (*MemoryCache)(nil)
	_ ports.GenerationCache = (*RedisCache)(nil)
	_ ports.GenerationCache = NoopCache{}
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }
	defer c.Close()

	t.Run("Should miss unknown key", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "tree:1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should return a copy of stored bytes", func(t *testing.T) {
		value := []byte(`{"id":1}`)
		require.NoError(t, c.Set(ctx, "tree:1", value, time.Minute))
		value[0] = 'X'

		got, ok, err := c.Get(ctx, "tree:1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"id":1}`, string(got))
	})

	t.Run("Should expire after ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "tree:2", []byte("x"), time.Minute))
		now = now.Add(time.Minute)

		_, ok, err := c.Get(ctx, "tree:2")
		require.NoError(t, err)
		assert.False(t, ok)

		c.removeExpired()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Should ignore non-positive ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "tree:3", []byte("x"), 0))
		_, ok, _ := c.Get(ctx, "tree:3")
		assert.False(t, ok)
	})

	t.Run("Should delete and clear", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "tree:4", []byte("x"), time.Minute))
		require.NoError(t, c.Set(ctx, "tree:5", []byte("y"), time.Minute))

		require.NoError(t, c.Delete(ctx, "tree:4"))
		_, ok, _ := c.Get(ctx, "tree:4")
		assert.False(t, ok)

		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Should honour cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := c.Get(cancelled, "tree:1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, "test:", zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	_, ok, err := c.Get(ctx, "tree:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "tree:1", []byte(`{"id":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "tree:2", []byte(`{"id":2}`), time.Minute))
	assert.True(t, mr.Exists("test:tree:1"))

	got, ok, err := c.Get(ctx, "tree:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(got))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "tree:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	require.NoError(t, mr.Set("other:key", "keep"))
	for _, key := range []string{"tree:1", "tree:2", "tree:3"} {
		require.NoError(t, c.Set(ctx, key, []byte("x"), time.Minute))
	}

	require.NoError(t, c.Clear(ctx))

	assert.False(t, mr.Exists("test:tree:1"))
	assert.False(t, mr.Exists("test:tree:3"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_UnavailableServerReturnsErrors(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)
	mr.Close()

	_, _, err := c.Get(ctx, "tree:1")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "tree:1", []byte("x"), time.Minute))
	assert.Error(t, c.Clear(ctx))
}

func TestGenerationCache_DropsWritesReadBeforeClear(t *testing.T) {
	memory := NewMemoryCache(0)
	t.Cleanup(func() { _ = memory.Close() })
	redisCache, _ := newTestRedisCache(t)

	caches := map[string]ports.GenerationCache{
		"memory": memory,
		"redis":  redisCache,
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			gen, err := c.Generation(ctx)
			require.NoError(t, err)

			stored, err := c.SetIfGeneration(ctx, gen, "tree:1", []byte("fresh"), time.Minute)
			require.NoError(t, err)
			assert.True(t, stored)

			// a build that read the generation before this Clear is stale
			require.NoError(t, c.Clear(ctx))

			stored, err = c.SetIfGeneration(ctx, gen, "tree:1", []byte("stale"), time.Minute)
			require.NoError(t, err)
			assert.False(t, stored)
			_, ok, err := c.Get(ctx, "tree:1")
			require.NoError(t, err)
			assert.False(t, ok)

			next, err := c.Generation(ctx)
			require.NoError(t, err)
			assert.Equal(t, gen+1, next)

			stored, err = c.SetIfGeneration(ctx, next, "tree:1", []byte("rebuilt"), time.Minute)
			require.NoError(t, err)
			assert.True(t, stored)
			got, ok, err := c.Get(ctx, "tree:1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "rebuilt", string(got))
		})
	}
}

func TestRedisCache_GenerationKeySurvivesClear(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.Clear(ctx))

	assert.True(t, mr.Exists("generation:test:"))
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
}
