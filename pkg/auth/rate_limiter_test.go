package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	limiter := NewSlidingWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	allowed, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "k")
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "k")
	assert.False(t, allowed, "third request inside the window is rejected")

	allowed, _ = limiter.Allow(ctx, "other")
	assert.True(t, allowed, "keys are limited independently")

	now = now.Add(61 * time.Second)
	allowed, _ = limiter.Allow(ctx, "k")
	assert.True(t, allowed, "window slides forward")

	require.NoError(t, limiter.Reset(ctx, "k"))
	allowed, _ = limiter.Allow(ctx, "k")
	assert.True(t, allowed)
}

func TestSlidingWindowLimiter_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	limiter := NewSlidingWindowLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(ctx, "a")
	now = now.Add(2 * time.Minute)
	_, _ = limiter.Allow(ctx, "b")

	limiter.Sweep()

	assert.NotContains(t, limiter.windows, "a")
	assert.Contains(t, limiter.windows, "b")
}

func TestIPRateLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewIPRateLimiter(1)

	assert.Equal(t, 1, limiter.Limit())

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, allowed)
}
