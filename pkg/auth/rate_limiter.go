package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter decides whether a keyed request may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter allows at most limit requests per key inside any window of windowSize
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed and records it when it is
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	requests := l.prune(l.windows[key], now)

	if len(requests) >= l.limit {
		l.windows[key] = requests
		return false, nil
	}

	l.windows[key] = append(requests, now)
	return true, nil
}

// Reset forgets all requests recorded for a key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	return nil
}

// Sweep drops keys whose window holds no recent requests
func (l *SlidingWindowLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, requests := range l.windows {
		if remaining := l.prune(requests, now); len(remaining) == 0 {
			delete(l.windows, key)
		} else {
			l.windows[key] = remaining
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is done
func (l *SlidingWindowLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

func (l *SlidingWindowLimiter) prune(requests []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-l.windowSize)
	kept := requests[:0]
	for _, reqTime := range requests {
		if reqTime.After(windowStart) {
			kept = append(kept, reqTime)
		}
	}
	return kept
}

// IPRateLimiter wraps a rate limiter for IP-based limiting
type IPRateLimiter struct {
	limiter RateLimiter
	limit   int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
		limit:   requestsPerMinute,
	}
}

// NewIPRateLimiterWith wraps an existing limiter
func NewIPRateLimiterWith(limiter RateLimiter, limit int) *IPRateLimiter {
	return &IPRateLimiter{limiter: limiter, limit: limit}
}

// Limit returns the configured number of requests per window
func (l *IPRateLimiter) Limit() int {
	return l.limit
}

// Allow checks if a request from an IP is allowed
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("ip:%s", ip))
}
