package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const scanBatch = 100

// RedisConfig holds the connection settings for the redis cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisCache stores entries in redis under a key prefix. Every call goes
// through a circuit breaker so an unreachable server fails fast.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	genKey  string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRedisCache connects a redis client with the given settings.
func NewRedisCache(cfg RedisConfig, logger *zap.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient(client, cfg.Prefix, logger)
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "evotree:"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &RedisCache{
		client:  client,
		prefix:  prefix,
		genKey:  "generation:" + prefix,
		breaker: breaker,
		logger:  logger,
	}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a value from redis
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, c.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	data, _ := result.([]byte)
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a value in redis with an expiry of ttl
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, c.key(key), value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from redis
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, c.key(key)).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Clear advances the generation, then removes every key under the cache
// prefix. The generation key lives outside the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.client.Incr(ctx, c.genKey).Err(); err != nil {
			return nil, err
		}

		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return nil, err
				}
			}
			if next == 0 {
				return nil, nil
			}
			cursor = next
		}
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Generation returns the number of Clear calls recorded in redis
func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		gen, err := c.client.Get(ctx, c.genKey).Uint64()
		if errors.Is(err, redis.Nil) {
			return uint64(0), nil
		}
		return gen, err
	})
	if err != nil {
		return 0, fmt.Errorf("redis generation: %w", err)
	}
	return result.(uint64), nil
}

// SetIfGeneration stores a value in a transaction that watches the
// generation key, so a concurrent Clear aborts it.
func (c *RedisCache) SetIfGeneration(ctx context.Context, gen uint64, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		stored := false
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, c.genKey).Uint64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != gen {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, c.key(key), value, ttl)
				return nil
			})
			if err == nil {
				stored = true
			}
			return err
		}, c.genKey)
		if errors.Is(err, redis.TxFailedErr) {
			return false, nil
		}
		return stored, err
	})
	if err != nil {
		return false, fmt.Errorf("redis set %s: %w", key, err)
	}
	return result.(bool), nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
