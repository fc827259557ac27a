package cache

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
)

// namespace keeps this service's keys apart on a shared redis
const namespace = "docvault:"

// scanBatch is the COUNT hint used when walking keys by prefix
const scanBatch = 200

// RedisCache implements the Cache interface on top of redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisCache connects to redis, retrying the initial ping with
// exponential backoff.
func NewRedisCache(cfg config.CacheConfig, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("The redis url is invalid").
			Mark(ierr.ErrValidation)
	}
	client := redis.NewClient(opts)

	attempt := 0
	ping := func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnw("redis ping failed", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.MaxRetries)
	if err := backoff.Retry(ping, policy); err != nil {
		_ = client.Close()
		return nil, ierr.WithError(err).
			WithHintf("Could not connect to redis after %d attempts", attempt).
			Mark(ierr.ErrCache)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	log.Infow("connected to redis", "addr", opts.Addr, "attempts", attempt)
	return &RedisCache{client: client, ttl: ttl, logger: log}, nil
}

// Get retrieves a value from the cache. Errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	span := startSpan(ctx, "redis", "get", key)

	data, err := c.client.Get(ctx, namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		recordHit(span, false)
		finishSpan(span, nil)
		return nil, false
	}
	if err != nil {
		finishSpan(span, err)
		c.logger.Warnw("redis get failed", "key", key, "error", err)
		return nil, false
	}
	recordHit(span, true)
	finishSpan(span, nil)
	return data, true
}

// Set adds a value to the cache with the specified expiration
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) {
	span := startSpan(ctx, "redis", "set", key)

	if expiration <= 0 {
		expiration = c.ttl
	}
	err := c.client.Set(ctx, namespace+key, value, expiration).Err()
	finishSpan(span, err)
	if err != nil {
		c.logger.Warnw("redis set failed", "key", key, "error", err)
	}
}

// Delete removes a key from the cache
func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, namespace+key).Err(); err != nil {
		c.logger.Warnw("redis delete failed", "key", key, "error", err)
	}
}

// DeleteByPrefix removes all keys with the given prefix
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	span := startSpan(ctx, "redis", "delete_by_prefix", prefix)

	iter := c.client.Scan(ctx, 0, namespace+prefix+"*", scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		finishSpan(span, err)
		c.logger.Warnw("redis scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		finishSpan(span, nil)
		return
	}
	err := c.client.Del(ctx, keys...).Err()
	finishSpan(span, err)
	if err != nil {
		c.logger.Warnw("redis delete failed", "prefix", prefix, "error", err)
	}
}

// Flush removes every key of this service
func (c *RedisCache) Flush(ctx context.Context) {
	c.DeleteByPrefix(ctx, "")
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return ierr.WithError(err).
			WithHint("Redis is not reachable").
			Mark(ierr.ErrCache)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
