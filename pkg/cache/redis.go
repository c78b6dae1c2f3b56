package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "hura:"

// Redis implements Cache on a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the Redis server at redisURL and verifies the
// connection with a short ping.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client), nil
}

// NewRedisWithClient wraps an existing Redis client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: keyPrefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

// Fetch is fail-open: if Redis itself errors the populate function runs and
// its result is returned uncached.
func (r *Redis) Fetch(ctx context.Context, key string, ttl time.Duration, fn PopulateFunc) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == nil {
		return val, nil
	}

	fresh, ferr := fn(ctx)
	if ferr != nil {
		return nil, ferr
	}

	if errors.Is(err, redis.Nil) {
		// Best effort: a failed write never fails the read path.
		r.client.Set(ctx, r.key(key), fresh, ttl)
	}
	return fresh, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (r *Redis) Close() error { return r.client.Close() }
