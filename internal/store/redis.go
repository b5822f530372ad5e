package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a KV backed by a Redis instance. Safe for concurrent use.
type Redis struct {
	client *redis.Client
}

var _ KV = (*Redis)(nil)

// NewRedis connects to the Redis instance named by url
// ("redis://host:port/db") and verifies the connection with a ping.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

// SetEx writes value under key with the given TTL.
func (r *Redis) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Get returns the value under key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("store: get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return val, nil
}

// Del removes key. Missing keys are not an error.
func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: del %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
