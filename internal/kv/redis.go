package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyNamespace = "agrisense"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
}

// Redis stores values in Redis under the agrisense namespace, without expiry.
type Redis struct {
	store cmdable
	raw   *redis.Client
}

// NewRedis connects to addr and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	raw := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{store: raw, raw: raw}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if r.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	v, err := r.store.Get(ctx, namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if r.store == nil {
		return errors.New("redis client not initialized")
	}
	if err := r.store.Set(ctx, namespaced(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}

func namespaced(key string) string {
	return keyNamespace + ":" + key
}
