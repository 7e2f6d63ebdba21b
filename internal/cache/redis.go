package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ensure RedisClient implements Client
var _ Client = (*RedisClient)(nil)

// RedisClient adapts a go-redis client to the Client interface. A single
// long-lived instance is constructed at startup and handed to the Cache;
// there is no package-level connection state.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects to the given Redis address.
func NewRedisClient(addr, password string, db int) *RedisClient {
	return &RedisClient{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity, for startup and health probes.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisClient) Close() error {
	return r.rdb.Close()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *RedisClient) SAdd(ctx context.Context, key string, members ...string) error {
	vals := make([]any, len(members))
	for i, m := range members {
		vals[i] = m
	}
	return r.rdb.SAdd(ctx, key, vals...).Err()
}

func (r *RedisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.rdb.SMembers(ctx, key).Result()
}

func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.rdb.Expire(ctx, key, ttl).Err()
}
