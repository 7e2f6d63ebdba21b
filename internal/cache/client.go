// Package cache provides a TTL-based read-through cache in front of the
// balance engine's read paths. The cache is an optimization, never a
// dependency: any backend failure is logged and swallowed, and the caller
// falls through to computing the fresh value.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Client.Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Client is the key-value backend contract. It is a Redis-compatible subset;
// implementations are injected into the Cache so tests can swap in a fake.
type Client interface {
	// Get returns the value at key, or ErrMiss if absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys in one batch.
	Del(ctx context.Context, keys ...string) error

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns all members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Expire sets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
