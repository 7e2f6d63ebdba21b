package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/nikhil/splitledger/internal/metrics"
)

// Scope identifies a logical cache domain with its own TTL. Invalidation
// operates per (scope, user) pair.
type Scope string

const (
	ScopeFriends     Scope = "friends"
	ScopeGroups      Scope = "groups"
	ScopeExpenses    Scope = "expenses"
	ScopeSettlements Scope = "settlements"
	ScopeActivity    Scope = "activity"
	ScopeBalances    Scope = "balances"
)

// DefaultTTLs holds the per-scope cache lifetimes: short enough that
// staleness after a write is tolerable, long enough to absorb bursty reads.
var DefaultTTLs = map[Scope]time.Duration{
	ScopeFriends:     2 * time.Minute,
	ScopeGroups:      2 * time.Minute,
	ScopeExpenses:    time.Minute,
	ScopeSettlements: time.Minute,
	ScopeActivity:    30 * time.Second,
	ScopeBalances:    45 * time.Second,
}

// registrySlack keeps registry sets alive slightly longer than the data they
// index, so they self-expire if never explicitly invalidated.
const registrySlack = 30 * time.Second

const defaultNamespace = "splitledger"

// Cache is a read-through cache keyed by (scope, user, query hash). It holds
// a single injected Client handle; there is no package-level backend state.
type Cache struct {
	client    Client
	logger    *slog.Logger
	namespace string
	ttls      map[Scope]time.Duration
}

// Option customizes a Cache.
type Option func(*Cache)

// WithNamespace overrides the key namespace prefix.
func WithNamespace(ns string) Option {
	return func(c *Cache) { c.namespace = ns }
}

// WithTTL overrides the TTL for one scope.
func WithTTL(scope Scope, ttl time.Duration) Option {
	return func(c *Cache) { c.ttls[scope] = ttl }
}

// New creates a Cache on top of the given backend client.
func New(client Client, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		client:    client,
		logger:    logger,
		namespace: defaultNamespace,
		ttls:      make(map[Scope]time.Duration, len(DefaultTTLs)),
	}
	for scope, ttl := range DefaultTTLs {
		c.ttls[scope] = ttl
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the deterministic slot for a logical query, so identical queries
// always hit the same entry.
func (c *Cache) Key(scope Scope, userID, extra string) string {
	h := fnv.New64a()
	h.Write([]byte(extra))
	return fmt.Sprintf("%s:%s:user:%s:%x", c.namespace, scope, userID, h.Sum64())
}

func (c *Cache) registryKey(scope Scope, userID string) string {
	return fmt.Sprintf("%s:registry:%s:user:%s", c.namespace, scope, userID)
}

func (c *Cache) ttl(scope Scope) time.Duration {
	if ttl, ok := c.ttls[scope]; ok {
		return ttl
	}
	return time.Minute
}

func (c *Cache) registryTTL() time.Duration {
	var max time.Duration
	for _, ttl := range c.ttls {
		if ttl > max {
			max = ttl
		}
	}
	return max + registrySlack
}

// Fetch serves a logical query through the cache. On a hit the cached JSON is
// deserialized and returned without invoking loader; on a miss (or any cache
// failure) loader computes the fresh value, which is then written back
// best-effort along with its registry entry. Cache errors never propagate.
func Fetch[T any](ctx context.Context, c *Cache, scope Scope, userID, extra string, loader func(context.Context) (T, error)) (T, error) {
	key := c.Key(scope, userID, extra)

	raw, err := c.client.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal([]byte(raw), &v); uerr == nil {
			metrics.CacheHits.WithLabelValues(string(scope)).Inc()
			return v, nil
		}
		// Corrupt entry: recompute below.
		c.logger.Warn("cache entry unreadable, recomputing", "key", key)
	case !errors.Is(err, ErrMiss):
		metrics.CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn("cache get failed, falling through", "key", key, "error", err)
	}

	metrics.CacheMisses.WithLabelValues(string(scope)).Inc()
	v, err := loader(ctx)
	if err != nil {
		return v, err
	}

	c.store(ctx, scope, userID, key, v)
	return v, nil
}

// store writes a computed value and registers its key for bulk invalidation.
// Every step is best-effort.
func (c *Cache) store(ctx context.Context, scope Scope, userID, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache value not serializable", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, string(raw), c.ttl(scope)); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn("cache set failed", "key", key, "error", err)
		return
	}

	registry := c.registryKey(scope, userID)
	if err := c.client.SAdd(ctx, registry, key); err != nil {
		metrics.CacheErrors.WithLabelValues("sadd").Inc()
		c.logger.Warn("cache registry add failed", "key", registry, "error", err)
		return
	}
	if err := c.client.Expire(ctx, registry, c.registryTTL()); err != nil {
		metrics.CacheErrors.WithLabelValues("expire").Inc()
		c.logger.Warn("cache registry expire failed", "key", registry, "error", err)
	}
}

// Invalidate drops every cached entry for the given users and scopes without
// scanning the keyspace: one registry read per user-scope pair, then a single
// batched delete of all member keys plus the registries themselves. Errors
// are logged and swallowed; the worst case is a stale entry that the TTL
// expires shortly after.
func (c *Cache) Invalidate(ctx context.Context, userIDs []string, scopes []Scope) {
	var doomed []string
	for _, userID := range userIDs {
		for _, scope := range scopes {
			registry := c.registryKey(scope, userID)
			members, err := c.client.SMembers(ctx, registry)
			if err != nil {
				metrics.CacheErrors.WithLabelValues("smembers").Inc()
				c.logger.Warn("cache registry read failed", "key", registry, "error", err)
				continue
			}
			doomed = append(doomed, members...)
			doomed = append(doomed, registry)
		}
	}
	if len(doomed) == 0 {
		return
	}
	if err := c.client.Del(ctx, doomed...); err != nil {
		metrics.CacheErrors.WithLabelValues("del").Inc()
		c.logger.Warn("cache invalidation delete failed", "keys", len(doomed), "error", err)
	}
}
