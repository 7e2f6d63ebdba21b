package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countingLoader(value map[string]float64) (func(context.Context) (map[string]float64, error), *int) {
	calls := 0
	return func(context.Context) (map[string]float64, error) {
		calls++
		return value, nil
	}, &calls
}

func TestFetchHitSkipsLoader(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())
	ctx := context.Background()
	loader, calls := countingLoader(map[string]float64{"bob": 12.5})

	first, err := Fetch(ctx, c, ScopeBalances, "alice", "", loader)
	if err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}
	second, err := Fetch(ctx, c, ScopeBalances, "alice", "", loader)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}

	if *calls != 1 {
		t.Errorf("loader called %d times, want 1", *calls)
	}
	if first["bob"] != 12.5 || second["bob"] != 12.5 {
		t.Errorf("values = %v / %v, want bob:12.5 from both", first, second)
	}
}

func TestFetchDistinctQueriesDistinctSlots(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())
	ctx := context.Background()
	loader, calls := countingLoader(map[string]float64{})

	if _, err := Fetch(ctx, c, ScopeBalances, "alice", "pair:bob", loader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := Fetch(ctx, c, ScopeBalances, "alice", "pair:carol", loader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if *calls != 2 {
		t.Errorf("loader called %d times, want 2 (different query hashes)", *calls)
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())
	ctx := context.Background()
	loader, calls := countingLoader(map[string]float64{"bob": 1})

	if _, err := Fetch(ctx, c, ScopeBalances, "alice", "", loader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	c.Invalidate(ctx, []string{"alice"}, []Scope{ScopeBalances})

	if _, err := Fetch(ctx, c, ScopeBalances, "alice", "", loader); err != nil {
		t.Fatalf("Fetch after invalidate failed: %v", err)
	}
	if *calls != 2 {
		t.Errorf("loader called %d times, want 2 (TTL had not expired, invalidation forced it)", *calls)
	}
}

func TestInvalidateScopedToUserAndScope(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())
	ctx := context.Background()
	aliceLoader, aliceCalls := countingLoader(map[string]float64{})
	bobLoader, bobCalls := countingLoader(map[string]float64{})

	if _, err := Fetch(ctx, c, ScopeBalances, "alice", "", aliceLoader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := Fetch(ctx, c, ScopeBalances, "bob", "", bobLoader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	c.Invalidate(ctx, []string{"alice"}, []Scope{ScopeBalances})

	if _, err := Fetch(ctx, c, ScopeBalances, "bob", "", bobLoader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if *bobCalls != 1 {
		t.Errorf("bob's loader called %d times, want 1 (other user's invalidation must not evict)", *bobCalls)
	}
	if *aliceCalls != 1 {
		t.Errorf("alice's loader called %d times, want 1", *aliceCalls)
	}
}

func TestFetchFailOpen(t *testing.T) {
	backend := NewMemoryClient()
	backend.ForceError(errors.New("connection refused"))
	c := New(backend, testLogger())
	loader, calls := countingLoader(map[string]float64{"bob": 7})

	got, err := Fetch(context.Background(), c, ScopeBalances, "alice", "", loader)
	if err != nil {
		t.Fatalf("Fetch must not surface cache errors, got: %v", err)
	}
	if got["bob"] != 7 {
		t.Errorf("value = %v, want bob:7 from loader", got)
	}
	if *calls != 1 {
		t.Errorf("loader called %d times, want 1", *calls)
	}
}

func TestInvalidateFailOpen(t *testing.T) {
	backend := NewMemoryClient()
	c := New(backend, testLogger())
	loader, _ := countingLoader(map[string]float64{})
	if _, err := Fetch(context.Background(), c, ScopeFriends, "alice", "", loader); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	backend.ForceError(errors.New("connection refused"))
	// Must not panic or propagate.
	c.Invalidate(context.Background(), []string{"alice"}, []Scope{ScopeFriends})
}

func TestFetchLoaderErrorPropagates(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())
	wantErr := errors.New("store down")

	_, err := Fetch(context.Background(), c, ScopeBalances, "alice", "", func(context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestKeyDeterministic(t *testing.T) {
	c := New(NewMemoryClient(), testLogger())

	k1 := c.Key(ScopeBalances, "alice", "pair:bob")
	k2 := c.Key(ScopeBalances, "alice", "pair:bob")
	if k1 != k2 {
		t.Errorf("identical queries produced different keys: %s vs %s", k1, k2)
	}
	if k3 := c.Key(ScopeBalances, "alice", "pair:carol"); k3 == k1 {
		t.Errorf("different queries produced the same key: %s", k1)
	}
}

func TestWithTTLOverride(t *testing.T) {
	c := New(NewMemoryClient(), testLogger(), WithTTL(ScopeActivity, 5*time.Second))
	if got := c.ttl(ScopeActivity); got != 5*time.Second {
		t.Errorf("ttl(activity) = %v, want 5s", got)
	}
	// Registry TTL stays above the longest data TTL.
	if got := c.registryTTL(); got <= c.ttl(ScopeFriends) {
		t.Errorf("registry TTL %v not longer than longest scope TTL %v", got, c.ttl(ScopeFriends))
	}
}
