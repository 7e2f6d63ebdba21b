package cache

import (
	"context"
	"sync"
	"time"
)

// Ensure MemoryClient implements Client
var _ Client = (*MemoryClient)(nil)

// MemoryClient is an in-process implementation of Client. It serves as the
// default backend when no Redis address is configured and as the fake for
// cache tests: ForceError makes every operation fail so the fail-open policy
// can be exercised.
type MemoryClient struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	sets    map[string]map[string]struct{}
	setTTLs map[string]time.Time
	err     error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryClient creates an empty in-memory cache backend.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
		setTTLs: make(map[string]time.Time),
	}
}

// ForceError makes all subsequent operations return err. Pass nil to restore
// normal behaviour.
func (m *MemoryClient) ForceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryClient) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.entries, key)
		delete(m.sets, key)
		delete(m.setTTLs, key)
	}
	return nil
}

func (m *MemoryClient) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MemoryClient) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if exp, ok := m.setTTLs[key]; ok && time.Now().After(exp) {
		delete(m.sets, key)
		delete(m.setTTLs, key)
		return nil, nil
	}
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryClient) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sets[key]; ok {
		m.setTTLs[key] = time.Now().Add(ttl)
		return nil
	}
	if e, ok := m.entries[key]; ok {
		e.expiresAt = time.Now().Add(ttl)
		m.entries[key] = e
	}
	return nil
}
