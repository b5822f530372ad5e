package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process KV with per-key expiry. Used by tests and
// single-node deployments without Redis.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ KV = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetEx writes value under key with the given TTL.
func (m *Memory) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: cp, expiresAt: m.now().Add(ttl)}
	return nil
}

// Get returns the value under key, or ErrNotFound for missing or expired
// keys. Expired entries are removed lazily.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, nil
}

// Del removes key.
func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the number of live entries, expired ones included until read.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
