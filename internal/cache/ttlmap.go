package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLMap is a concurrency-safe map whose entries expire lazily: an expired
// entry is removed when it is read, never by a background sweep.
type TTLMap[V any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[V]
	now     func() time.Time
}

// NewTTLMap creates an empty map using the wall clock.
func NewTTLMap[V any]() *TTLMap[V] {
	return NewTTLMapWithClock[V](time.Now)
}

// NewTTLMapWithClock creates an empty map reading time from now.
func NewTTLMapWithClock[V any](now func() time.Time) *TTLMap[V] {
	if now == nil {
		now = time.Now
	}
	return &TTLMap[V]{
		entries: make(map[string]ttlEntry[V]),
		now:     now,
	}
}

// Get returns the value for key if it has not expired.
func (m *TTLMap[V]) Get(key string) (V, bool) {
	var zero V

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have replaced the entry.
		if current, still := m.entries[key]; still && !m.now().Before(current.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return zero, false
	}

	return entry.value, true
}

// Set stores value for ttl. A non-positive ttl stores nothing.
func (m *TTLMap[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	m.entries[key] = ttlEntry[V]{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes key.
func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (m *TTLMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
