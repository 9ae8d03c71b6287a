// Package cache holds the short-lived response cache used by the fetch
// executor and the generic TTL map backing the host policy decisions.
package cache

import (
	"context"
	"time"
)

// Store maps a canonical URL to the raw HTML fetched for it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, html string)
}

// Memory is an in-process Store. A zero TTL disables it.
type Memory struct {
	entries *TTLMap[string]
	ttl     time.Duration
}

// NewMemory creates an in-memory response cache.
func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

// NewMemoryWithClock creates an in-memory response cache with a custom clock.
func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		entries: NewTTLMapWithClock[string](now),
		ttl:     ttl,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	if m.ttl <= 0 {
		return "", false
	}
	return m.entries.Get(key)
}

func (m *Memory) Set(_ context.Context, key, html string) {
	m.entries.Set(key, html, m.ttl)
}

// Len returns the number of retained entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool) { return "", false }
func (Noop) Set(context.Context, string, string)        {}
