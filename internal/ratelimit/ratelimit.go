package ratelimit

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces requests to one host.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// HostLimiter keeps one token bucket per host. A non-positive rate disables it.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter allows rps requests per second to each host with a burst of one.
func NewHostLimiter(rps float64) *HostLimiter {
	return &HostLimiter{
		limit:    rate.Limit(rps),
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may proceed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || h.limit <= 0 || host == "" {
		return nil
	}
	return h.limiterFor(host).Wait(ctx)
}

// SetRate changes the rate for all hosts, existing buckets included.
func (h *HostLimiter) SetRate(rps float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.limit = rate.Limit(rps)
	for _, l := range h.limiters {
		l.SetLimit(h.limit)
	}
}

// Hosts returns the number of hosts with a bucket.
func (h *HostLimiter) Hosts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	return l
}
