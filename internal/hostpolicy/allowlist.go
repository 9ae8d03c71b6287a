package hostpolicy

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// PatternSource supplies additional host patterns at runtime, e.g. from a database.
type PatternSource interface {
	HostPatterns(ctx context.Context) ([]string, error)
}

// MatchHost reports whether host matches pattern, case-insensitively.
//
//	"*"             matches every host
//	"*.example.com" matches example.com and any subdomain of it
//	"example.com"   matches exactly
func MatchHost(host, pattern string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	switch {
	case pattern == "":
		return false
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*."):
		base := pattern[2:]
		return host == base || strings.HasSuffix(host, "."+base)
	default:
		return host == pattern
	}
}

// ParsePatterns splits a comma-separated pattern list, dropping blanks.
func ParsePatterns(raw string) []string {
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Allowlist merges static patterns with a periodically refreshed dynamic set.
type Allowlist struct {
	static []string
	source PatternSource

	mu      sync.RWMutex
	dynamic []string
}

// NewAllowlist creates an allow-list. source may be nil.
func NewAllowlist(static []string, source PatternSource) *Allowlist {
	return &Allowlist{
		static: append([]string(nil), static...),
		source: source,
	}
}

// Allows reports whether host matches any static or dynamic pattern.
func (a *Allowlist) Allows(host string) bool {
	for _, p := range a.static {
		if MatchHost(host, p) {
			return true
		}
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.dynamic {
		if MatchHost(host, p) {
			return true
		}
	}
	return false
}

// Refresh replaces the dynamic patterns with the source's current set.
// On error the previous snapshot is kept.
func (a *Allowlist) Refresh(ctx context.Context) error {
	if a.source == nil {
		return nil
	}

	patterns, err := a.source.HostPatterns(ctx)
	if err != nil {
		return fmt.Errorf("failed to load host patterns: %w", err)
	}

	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}

	a.mu.Lock()
	a.dynamic = cleaned
	a.mu.Unlock()

	return nil
}

// Patterns returns the effective pattern list, static first.
func (a *Allowlist) Patterns() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.static)+len(a.dynamic))
	out = append(out, a.static...)
	return append(out, a.dynamic...)
}
