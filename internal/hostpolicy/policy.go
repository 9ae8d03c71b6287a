// Package hostpolicy gates every fetch: the host must match the allow-list and
// the path must not be disallowed by the origin's robots.txt.
package hostpolicy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/maltedev/product-extractor/internal/cache"
	"github.com/maltedev/product-extractor/internal/models"
)

// Robots decision lifetimes and fetch timeout.
const (
	MinRobotsTTL         = 60 * time.Second
	DefaultRobotsTTL     = 10 * time.Minute
	DefaultRobotsTimeout = 4 * time.Second
)

// Decision is the cached robots outcome for one origin. It is replaced, never mutated.
type Decision struct {
	Allowed         bool      `json:"allowed"`
	DisallowedPaths []string  `json:"disallowed_paths"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// DecisionCache stores decisions keyed by origin.
type DecisionCache interface {
	Get(origin string) (Decision, bool)
	Set(origin string, d Decision, ttl time.Duration)
}

// Doer issues HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RejectionRecorder is notified when a URL is refused.
type RejectionRecorder interface {
	PolicyRejected(kind string)
}

// Options configures a Policy. Every field is optional.
type Options struct {
	Allowlist     *Allowlist
	Client        Doer
	Cache         DecisionCache
	AgentName     string
	Headers       map[string]string
	RobotsTTL     time.Duration
	RobotsTimeout time.Duration
	Now           func() time.Time
	Metrics       RejectionRecorder
	Logger        *slog.Logger
}

// Policy answers whether a URL may be fetched.
type Policy struct {
	allowlist     *Allowlist
	client        Doer
	cache         DecisionCache
	agentName     string
	headers       map[string]string
	robotsTTL     time.Duration
	robotsTimeout time.Duration
	now           func() time.Time
	metrics       RejectionRecorder
	logger        *slog.Logger
}

// New creates a Policy. Zero options fall back to defaults; the robots TTL
// is floored at MinRobotsTTL.
func New(opts Options) *Policy {
	if opts.Allowlist == nil {
		opts.Allowlist = NewAllowlist([]string{"*"}, nil)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: DefaultRobotsTimeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewTTLMapWithClock[Decision](opts.Now)
	}
	if opts.RobotsTTL == 0 {
		opts.RobotsTTL = DefaultRobotsTTL
	}
	if opts.RobotsTTL < MinRobotsTTL {
		opts.RobotsTTL = MinRobotsTTL
	}
	if opts.RobotsTimeout <= 0 {
		opts.RobotsTimeout = DefaultRobotsTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Policy{
		allowlist:     opts.Allowlist,
		client:        opts.Client,
		cache:         opts.Cache,
		agentName:     opts.AgentName,
		headers:       opts.Headers,
		robotsTTL:     opts.RobotsTTL,
		robotsTimeout: opts.RobotsTimeout,
		now:           opts.Now,
		metrics:       opts.Metrics,
		logger:        opts.Logger.With("component", "host_policy"),
	}
}

// Check verifies u against the allow-list and robots.txt. It fails with
// models.ErrHostNotAllowed, models.ErrRobotsDisallowed, or ctx's error when
// the robots.txt fetch was cut short.
func (p *Policy) Check(ctx context.Context, u *url.URL) (Decision, error) {
	if !p.allowlist.Allows(u.Hostname()) {
		p.reject("host_not_allowed")
		p.logger.Info("host not allowed", "url", u.String())
		return Decision{Allowed: false}, fmt.Errorf("%w: %s", models.ErrHostNotAllowed, u.Hostname())
	}

	decision, err := p.decision(ctx, models.Origin(u))
	if err != nil {
		return Decision{}, err
	}

	path := u.EscapedPath()
	if PathDisallowed(path, decision.DisallowedPaths) {
		p.reject("robots_disallowed")
		p.logger.Info("path disallowed by robots.txt", "url", u.String())
		return Decision{
			Allowed:         false,
			DisallowedPaths: decision.DisallowedPaths,
			ExpiresAt:       decision.ExpiresAt,
		}, fmt.Errorf("%w: %s", models.ErrRobotsDisallowed, path)
	}

	return decision, nil
}

// decision returns the cached or freshly fetched robots decision for origin.
// A fetch cut short by the caller's context is not cached.
func (p *Policy) decision(ctx context.Context, origin string) (Decision, error) {
	if d, ok := p.cache.Get(origin); ok {
		return d, nil
	}

	paths, err := p.fetchRobots(ctx, origin)
	if err != nil && ctx.Err() != nil {
		return Decision{}, fmt.Errorf("robots.txt check for %s interrupted: %w", origin, ctx.Err())
	}
	if err != nil {
		// Unreachable or unreadable robots.txt: allow, and remember that.
		p.logger.Debug("robots.txt unavailable, allowing", "origin", origin, "error", err)
		paths = nil
	}

	d := Decision{
		Allowed:         true,
		DisallowedPaths: paths,
		ExpiresAt:       p.now().Add(p.robotsTTL),
	}
	p.cache.Set(origin, d, p.robotsTTL)
	return d, nil
}

func (p *Policy) reject(kind string) {
	if p.metrics != nil {
		p.metrics.PolicyRejected(kind)
	}
}

// Allowlist exposes the allow-list, e.g. for refreshing.
func (p *Policy) Allowlist() *Allowlist {
	return p.allowlist
}
