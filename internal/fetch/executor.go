// Package fetch runs the ordered request attempts for one page, classifying
// each failure as retryable or fatal, and caches the first good body.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/product-extractor/internal/cache"
	"github.com/maltedev/product-extractor/internal/hostpolicy"
	"github.com/maltedev/product-extractor/internal/models"
	"github.com/maltedev/product-extractor/internal/ratelimit"
	"github.com/maltedev/product-extractor/internal/variants"
)

// Defaults applied by NewExecutor to zero options.
const (
	DefaultAttemptTimeout = 8 * time.Second
	DefaultBaseDelay      = 500 * time.Millisecond
)

// Attempt outcomes as reported to the Recorder.
const (
	OutcomeSuccess         = "success"
	OutcomeRetryableStatus = "retryable_status"
	OutcomeFatalStatus     = "fatal_status"
	OutcomeEmpty           = "empty"
	OutcomeTimeout         = "timeout"
	OutcomeNetwork         = "network"
)

var retryableStatuses = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusProxyAuthRequired:   true,
	http.StatusRequestTimeout:      true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether another attempt may succeed after status.
func IsRetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// Doer issues HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Policy gates every URL before it is fetched.
type Policy interface {
	Check(ctx context.Context, u *url.URL) (hostpolicy.Decision, error)
}

// AttemptBuilder produces the ordered attempts for a URL.
type AttemptBuilder interface {
	Build(u *url.URL) []variants.Attempt
}

// Recorder receives fetch metrics.
type Recorder interface {
	AttemptOutcome(outcome string)
	CacheLookup(hit bool)
	ObserveFetch(d time.Duration)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options configures an Executor. Policy and Attempts are required.
type Options struct {
	Client         Doer
	Policy         Policy
	Attempts       AttemptBuilder
	Cache          cache.Store
	Limiter        ratelimit.Limiter
	AttemptTimeout time.Duration
	BaseDelay      time.Duration
	MaxBodyBytes   int64
	Sleep          SleepFunc
	Metrics        Recorder
	Logger         *slog.Logger
}

// Executor fetches a page through its attempt list.
type Executor struct {
	client         Doer
	policy         Policy
	attempts       AttemptBuilder
	cache          cache.Store
	limiter        ratelimit.Limiter
	attemptTimeout time.Duration
	baseDelay      time.Duration
	maxBodyBytes   int64
	sleep          SleepFunc
	metrics        Recorder
	logger         *slog.Logger
}

// Response is a fetched page. SourceURL is the attempt URL that succeeded;
// FinalURL is where its redirects ended and is the base for relative links.
type Response struct {
	HTML      string
	SourceURL string
	FinalURL  string
	Failures  []string
	FromCache bool
}

// ScrapeFailedError is returned when no attempt produced a page.
type ScrapeFailedError struct {
	URL      string
	Failures []string
	last     error
}

func (e *ScrapeFailedError) Error() string {
	return fmt.Sprintf("scrape failed for %s: %s", e.URL, strings.Join(e.Failures, "; "))
}

func (e *ScrapeFailedError) Unwrap() []error {
	if e.last == nil {
		return []error{models.ErrScrapeFailed}
	}
	return []error{models.ErrScrapeFailed, e.last}
}

// NewExecutor creates an Executor. Policy and Attempts are required.
func NewExecutor(opts Options) *Executor {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Metrics == nil {
		opts.Metrics = noopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Executor{
		client:         opts.Client,
		policy:         opts.Policy,
		attempts:       opts.Attempts,
		cache:          opts.Cache,
		limiter:        opts.Limiter,
		attemptTimeout: opts.AttemptTimeout,
		baseDelay:      opts.BaseDelay,
		maxBodyBytes:   opts.MaxBodyBytes,
		sleep:          opts.Sleep,
		metrics:        opts.Metrics,
		logger:         opts.Logger.With("component", "fetch_executor"),
	}
}

// Fetch returns the HTML for rawURL. Policy is checked on every call, cache
// hit or not. Policy failures are returned as-is and never retried.
func (e *Executor) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}
	canonical := target.String()

	if _, err := e.policy.Check(ctx, target); err != nil {
		return nil, err
	}

	if html, ok := e.cache.Get(ctx, canonical); ok {
		e.metrics.CacheLookup(true)
		e.logger.Debug("cache hit", "url", canonical)
		return &Response{HTML: html, SourceURL: canonical, FinalURL: canonical, FromCache: true}, nil
	}
	e.metrics.CacheLookup(false)

	start := time.Now()
	defer func() { e.metrics.ObserveFetch(time.Since(start)) }()

	attempts := e.attempts.Build(target)
	var (
		failures []string
		lastErr  error
	)

	for i, attempt := range attempts {
		if i > 0 {
			if err := e.sleep(ctx, e.baseDelay*time.Duration(i)); err != nil {
				return nil, err
			}
		}

		if _, err := e.policy.Check(ctx, attempt.URL); err != nil {
			return nil, err
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx, attempt.URL.Hostname()); err != nil {
				return nil, err
			}
		}

		res := e.try(ctx, attempt)
		e.metrics.AttemptOutcome(res.outcome)

		if res.outcome == OutcomeSuccess {
			e.cache.Set(ctx, canonical, res.html)
			e.logger.Info("page fetched",
				"url", canonical,
				"source_url", attempt.URL.String(),
				"attempt", i+1,
				"failures", len(failures))
			return &Response{
				HTML:      res.html,
				SourceURL: attempt.URL.String(),
				FinalURL:  res.finalURL,
				Failures:  failures,
			}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		failures = append(failures, fmt.Sprintf("attempt %d %s: %v", i+1, attempt.URL.String(), res.err))
		lastErr = res.err
		e.logger.Warn("attempt failed",
			"url", attempt.URL.String(),
			"attempt", i+1,
			"outcome", res.outcome,
			"error", res.err)

		if res.outcome == OutcomeFatalStatus {
			break
		}
	}

	if len(failures) == 0 {
		failures = append(failures, "no attempts available")
	}
	return nil, &ScrapeFailedError{URL: canonical, Failures: failures, last: lastErr}
}

type attemptResult struct {
	outcome  string
	html     string
	finalURL string
	err      error
}

func (e *Executor) try(ctx context.Context, attempt variants.Attempt) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	timedOut := func(err error) attemptResult {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return attemptResult{outcome: OutcomeTimeout, err: fmt.Errorf("%w after %s", models.ErrTimeout, e.attemptTimeout)}
		}
		return attemptResult{outcome: OutcomeNetwork, err: err}
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, attempt.URL.String(), http.NoBody)
	if err != nil {
		return attemptResult{outcome: OutcomeNetwork, err: fmt.Errorf("failed to build request: %w", err)}
	}
	for k, v := range attempt.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return timedOut(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("status %d", resp.StatusCode)
		if IsRetryableStatus(resp.StatusCode) {
			return attemptResult{outcome: OutcomeRetryableStatus, err: err}
		}
		return attemptResult{outcome: OutcomeFatalStatus, err: err}
	}

	html, err := readBody(resp, e.maxBodyBytes)
	if err != nil {
		return timedOut(err)
	}
	if strings.TrimSpace(html) == "" {
		return attemptResult{outcome: OutcomeEmpty, err: models.ErrEmptyResponse}
	}

	finalURL := attempt.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return attemptResult{outcome: OutcomeSuccess, html: html, finalURL: finalURL}
}

type noopRecorder struct{}

func (noopRecorder) AttemptOutcome(string)      {}
func (noopRecorder) CacheLookup(bool)           {}
func (noopRecorder) ObserveFetch(time.Duration) {}
