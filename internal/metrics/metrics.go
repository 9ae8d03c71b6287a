package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "product_extractor"

// Metrics records pipeline counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	FetchAttempts    *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	PolicyRejections *prometheus.CounterVec
	Extractions      *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Fetch attempts by outcome.",
			},
			[]string{"outcome"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result.",
			},
			[]string{"result"},
		),
		PolicyRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_rejections_total",
				Help:      "URLs refused by host policy, by kind.",
			},
			[]string{"kind"},
		),
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Extraction calls by final status.",
			},
			[]string{"status"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Wall time spent fetching a page across all attempts.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) AttemptOutcome(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) PolicyRejected(kind string) {
	if m == nil {
		return
	}
	m.PolicyRejections.WithLabelValues(kind).Inc()
}

func (m *Metrics) Extraction(status string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(status).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
