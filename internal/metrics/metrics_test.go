package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AttemptOutcome("success")
	m.AttemptOutcome("success")
	m.AttemptOutcome("timeout")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.PolicyRejected("robots_disallowed")
	m.Extraction("ok")
	m.ObserveFetch(300 * time.Millisecond)
	m.HTTPRequest("POST", "/api/v1/extract", 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PolicyRejections.WithLabelValues("robots_disallowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/extract", "200")))

	count, err := testutil.GatherAndCount(reg, "product_extractor_fetch_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AttemptOutcome("success")
		m.CacheLookup(true)
		m.ObserveFetch(time.Second)
		m.PolicyRejected("host_not_allowed")
		m.Extraction("ok")
		m.HTTPRequest("GET", "/health", 200)
	})
}
