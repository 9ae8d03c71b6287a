package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 8*time.Second, cfg.Extractor.AttemptTimeout)
	assert.Equal(t, 4, cfg.Extractor.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Extractor.RetryBaseDelay)
	assert.Equal(t, 10*time.Minute, cfg.Extractor.RobotsTTL)
	assert.Equal(t, 4*time.Second, cfg.Extractor.RobotsTimeout)
	assert.Equal(t, []string{"*"}, cfg.Extractor.AllowedHosts)
	assert.Equal(t, "ProductExtractorBot", cfg.Extractor.AgentName)
	assert.Equal(t, int64(5<<20), cfg.Extractor.MaxBodyBytes)
	assert.Zero(t, cfg.Extractor.HostRPS)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Events.Publish)
	assert.Equal(t, time.Minute, cfg.Allowlist.RefreshInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("EXTRACTOR_ATTEMPT_TIMEOUT_MS", "2500")
	t.Setenv("EXTRACTOR_MAX_ATTEMPTS", "6")
	t.Setenv("EXTRACTOR_CACHE_TTL_MS", "0")
	t.Setenv("EXTRACTOR_ROBOTS_TTL_MS", "1000")
	t.Setenv("EXTRACTOR_ALLOWED_HOSTS", "shop.example.com, *.store.example")
	t.Setenv("EXTRACTOR_EXTRA_USER_AGENTS", "AgentA/1.0|AgentB/2.0")
	t.Setenv("EXTRACTOR_HOST_RPS", "0.5")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PUBLISH_EVENTS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.Extractor.AttemptTimeout)
	assert.Equal(t, 6, cfg.Extractor.MaxAttempts)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, time.Minute, cfg.Extractor.RobotsTTL, "robots ttl is floored")
	assert.Equal(t, []string{"shop.example.com", "*.store.example"}, cfg.Extractor.AllowedHosts)
	assert.Equal(t, []string{"AgentA/1.0", "AgentB/2.0"}, cfg.Extractor.ExtraUserAgents)
	assert.Equal(t, 0.5, cfg.Extractor.HostRPS)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.Events.Publish)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"zero attempts", map[string]string{"EXTRACTOR_MAX_ATTEMPTS": "0"}, "EXTRACTOR_MAX_ATTEMPTS"},
		{"zero timeout", map[string]string{"EXTRACTOR_ATTEMPT_TIMEOUT_MS": "0"}, "EXTRACTOR_ATTEMPT_TIMEOUT_MS"},
		{"negative cache ttl", map[string]string{"EXTRACTOR_CACHE_TTL_MS": "-1"}, "EXTRACTOR_CACHE_TTL_MS"},
		{"unknown backend", map[string]string{"CACHE_BACKEND": "memcached"}, "CACHE_BACKEND"},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "invalid server port"},
		{"publish without db", map[string]string{"PUBLISH_EVENTS": "true"}, "PUBLISH_EVENTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
