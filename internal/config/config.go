// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/product-extractor/internal/database"
	"github.com/maltedev/product-extractor/internal/hostpolicy"
	"github.com/maltedev/product-extractor/internal/variants"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Database  database.Config
	Allowlist AllowlistConfig
	Events    EventsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ExtractorConfig struct {
	AttemptTimeout  time.Duration
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RobotsTTL       time.Duration
	RobotsTimeout   time.Duration
	AllowedHosts    []string
	ExtraUserAgents []string
	AgentName       string
	MaxBodyBytes    int64
	HostRPS         float64
}

type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AllowlistConfig struct {
	RefreshInterval time.Duration
}

type EventsConfig struct {
	Publish           bool
	RelayPollInterval time.Duration
	RelayBatchSize    int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8085),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Extractor: ExtractorConfig{
			AttemptTimeout:  getMillisOrDefault("EXTRACTOR_ATTEMPT_TIMEOUT_MS", 8*time.Second),
			MaxAttempts:     getIntOrDefault("EXTRACTOR_MAX_ATTEMPTS", variants.DefaultMaxAttempts),
			RetryBaseDelay:  getMillisOrDefault("EXTRACTOR_RETRY_BASE_DELAY_MS", 500*time.Millisecond),
			RobotsTTL:       getMillisOrDefault("EXTRACTOR_ROBOTS_TTL_MS", hostpolicy.DefaultRobotsTTL),
			RobotsTimeout:   getMillisOrDefault("EXTRACTOR_ROBOTS_TIMEOUT_MS", hostpolicy.DefaultRobotsTimeout),
			AllowedHosts:    hostpolicy.ParsePatterns(getEnvOrDefault("EXTRACTOR_ALLOWED_HOSTS", "*")),
			ExtraUserAgents: variants.ParseUserAgents(os.Getenv("EXTRACTOR_EXTRA_USER_AGENTS")),
			AgentName:       getEnvOrDefault("EXTRACTOR_AGENT_NAME", "ProductExtractorBot"),
			MaxBodyBytes:    int64(getIntOrDefault("EXTRACTOR_MAX_BODY_BYTES", 5<<20)),
			HostRPS:         getFloatOrDefault("EXTRACTOR_HOST_RPS", 0),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(getEnvOrDefault("CACHE_BACKEND", CacheBackendMemory)),
			TTL:     getMillisOrDefault("EXTRACTOR_CACHE_TTL_MS", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Database: database.Config{
			Host:     os.Getenv("DB_HOST"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Database: getEnvOrDefault("DB_NAME", "product_extractor"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Allowlist: AllowlistConfig{
			RefreshInterval: getDurationOrDefault("ALLOWLIST_REFRESH_INTERVAL", time.Minute),
		},
		Events: EventsConfig{
			Publish:           getBoolOrDefault("PUBLISH_EVENTS", false),
			RelayPollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			RelayBatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if cfg.Extractor.RobotsTTL > 0 && cfg.Extractor.RobotsTTL < hostpolicy.MinRobotsTTL {
		cfg.Extractor.RobotsTTL = hostpolicy.MinRobotsTTL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Extractor.MaxAttempts < 1 {
		return fmt.Errorf("EXTRACTOR_MAX_ATTEMPTS must be at least 1")
	}
	if c.Extractor.AttemptTimeout <= 0 {
		return fmt.Errorf("EXTRACTOR_ATTEMPT_TIMEOUT_MS must be positive")
	}
	if c.Extractor.RobotsTimeout <= 0 {
		return fmt.Errorf("EXTRACTOR_ROBOTS_TIMEOUT_MS must be positive")
	}
	if c.Extractor.RetryBaseDelay < 0 {
		return fmt.Errorf("EXTRACTOR_RETRY_BASE_DELAY_MS cannot be negative")
	}
	if c.Extractor.RobotsTTL < 0 {
		return fmt.Errorf("EXTRACTOR_ROBOTS_TTL_MS cannot be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("EXTRACTOR_CACHE_TTL_MS cannot be negative")
	}
	if c.Extractor.HostRPS < 0 {
		return fmt.Errorf("EXTRACTOR_HOST_RPS cannot be negative")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Allowlist.RefreshInterval <= 0 {
		return fmt.Errorf("ALLOWLIST_REFRESH_INTERVAL must be positive")
	}
	if c.Events.Publish && !c.Database.Enabled() {
		return fmt.Errorf("PUBLISH_EVENTS requires DB_HOST")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getMillisOrDefault reads an integer number of milliseconds.
func getMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
