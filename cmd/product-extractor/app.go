package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/product-extractor/internal/cache"
	"github.com/maltedev/product-extractor/internal/config"
	"github.com/maltedev/product-extractor/internal/database"
	"github.com/maltedev/product-extractor/internal/events"
	"github.com/maltedev/product-extractor/internal/extractor"
	"github.com/maltedev/product-extractor/internal/fetch"
	"github.com/maltedev/product-extractor/internal/hostpolicy"
	"github.com/maltedev/product-extractor/internal/logger"
	"github.com/maltedev/product-extractor/internal/metrics"
	"github.com/maltedev/product-extractor/internal/pipeline"
	"github.com/maltedev/product-extractor/internal/ratelimit"
	"github.com/maltedev/product-extractor/internal/variants"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	policy    *hostpolicy.Policy
	service   *pipeline.Service
	db        *database.DB
	redis     *redis.Client
	relay     *database.Relay
	refresher *hostpolicy.Refresher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	a := &app{cfg: cfg, logger: log}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if cfg.Cache.Backend == config.CacheBackendRedis || cfg.Events.Publish {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	var patterns hostpolicy.PatternSource
	if cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := a.db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		patterns = database.NewAllowedHostRepository(a.db)
	}

	allowlist := hostpolicy.NewAllowlist(cfg.Extractor.AllowedHosts, patterns)
	if patterns != nil {
		a.refresher = hostpolicy.NewRefresher(allowlist, cfg.Allowlist.RefreshInterval, log)
	}

	a.policy = hostpolicy.New(hostpolicy.Options{
		Allowlist:     allowlist,
		AgentName:     cfg.Extractor.AgentName,
		Headers:       variants.BaseHeaders(cfg.Extractor.AgentName),
		RobotsTTL:     cfg.Extractor.RobotsTTL,
		RobotsTimeout: cfg.Extractor.RobotsTimeout,
		Metrics:       a.metrics,
		Logger:        log,
	})

	opts := fetch.Options{
		Client:         &http.Client{},
		Policy:         a.policy,
		Attempts:       variants.NewGenerator(cfg.Extractor.ExtraUserAgents, cfg.Extractor.MaxAttempts, nil),
		Cache:          a.responseCache(),
		AttemptTimeout: cfg.Extractor.AttemptTimeout,
		BaseDelay:      cfg.Extractor.RetryBaseDelay,
		MaxBodyBytes:   cfg.Extractor.MaxBodyBytes,
		Metrics:        a.metrics,
		Logger:         log,
	}
	if cfg.Extractor.HostRPS > 0 {
		opts.Limiter = ratelimit.NewHostLimiter(cfg.Extractor.HostRPS)
	}
	executor := fetch.NewExecutor(opts)

	var publisher pipeline.Publisher
	if cfg.Events.Publish {
		publisher = events.NewPublisher(a.db, log)
		a.relay = database.NewRelay(database.NewOutboxRepository(a.db), a.redis, log, database.RelayConfig{
			PollInterval: cfg.Events.RelayPollInterval,
			BatchSize:    cfg.Events.RelayBatchSize,
		})
	}

	a.service = pipeline.NewService(executor, extractor.New(log), publisher, a.metrics, log)

	return a, nil
}

func (a *app) responseCache() cache.Store {
	if a.cfg.Cache.TTL <= 0 {
		return cache.Noop{}
	}
	if a.cfg.Cache.Backend == config.CacheBackendRedis {
		return cache.NewRedis(a.redis, a.cfg.Cache.TTL, a.logger)
	}
	return cache.NewMemory(a.cfg.Cache.TTL)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
