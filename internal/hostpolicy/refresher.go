package hostpolicy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads an Allowlist's dynamic patterns on a fixed interval.
type Refresher struct {
	allowlist *Allowlist
	interval  time.Duration
	timeout   time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewRefresher(allowlist *Allowlist, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		allowlist: allowlist,
		interval:  interval,
		timeout:   10 * time.Second,
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:    logger.With("component", "allowlist_refresher"),
	}
}

// Start loads the patterns once, then schedules periodic reloads.
// A failed initial load is logged and the static patterns stay in effect.
func (r *Refresher) Start(ctx context.Context) error {
	r.refresh(ctx)

	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, func() { r.refresh(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule allow-list refresh: %w", err)
	}

	r.cron.Start()
	r.logger.Info("allow-list refresher started", "interval", r.interval)
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("allow-list refresher stopped")
}

func (r *Refresher) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.allowlist.Refresh(ctx); err != nil {
		r.logger.Error("allow-list refresh failed", "error", err)
		return
	}
	r.logger.Debug("allow-list refreshed", "patterns", len(r.allowlist.Patterns()))
}
