package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relaySource = "product-extractor"

// RedisClient is the subset of go-redis the relay uses (for testing).
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// OutboxRepo is the outbox access the relay needs (for testing).
type OutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	CountByStatus(ctx context.Context, statuses ...string) (int64, error)
}

// Relay moves outbox events to Redis streams.
type Relay struct {
	redis     RedisClient
	outbox    OutboxRepo
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func NewRelay(outbox OutboxRepo, redisClient RedisClient, logger *slog.Logger, config RelayConfig) *Relay {
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		redis:     redisClient,
		outbox:    outbox,
		logger:    logger.With("component", "relay"),
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
	}
}

// Start polls the outbox until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting relay",
		"interval", r.interval,
		"batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.processEvents(ctx); err != nil {
		r.logger.Error("failed to process events on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.processEvents(ctx); err != nil {
				r.logger.Error("failed to process events", "error", err)
			}
		}
	}
}

func (r *Relay) processEvents(ctx context.Context) error {
	events, err := r.outbox.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	r.logger.Debug("processing events", "count", len(events))

	for _, event := range events {
		if err := r.processEvent(ctx, event); err != nil {
			r.logger.Error("failed to process event",
				"event_id", event.ID,
				"aggregate_id", event.AggregateID,
				"error", err)
		}
	}

	return nil
}

func (r *Relay) processEvent(ctx context.Context, event *OutboxEvent) error {
	if err := r.publishToRedis(ctx, event); err != nil {
		if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
			r.logger.Error("failed to mark event as failed",
				"event_id", event.ID,
				"error", markErr)
		}
		if FailureStatus(event.RetryCount+1) == OutboxStatusDeadLetter {
			r.logger.Warn("event moved to dead letter",
				"event_id", event.ID,
				"aggregate_id", event.AggregateID)
		}
		return err
	}

	if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
		r.logger.Error("failed to mark event as processed",
			"event_id", event.ID,
			"error", err)
		return err
	}

	r.logger.Info("event relayed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"aggregate_id", event.AggregateID,
		"target_stream", event.TargetStream)

	return nil
}

// streamEnvelope is the JSON stored in the stream entry's data field.
type streamEnvelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     string          `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      streamMetadata  `json:"metadata"`
}

type streamMetadata struct {
	Source       string `json:"source"`
	OutboxID     string `json:"outbox_id"`
	RetryCount   int    `json:"retry_count"`
	TargetStream string `json:"target_stream"`
}

func (r *Relay) publishToRedis(ctx context.Context, event *OutboxEvent) error {
	if !json.Valid(event.Payload) {
		return fmt.Errorf("invalid payload for event %s", event.ID)
	}

	data, err := json.Marshal(streamEnvelope{
		ID:            event.ID.String(),
		Type:          event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Timestamp:     event.CreatedAt.UTC().Format(time.RFC3339),
		Payload:       event.Payload,
		Metadata: streamMetadata{
			Source:       relaySource,
			OutboxID:     event.ID.String(),
			RetryCount:   event.RetryCount,
			TargetStream: event.TargetStream,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: event.TargetStream,
		Values: map[string]interface{}{
			"data":           string(data),
			"event_type":     event.EventType,
			"timestamp":      strconv.FormatInt(event.CreatedAt.UnixNano(), 10),
			"original_id":    event.ID.String(),
			"aggregate_id":   event.AggregateID,
			"aggregate_type": event.AggregateType,
		},
	}

	if _, err := r.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	return nil
}

// Backlog reports pending and dead-lettered event counts.
func (r *Relay) Backlog(ctx context.Context) (pending, deadLetter int64, err error) {
	pending, err = r.outbox.CountByStatus(ctx, OutboxStatusPending, OutboxStatusFailed)
	if err != nil {
		return 0, 0, err
	}
	deadLetter, err = r.outbox.CountByStatus(ctx, OutboxStatusDeadLetter)
	if err != nil {
		return 0, 0, err
	}
	return pending, deadLetter, nil
}
