package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessed  = "processed"
	OutboxStatusFailed     = "failed"
	OutboxStatusDeadLetter = "dead_letter"

	// MaxRetryCount is the number of failed deliveries after which an event
	// is moved to dead letter.
	MaxRetryCount = 5

	DefaultTargetStream = "stream:product_extraction"

	maxRetryBackoff = 5 * time.Minute
)

// OutboxEvent is one row of the transactional outbox.
type OutboxEvent struct {
	ID            uuid.UUID       `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	TargetStream  string          `db:"target_stream"`
	Status        string          `db:"status"`
	RetryCount    int             `db:"retry_count"`
	ErrorMessage  *string         `db:"error_message"`
	CreatedAt     time.Time       `db:"created_at"`
	ProcessedAt   *time.Time      `db:"processed_at"`
	NextRetryAt   *time.Time      `db:"next_retry_at"`
}

// Validate checks the fields a relay needs to route the event.
func (e *OutboxEvent) Validate() error {
	switch {
	case e.AggregateType == "":
		return fmt.Errorf("outbox event: missing aggregate type")
	case e.AggregateID == "":
		return fmt.Errorf("outbox event: missing aggregate id")
	case e.EventType == "":
		return fmt.Errorf("outbox event: missing event type")
	case len(e.Payload) == 0 || !json.Valid(e.Payload):
		return fmt.Errorf("outbox event: payload is not valid JSON")
	}
	return nil
}

type OutboxRepository struct {
	db  *DB
	now func() time.Time
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db, now: time.Now}
}

// InsertWithTx inserts event within tx, filling defaults.
func (r *OutboxRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = OutboxStatusPending
	}
	if event.TargetStream == "" {
		event.TargetStream = DefaultTargetStream
	}

	now := r.now()
	event.CreatedAt = now
	if event.NextRetryAt == nil {
		event.NextRetryAt = &now
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_event (
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			created_at, next_retry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.AggregateType, event.AggregateID, event.EventType,
		event.Payload, event.TargetStream, event.Status, event.RetryCount,
		event.CreatedAt, event.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// GetPending returns up to limit pending or failed events that are due.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			id, aggregate_type, aggregate_id, event_type,
			payload, target_stream, status, retry_count,
			error_message, created_at, processed_at, next_retry_at
		FROM outbox_event
		WHERE status IN ($1, $2)
			AND next_retry_at <= $3
		ORDER BY created_at ASC
		LIMIT $4`,
		OutboxStatusPending, OutboxStatusFailed, r.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		err := rows.Scan(
			&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType,
			&event.Payload, &event.TargetStream, &event.Status, &event.RetryCount,
			&event.ErrorMessage, &event.CreatedAt, &event.ProcessedAt, &event.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE outbox_event
		SET status = $1, processed_at = $2
		WHERE id = $3`,
		OutboxStatusProcessed, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", id)
	}
	return nil
}

// MarkFailed records processErr and schedules a retry, or dead-letters the
// event once MaxRetryCount is reached.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, processErr error) error {
	var retryCount int
	err := r.db.QueryRow(ctx, `SELECT retry_count FROM outbox_event WHERE id = $1`, id).Scan(&retryCount)
	if err != nil {
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	retryCount++
	status := FailureStatus(retryCount)
	nextRetryAt := r.now().Add(RetryBackoff(retryCount))

	_, err = r.db.Exec(ctx, `
		UPDATE outbox_event
		SET status = $1, retry_count = $2, error_message = $3, next_retry_at = $4
		WHERE id = $5`,
		status, retryCount, processErr.Error(), nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}

// CountByStatus returns how many events are in any of statuses.
func (r *OutboxRepository) CountByStatus(ctx context.Context, statuses ...string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_event WHERE status = ANY($1)`, statuses).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox events: %w", err)
	}
	return count, nil
}

// FailureStatus is the status after the given number of failed deliveries.
func FailureStatus(retryCount int) string {
	if retryCount >= MaxRetryCount {
		return OutboxStatusDeadLetter
	}
	return OutboxStatusFailed
}

// RetryBackoff doubles from one second per failure, capped at five minutes.
func RetryBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 16 {
		return maxRetryBackoff
	}
	backoff := time.Duration(1<<retryCount) * time.Second
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	return backoff
}
