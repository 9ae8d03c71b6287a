package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/product-extractor/internal/database"
	"github.com/maltedev/product-extractor/internal/models"
)

type EventType string

const (
	// EventTypeProductExtracted is published after a page was fetched and extracted.
	EventTypeProductExtracted EventType = "PRODUCT_EXTRACTED"

	aggregateTypeProductPage = "product_page"
)

// ProductExtractedPayload wraps the extraction result with event metadata.
type ProductExtractedPayload struct {
	EventID   string                          `json:"event_id"`
	EventType string                          `json:"event_type"`
	Timestamp time.Time                       `json:"timestamp"`
	Source    string                          `json:"source"`
	Missing   []string                        `json:"missing_fields"`
	Product   *models.ProductExtractionResult `json:"product"`
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// OutboxWriter inserts outbox rows within a transaction.
type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Publisher writes extraction events to the transactional outbox.
type Publisher struct {
	db     TxRunner
	outbox OutboxWriter
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return newPublisher(db, database.NewOutboxRepository(db), logger)
}

func newPublisher(db TxRunner, outbox OutboxWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		db:     db,
		outbox: outbox,
		now:    time.Now,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductExtracted records a PRODUCT_EXTRACTED event keyed by the
// result's source URL.
func (p *Publisher) PublishProductExtracted(ctx context.Context, result *models.ProductExtractionResult) error {
	if result == nil || result.SourceURL == "" {
		return fmt.Errorf("cannot publish extraction without source url")
	}

	payload := ProductExtractedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeProductExtracted),
		Timestamp: p.now().UTC(),
		Source:    "product-extractor",
		Missing:   result.Missing(),
		Product:   result,
	}
	if payload.Missing == nil {
		payload.Missing = []string{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: aggregateTypeProductPage,
		AggregateID:   result.SourceURL,
		EventType:     string(EventTypeProductExtracted),
		Payload:       data,
		TargetStream:  database.DefaultTargetStream,
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		return p.outbox.InsertWithTx(ctx, tx, outboxEvent)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"source_url", result.SourceURL,
		"outbox_id", outboxEvent.ID)

	return nil
}
