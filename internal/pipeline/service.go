// Package pipeline wires policy, fetch, extraction and price normalization
// into a single extraction call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/product-extractor/internal/extractor"
	"github.com/maltedev/product-extractor/internal/fetch"
	"github.com/maltedev/product-extractor/internal/models"
	"github.com/maltedev/product-extractor/internal/price"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Publisher hands a finished result to catalog ingestion.
type Publisher interface {
	PublishProductExtracted(ctx context.Context, result *models.ProductExtractionResult) error
}

// Recorder counts extraction outcomes.
type Recorder interface {
	Extraction(status string)
}

type Service struct {
	fetcher   Fetcher
	extractor *extractor.Extractor
	publisher Publisher
	metrics   Recorder
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates the pipeline. publisher and metrics may be nil.
func NewService(fetcher Fetcher, ext *extractor.Extractor, publisher Publisher, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ext == nil {
		ext = extractor.New(logger)
	}
	return &Service{
		fetcher:   fetcher,
		extractor: ext,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
		logger:    logger.With("component", "pipeline"),
	}
}

// Extract fetches rawURL and returns its normalized product record.
func (s *Service) Extract(ctx context.Context, rawURL string) (*models.ProductExtractionResult, error) {
	result, err := s.extract(ctx, rawURL)

	status := "ok"
	if err != nil {
		status = models.ErrorCode(err)
		s.logger.Warn("extraction failed", "url", rawURL, "code", status, "error", err)
	}
	if s.metrics != nil {
		s.metrics.Extraction(status)
	}

	return result, err
}

func (s *Service) extract(ctx context.Context, rawURL string) (*models.ProductExtractionResult, error) {
	target, err := models.ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.fetcher.Fetch(ctx, target.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", models.ErrTimeout, err)
		}
		return nil, err
	}

	fields, err := s.extractor.Extract(resp.HTML, resp.FinalURL)
	if err != nil {
		return nil, err
	}

	result := BuildResult(fields, resp.SourceURL)
	result.FetchedAt = s.now().UTC()
	result.FromCache = resp.FromCache

	s.logger.Info("product extracted",
		"url", target.String(),
		"source_url", result.SourceURL,
		"from_cache", result.FromCache,
		"missing", result.Missing())

	if s.publisher != nil && !resp.FromCache {
		if err := s.publisher.PublishProductExtracted(ctx, result); err != nil {
			s.logger.Error("failed to publish extraction", "url", result.SourceURL, "error", err)
		}
	}

	return result, nil
}

// BuildResult replaces the raw price with its normalized form.
func BuildResult(f extractor.Fields, sourceURL string) *models.ProductExtractionResult {
	result := &models.ProductExtractionResult{
		Title:        f.Title,
		Description:  f.Description,
		Brand:        f.Brand,
		PriceText:    f.RawPrice,
		Rating:       f.Rating,
		ReviewCount:  f.ReviewCount,
		Availability: f.Availability,
		Image:        f.Image,
		Features:     f.Features,
		OfferURL:     f.OfferURL,
		SourceURL:    sourceURL,
	}
	if result.Features == nil {
		result.Features = []string{}
	}

	var raw, hint string
	if f.RawPrice != nil {
		raw = *f.RawPrice
	}
	if f.CurrencyHint != nil {
		hint = *f.CurrencyHint
	}
	p := price.Normalize(raw, hint)
	result.PriceNumber = p.Amount
	result.Currency = p.Currency

	return result
}
