// Package extractor pulls raw product fields out of an HTML document.
// Structured data wins over meta tags, which win over DOM heuristics.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/product-extractor/internal/models"
)

// Extractor turns fetched HTML into raw product fields.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor logging under the "extractor" component.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "extractor")}
}

// Extract parses html fetched from documentURL. It fails only on unparsable
// input or a blocking meta robots directive; missing fields are not errors.
func (e *Extractor) Extract(html, documentURL string) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if directive, blocked := blockedByMetaRobots(doc); blocked {
		return Fields{}, fmt.Errorf("%w: %s", models.ErrMetaRobotsBlocked, directive)
	}

	base, err := url.Parse(documentURL)
	if err != nil || base.Host == "" {
		base = nil
	}

	fields := structuredFields(doc, base)
	fromStructured := fields.Complete()
	if !fromStructured {
		fields.Merge(metaFields(buildMetaIndex(doc), base))
	}
	if !fields.Complete() {
		fields.Merge(domFields(doc, base))
	}

	e.logger.Debug("fields extracted",
		"url", documentURL,
		"has_title", fields.Title != nil,
		"has_price", fields.RawPrice != nil,
		"structured_complete", fromStructured)

	return fields, nil
}
