package models

import (
	"time"
)

// ProductExtractionResult is the normalized record handed to catalog ingestion.
// Every field is present in the JSON output; absent values encode as null.
// Field names are camelCase because catalog ingestion reads them as such.
type ProductExtractionResult struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Brand        *string   `json:"brand"`
	PriceText    *string   `json:"priceText"`
	PriceNumber  *float64  `json:"priceNumber"`
	Currency     *string   `json:"currency"`
	Rating       *float64  `json:"rating"`
	ReviewCount  *int      `json:"reviewCount"`
	Availability *string   `json:"availability"`
	Image        *string   `json:"image"`
	Features     []string  `json:"features"`
	OfferURL     *string   `json:"offerUrl"`
	SourceURL    string    `json:"sourceUrl"`
	FetchedAt    time.Time `json:"fetchedAt"`
	FromCache    bool      `json:"fromCache"`
}

// Price is a normalized amount plus currency code. Either part may be unknown.
type Price struct {
	Amount   *float64 `json:"amount"`
	Currency *string  `json:"currency"`
}

// IsValid reports whether both the amount and the currency were recovered.
func (p Price) IsValid() bool {
	return p.Amount != nil && *p.Amount >= 0 && p.Currency != nil && *p.Currency != ""
}

// HasPrice reports whether a numeric price was extracted.
func (r *ProductExtractionResult) HasPrice() bool {
	return r.PriceNumber != nil
}

// Missing lists the names of fields that could not be extracted.
func (r *ProductExtractionResult) Missing() []string {
	var missing []string

	if r.Title == nil {
		missing = append(missing, "title")
	}
	if r.Brand == nil {
		missing = append(missing, "brand")
	}
	if r.PriceNumber == nil {
		missing = append(missing, "price")
	}
	if r.Currency == nil {
		missing = append(missing, "currency")
	}
	if r.Image == nil {
		missing = append(missing, "image")
	}
	if r.Rating == nil {
		missing = append(missing, "rating")
	}

	return missing
}
