package extractor

import (
	"strings"
)

// Fields holds raw, pre-normalization values. A field set by an earlier
// source is never overwritten by a later one.
type Fields struct {
	Title        *string
	Description  *string
	Brand        *string
	RawPrice     *string
	CurrencyHint *string
	Rating       *float64
	ReviewCount  *int
	Availability *string
	Image        *string
	Features     []string
	OfferURL     *string
}

// Merge fills every empty field of f from other.
func (f *Fields) Merge(other Fields) {
	mergeString(&f.Title, other.Title)
	mergeString(&f.Description, other.Description)
	mergeString(&f.Brand, other.Brand)
	mergeString(&f.RawPrice, other.RawPrice)
	mergeString(&f.CurrencyHint, other.CurrencyHint)
	mergeString(&f.Availability, other.Availability)
	mergeString(&f.Image, other.Image)
	mergeString(&f.OfferURL, other.OfferURL)

	if f.Rating == nil && other.Rating != nil {
		v := *other.Rating
		f.Rating = &v
	}
	if f.ReviewCount == nil && other.ReviewCount != nil {
		v := *other.ReviewCount
		f.ReviewCount = &v
	}
	if len(f.Features) == 0 && len(other.Features) > 0 {
		f.Features = append([]string(nil), other.Features...)
	}
}

// Complete reports whether every field has a value.
func (f *Fields) Complete() bool {
	return f.Title != nil && f.Description != nil && f.Brand != nil &&
		f.RawPrice != nil && f.CurrencyHint != nil && f.Rating != nil &&
		f.ReviewCount != nil && f.Availability != nil && f.Image != nil &&
		len(f.Features) > 0 && f.OfferURL != nil
}

func mergeString(dst **string, src *string) {
	if *dst != nil || src == nil {
		return
	}
	v := *src
	*dst = &v
}

// setString stores a trimmed, collapsed v in *dst unless *dst is set or v is blank.
func setString(dst **string, v string) {
	if *dst != nil {
		return
	}
	v = cleanText(v)
	if isPlaceholderText(v) {
		return
	}
	*dst = &v
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var placeholderTexts = map[string]bool{
	"":          true,
	"-":         true,
	"--":        true,
	"n/a":       true,
	"na":        true,
	"null":      true,
	"undefined": true,
	"none":      true,
}

func isPlaceholderText(s string) bool {
	return placeholderTexts[strings.ToLower(s)]
}

// normalizeAvailability reduces schema.org URLs such as
// "https://schema.org/InStock" to "InStock".
func normalizeAvailability(v string) string {
	v = cleanText(v)
	if strings.Contains(v, "schema.org/") {
		v = v[strings.LastIndex(v, "/")+1:]
	}
	return v
}
