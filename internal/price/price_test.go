package price

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		hint     string
		amount   *float64
		currency *string
	}{
		{"dollar symbol", "$12.50", "", ptr(12.50), ptr("USD")},
		{"euro locale", "1.234,56 €", "", ptr(1234.56), ptr("EUR")},
		{"iso prefix", "GBP 9.99", "", ptr(9.99), ptr("GBP")},
		{"no number no currency", "--", "", nil, nil},
		{"two char symbol beats dollar", "C$ 19.99", "", ptr(19.99), ptr("CAD")},
		{"three char symbol", "US$1,299.00", "", ptr(1299.0), ptr("USD")},
		{"canadian prefix beats australian", "CA$ 19.99", "", ptr(19.99), ptr("CAD")},
		{"australian prefix", "AU$24.00", "", ptr(24.0), ptr("AUD")},
		{"mexican peso", "MX$ 1,250.00", "", ptr(1250.0), ptr("MXN")},
		{"taiwan dollar", "NT$990", "", ptr(990.0), ptr("TWD")},
		{"short australian form", "A$ 5", "", ptr(5.0), ptr("AUD")},
		{"lone comma is decimal", "12,50 zł", "", ptr(12.5), ptr("PLN")},
		{"thousands commas", "1,234,567", "usd", ptr(1234567.0), ptr("USD")},
		{"thousands dots", "1.234.567", "", ptr(1234567.0), nil},
		{"space grouping", "1 234,56 €", "", ptr(1234.56), ptr("EUR")},
		{"hint used when text has none", "49.95", "eur", ptr(49.95), ptr("EUR")},
		{"non iso capitals ignored", "NEW 5.00", "", ptr(5.0), nil},
		{"currency without amount", "€ --", "", nil, ptr("EUR")},
		{"first run wins", "$10.00 - $15.00", "", ptr(10.0), ptr("USD")},
		{"pound", "£7", "", ptr(7.0), ptr("GBP")},
		{"plain integer", "42", "", ptr(42.0), nil},
		{"empty", "", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.hint)
			if tt.amount == nil {
				assert.Nil(t, got.Amount)
			} else if assert.NotNil(t, got.Amount) {
				assert.InDelta(t, *tt.amount, *got.Amount, 1e-9)
			}
			assert.Equal(t, tt.currency, got.Currency)
		})
	}
}

func TestSymbols_LongestFirst(t *testing.T) {
	for i, shorter := range symbols {
		for j, longer := range symbols {
			if i == j || !strings.Contains(longer.text, shorter.text) {
				continue
			}
			assert.Less(t, j, i, "%q must be checked before %q", longer.text, shorter.text)
		}
	}
}
