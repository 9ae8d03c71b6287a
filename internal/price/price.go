// Package price turns display price strings into an amount and an ISO 4217
// currency code.
package price

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/currency"

	"github.com/maltedev/product-extractor/internal/models"
)

type symbol struct {
	text string
	code string
}

// symbols is ordered longest first so "CA$" is seen before "A$" and "$".
var symbols = []symbol{
	{"US$", "USD"},
	{"CA$", "CAD"},
	{"AU$", "AUD"},
	{"MX$", "MXN"},
	{"NT$", "TWD"},
	{"NZ$", "NZD"},
	{"HK$", "HKD"},
	{"zł", "PLN"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"R$", "BRL"},
	{"S$", "SGD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"₩", "KRW"},
	{"₺", "TRY"},
	{"$", "USD"},
}

var (
	isoCodeRe    = regexp.MustCompile(`\b[A-Z]{3}\b`)
	numericRunRe = regexp.MustCompile(`\d{1,3}(?:[ \x{00A0}\x{202F}']\d{3})+(?:[.,]\d+)?|\d[\d.,]*`)
)

// Normalize parses raw into an amount and a currency. Currency comes from a
// symbol, then a three-letter ISO code in raw, then hint. Either part may be nil.
func Normalize(raw, hint string) models.Price {
	return models.Price{
		Amount:   parseAmount(raw),
		Currency: detectCurrency(raw, hint),
	}
}

func detectCurrency(raw, hint string) *string {
	for _, s := range symbols {
		if strings.Contains(raw, s.text) {
			code := s.code
			return &code
		}
	}

	for _, match := range isoCodeRe.FindAllString(raw, -1) {
		if unit, err := currency.ParseISO(match); err == nil {
			code := unit.String()
			return &code
		}
	}

	hint = strings.ToUpper(strings.TrimSpace(hint))
	if hint != "" {
		return &hint
	}
	return nil
}

func parseAmount(raw string) *float64 {
	run := numericRunRe.FindString(raw)
	if run == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range run {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(b.String(), ".,")

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &amount
}
