package extractor

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredFields merges every product annotation found in the document's
// ld+json blocks. Malformed blocks are skipped.
func structuredFields(doc *goquery.Document, base *url.URL) Fields {
	var fields Fields

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		for _, product := range findProducts(data) {
			fields.Merge(productFields(product, base))
		}
	})

	return fields
}

// findProducts walks arrays, @graph containers and mainEntity references.
func findProducts(data any) []map[string]any {
	var out []map[string]any

	switch v := data.(type) {
	case []any:
		for _, item := range v {
			out = append(out, findProducts(item)...)
		}
	case map[string]any:
		if isProductType(v["@type"]) {
			out = append(out, v)
		}
		if graph, ok := v["@graph"]; ok {
			out = append(out, findProducts(graph)...)
		}
		if entity, ok := v["mainEntity"]; ok {
			out = append(out, findProducts(entity)...)
		}
	}

	return out
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), "product")
	case []any:
		for _, item := range v {
			if isProductType(item) {
				return true
			}
		}
	}
	return false
}

func productFields(p map[string]any, base *url.URL) Fields {
	var f Fields

	setString(&f.Title, stringValue(p["name"]))
	setString(&f.Description, stringValue(p["description"]))
	setString(&f.Brand, nameValue(p["brand"]))
	if img := imageValue(p["image"]); img != "" {
		setString(&f.Image, resolveImage(base, img))
	}

	if rating, ok := p["aggregateRating"].(map[string]any); ok {
		if v, ok := numberValue(rating["ratingValue"]); ok {
			f.Rating = &v
		}
		for _, key := range []string{"reviewCount", "ratingCount"} {
			if n, ok := countValue(rating[key]); ok {
				f.ReviewCount = &n
				break
			}
		}
	}

	for _, offer := range offerList(p["offers"]) {
		f.Merge(offerFields(offer, base))
	}

	return f
}

func offerList(v any) []map[string]any {
	switch o := v.(type) {
	case map[string]any:
		list := []map[string]any{o}
		// AggregateOffer may nest the individual offers.
		if nested, ok := o["offers"]; ok {
			list = append(list, offerList(nested)...)
		}
		return list
	case []any:
		var list []map[string]any
		for _, item := range o {
			list = append(list, offerList(item)...)
		}
		return list
	}
	return nil
}

func offerFields(o map[string]any, base *url.URL) Fields {
	var f Fields

	for _, key := range []string{"price", "lowPrice"} {
		if v := stringValue(o[key]); v != "" {
			setString(&f.RawPrice, v)
			break
		}
	}
	if f.RawPrice == nil {
		if spec, ok := o["priceSpecification"].(map[string]any); ok {
			setString(&f.RawPrice, stringValue(spec["price"]))
			setString(&f.CurrencyHint, stringValue(spec["priceCurrency"]))
		}
	}
	setString(&f.CurrencyHint, stringValue(o["priceCurrency"]))

	if v := stringValue(o["availability"]); v != "" {
		setString(&f.Availability, normalizeAvailability(v))
	}
	if v := stringValue(o["url"]); v != "" {
		if abs, err := toAbsolute(base, v); err == nil {
			setString(&f.OfferURL, abs)
		}
	}

	return f
}

// stringValue renders strings and numbers; anything else is empty.
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	}
	return ""
}

// nameValue accepts "Acme" or {"name": "Acme"}, or a list of either.
func nameValue(v any) string {
	switch b := v.(type) {
	case map[string]any:
		return stringValue(b["name"])
	case []any:
		for _, item := range b {
			if s := nameValue(item); s != "" {
				return s
			}
		}
		return ""
	}
	return stringValue(v)
}

// imageValue accepts a URL string, an ImageObject or a list of either.
func imageValue(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case map[string]any:
		if s := stringValue(img["url"]); s != "" {
			return s
		}
		return stringValue(img["contentUrl"])
	case []any:
		for _, item := range img {
			if s := imageValue(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}

func countValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), n >= 0
	case string:
		return parseCount(n)
	}
	return 0, false
}
