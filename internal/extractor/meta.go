package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/product-extractor/internal/models"
)

// Meta keys per field, in priority order. Matched against property, name
// and itemprop attributes case-insensitively.
var (
	metaTitle        = []string{"og:title", "twitter:title"}
	metaDescription  = []string{"og:description", "description", "twitter:description"}
	metaImage        = []string{"og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src"}
	metaPrice        = []string{"product:price:amount", "og:price:amount", "product:sale_price:amount"}
	metaCurrency     = []string{"product:price:currency", "og:price:currency", "product:sale_price:currency"}
	metaBrand        = []string{"product:brand", "og:brand", "brand"}
	metaAvailability = []string{"product:availability", "og:availability"}
)

var blockingRobotsTokens = map[string]bool{
	"noindex":   true,
	"nofollow":  true,
	"noarchive": true,
	"none":      true,
}

// metaIndex maps lower-cased meta keys to the first non-empty content seen.
type metaIndex map[string]string

func buildMetaIndex(doc *goquery.Document) metaIndex {
	idx := metaIndex{}
	doc.Find("meta").Each(func(i int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key == "" {
				continue
			}
			if _, seen := idx[key]; !seen {
				idx[key] = content
			}
		}
	})
	return idx
}

func (m metaIndex) first(keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isPlaceholderText(cleanText(v)) {
			return v
		}
	}
	return ""
}

func metaFields(idx metaIndex, base *url.URL) Fields {
	var f Fields

	setString(&f.Title, idx.first(metaTitle))
	setString(&f.Description, idx.first(metaDescription))
	setString(&f.Brand, idx.first(metaBrand))
	setString(&f.RawPrice, idx.first(metaPrice))
	setString(&f.CurrencyHint, idx.first(metaCurrency))
	if v := idx.first(metaAvailability); v != "" {
		setString(&f.Availability, normalizeAvailability(v))
	}
	if v := idx.first(metaImage); v != "" {
		setString(&f.Image, resolveImage(base, v))
	}

	return f
}

// blockedByMetaRobots reports whether a robots or googlebot meta tag carries
// an indexing-blocking directive.
func blockedByMetaRobots(doc *goquery.Document) (string, bool) {
	var directive string
	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		if name != "robots" && name != "googlebot" {
			return true
		}
		tokens := strings.FieldsFunc(strings.ToLower(s.AttrOr("content", "")), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		for _, t := range tokens {
			if blockingRobotsTokens[t] {
				directive = name + ": " + t
				return false
			}
		}
		return true
	})
	return directive, directive != ""
}

func toAbsolute(base *url.URL, ref string) (string, error) {
	return models.ToAbsoluteURL(base, ref)
}
