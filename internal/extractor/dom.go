package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Selector lists per field, tried in order. The first selector yielding
// non-placeholder content wins.
var (
	titleSelectors = []string{
		`h1[itemprop="name"]`,
		`[itemtype*="Product"] [itemprop="name"]`,
		"#productTitle",
		"h1.product-title",
		"h1.product_title",
		".product-title",
		".product-name",
		"h1",
	}
	descriptionSelectors = []string{
		`[itemprop="description"]`,
		"#productDescription",
		".product-description",
		".product__description",
		"#description",
	}
	brandSelectors = []string{
		`[itemprop="brand"] [itemprop="name"]`,
		`[itemprop="brand"]`,
		"#bylineInfo",
		".product-brand",
		".brand",
	}
	priceSelectors = []string{
		`[itemprop="price"]`,
		".a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"[data-price]",
		".product-price",
		".price",
	}
	currencySelectors = []string{
		`[itemprop="priceCurrency"]`,
		"[data-currency]",
	}
	ratingSelectors = []string{
		`[itemprop="ratingValue"]`,
		"#acrPopover",
		"[data-rating]",
		".rating",
		".star-rating",
	}
	reviewCountSelectors = []string{
		`[itemprop="reviewCount"]`,
		`[itemprop="ratingCount"]`,
		"#acrCustomerReviewText",
		".review-count",
		".reviews-count",
	}
	availabilitySelectors = []string{
		`[itemprop="availability"]`,
		"#availability",
		".availability",
		".stock",
	}
	imageSelectors = []string{
		`[itemprop="image"]`,
		"#landingImage",
		"#imgBlkFront",
		".product-image img",
		".product__media img",
		".gallery img",
		"main img",
		"img",
	}
	featureSelectors = []string{
		"#feature-bullets li",
		".product-features li",
		".features li",
		".product__features li",
		`[itemprop="description"] li`,
	}
)

// Attributes read before element text, in order.
var (
	valueAttrs = []string{"content", "data-price", "data-currency", "data-rating", "title"}
	linkAttrs  = []string{"href", "content"}
	imageAttrs = []string{"data-old-hires", "data-src", "src", "content", "href"}
)

// Placeholder images are recognised by file name only. Tokens match anywhere
// in the stem; stems must match exactly.
var (
	placeholderImageTokens = map[string]bool{
		"placeholder": true,
		"spacer":      true,
		"1x1":         true,
		"noimage":     true,
	}
	placeholderImageStems = map[string]bool{
		"blank":       true,
		"pixel":       true,
		"transparent": true,
		"loading":     true,
		"loader":      true,
		"spinner":     true,
		"grey":        true,
		"gray":        true,
		"clear":       true,
		"no-image":    true,
	}
)

var (
	ratingRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countRe  = regexp.MustCompile(`\d[\d,.\s\x{00A0}]*`)
)

func domFields(doc *goquery.Document, base *url.URL) Fields {
	var f Fields

	setString(&f.Title, firstText(doc, titleSelectors))
	setString(&f.Description, firstText(doc, descriptionSelectors))
	setString(&f.Brand, firstValue(doc, brandSelectors, valueAttrs))
	setString(&f.RawPrice, firstValue(doc, priceSelectors, valueAttrs))
	setString(&f.CurrencyHint, firstValue(doc, currencySelectors, valueAttrs))

	if v := firstValue(doc, availabilitySelectors, linkAttrs); v != "" {
		setString(&f.Availability, normalizeAvailability(v))
	}
	if v, ok := domRating(doc); ok {
		f.Rating = &v
	}
	if n, ok := parseCount(firstText(doc, reviewCountSelectors)); ok {
		f.ReviewCount = &n
	}
	setString(&f.Image, domImage(doc, base))
	f.Features = domFeatures(doc)

	if f.Title == nil {
		setString(&f.Title, doc.Find("title").First().Text())
	}

	return f
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			text := cleanText(s.Text())
			if isPlaceholderText(text) {
				return true
			}
			found = text
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// firstValue prefers attribute values such as content= over element text.
func firstValue(doc *goquery.Document, selectors []string, attrs []string) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			for _, attr := range attrs {
				if v := cleanText(s.AttrOr(attr, "")); !isPlaceholderText(v) {
					found = v
					return false
				}
			}
			if text := cleanText(s.Text()); !isPlaceholderText(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// domRating returns the first rating in [0, 5]. Out-of-range values are
// skipped, not clamped.
func domRating(doc *goquery.Document) (float64, bool) {
	for _, sel := range ratingSelectors {
		var (
			rating float64
			found  bool
		)
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			candidates := make([]string, 0, len(valueAttrs)+1)
			for _, attr := range valueAttrs {
				if v, ok := s.Attr(attr); ok {
					candidates = append(candidates, v)
				}
			}
			candidates = append(candidates, s.Text())

			for _, c := range candidates {
				if v, ok := parseRating(c); ok {
					rating, found = v, true
					return false
				}
			}
			return true
		})
		if found {
			return rating, true
		}
	}
	return 0, false
}

func parseRating(text string) (float64, bool) {
	m := ratingRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// parseCount reads the first digit run, ignoring thousands separators.
func parseCount(text string) (int, bool) {
	m := countRe.FindString(text)
	if m == "" {
		return 0, false
	}
	var b strings.Builder
	for _, r := range m {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func domImage(doc *goquery.Document, base *url.URL) string {
	for _, sel := range imageSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(i int, s *goquery.Selection) bool {
			for _, attr := range imageAttrs {
				raw := s.AttrOr(attr, "")
				if isPlaceholderImage(raw) {
					continue
				}
				if src := resolveImage(base, raw); src != "" {
					found = src
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// resolveImage returns src as an absolute URL, or "" when it is blank.
func resolveImage(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	abs, err := toAbsolute(base, src)
	if err != nil {
		return ""
	}
	return abs
}

// isPlaceholderImage reports whether src is an inline data URI or its file
// name marks a placeholder, spacer or loading image.
func isPlaceholderImage(src string) bool {
	src = strings.ToLower(strings.TrimSpace(src))
	if strings.HasPrefix(src, "data:") {
		return true
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	name := path.Base(src)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if placeholderImageStems[name] {
		return true
	}
	for _, token := range strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if placeholderImageTokens[token] {
			return true
		}
	}
	return false
}

func domFeatures(doc *goquery.Document) []string {
	for _, sel := range featureSelectors {
		var features []string
		seen := map[string]bool{}
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if isPlaceholderText(text) || seen[text] {
				return
			}
			seen[text] = true
			features = append(features, text)
		})
		if len(features) > 0 {
			return features
		}
	}
	return nil
}
