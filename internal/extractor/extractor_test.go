package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/product-extractor/internal/models"
)

const docURL = "https://shop.example.com/products/widget?color=red"

const jsonLDOnlyHTML = `<!doctype html>
<html><head>
<title>Widget | Example Shop</title>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Acme Widget",
  "brand": {"@type": "Brand", "name": "Acme"},
  "image": ["//cdn.example.com/widget.jpg"],
  "aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.4", "reviewCount": "1,234"},
  "offers": {
    "@type": "Offer",
    "price": "19.99",
    "priceCurrency": "EUR",
    "availability": "https://schema.org/InStock",
    "url": "/products/widget"
  }
}
</script>
</head>
<body>
  <h1 class="product-title">DOM Title Should Not Win</h1>
  <span class="price">$1.00</span>
</body></html>`

const ogOnlyHTML = `<html><head>
<meta property="og:title" content="OG Widget">
<meta property="og:image" content="/images/og-widget.png">
<meta property="og:description" content="A widget described by Open Graph.">
<meta property="product:price:amount" content="12.50">
<meta property="product:price:currency" content="USD">
</head>
<body><h1>Heading Title</h1></body></html>`

const domOnlyHTML = `<html><head><title>Fallback Title</title></head>
<body>
  <h1 id="productTitle">  Dom   Widget </h1>
  <a id="bylineInfo">Acme Tools</a>
  <span class="a-price"><span class="a-offscreen">1.234,56 €</span></span>
  <span class="rating">6 out of 5</span>
  <span id="acrCustomerReviewText">2.345 ratings</span>
  <div id="availability"> In stock </div>
  <img src="/img/loading-spinner.gif">
  <img id="landingImage" src="data:image/gif;base64,R0lGOD" data-old-hires="https://cdn.example.com/big.jpg">
  <div id="feature-bullets"><ul>
    <li> Durable steel </li>
    <li>Lightweight</li>
    <li>Durable steel</li>
    <li> </li>
  </ul></div>
</body></html>`

func TestExtract_StructuredData(t *testing.T) {
	f, err := New(nil).Extract(jsonLDOnlyHTML, docURL)
	require.NoError(t, err)

	require.NotNil(t, f.Title)
	assert.Equal(t, "Acme Widget", *f.Title)
	require.NotNil(t, f.RawPrice)
	assert.Equal(t, "19.99", *f.RawPrice)
	require.NotNil(t, f.CurrencyHint)
	assert.Equal(t, "EUR", *f.CurrencyHint)
	require.NotNil(t, f.Brand)
	assert.Equal(t, "Acme", *f.Brand)
	require.NotNil(t, f.Image)
	assert.Equal(t, "https://cdn.example.com/widget.jpg", *f.Image)
	require.NotNil(t, f.Availability)
	assert.Equal(t, "InStock", *f.Availability)
	require.NotNil(t, f.OfferURL)
	assert.Equal(t, "https://shop.example.com/products/widget", *f.OfferURL)
	require.NotNil(t, f.Rating)
	assert.InDelta(t, 4.4, *f.Rating, 1e-9)
	require.NotNil(t, f.ReviewCount)
	assert.Equal(t, 1234, *f.ReviewCount)
}

func TestExtract_MetaFallback(t *testing.T) {
	f, err := New(nil).Extract(ogOnlyHTML, docURL)
	require.NoError(t, err)

	require.NotNil(t, f.Title)
	assert.Equal(t, "OG Widget", *f.Title)
	require.NotNil(t, f.Image)
	assert.Equal(t, "https://shop.example.com/images/og-widget.png", *f.Image)
	require.NotNil(t, f.Description)
	assert.Equal(t, "A widget described by Open Graph.", *f.Description)
	require.NotNil(t, f.RawPrice)
	assert.Equal(t, "12.50", *f.RawPrice)
	require.NotNil(t, f.CurrencyHint)
	assert.Equal(t, "USD", *f.CurrencyHint)
	assert.Nil(t, f.OfferURL)
}

func TestExtract_DOMFallback(t *testing.T) {
	f, err := New(nil).Extract(domOnlyHTML, docURL)
	require.NoError(t, err)

	require.NotNil(t, f.Title)
	assert.Equal(t, "Dom Widget", *f.Title)
	require.NotNil(t, f.Brand)
	assert.Equal(t, "Acme Tools", *f.Brand)
	require.NotNil(t, f.RawPrice)
	assert.Equal(t, "1.234,56 €", *f.RawPrice)
	assert.Nil(t, f.Rating, "6 out of 5 is out of range")
	require.NotNil(t, f.ReviewCount)
	assert.Equal(t, 2345, *f.ReviewCount)
	require.NotNil(t, f.Availability)
	assert.Equal(t, "In stock", *f.Availability)
	require.NotNil(t, f.Image)
	assert.Equal(t, "https://cdn.example.com/big.jpg", *f.Image)
	assert.Equal(t, []string{"Durable steel", "Lightweight"}, f.Features)
}

func TestExtract_TitleTagLastResort(t *testing.T) {
	f, err := New(nil).Extract(`<html><head><title> Only Title </title></head><body></body></html>`, docURL)
	require.NoError(t, err)
	require.NotNil(t, f.Title)
	assert.Equal(t, "Only Title", *f.Title)
	assert.Nil(t, f.RawPrice)
	assert.Nil(t, f.Image)
}

func TestExtract_MetaRobots(t *testing.T) {
	tests := []struct {
		name    string
		meta    string
		blocked bool
	}{
		{"noindex", `<meta name="robots" content="noindex, follow">`, true},
		{"googlebot none", `<meta name="Googlebot" content="NONE">`, true},
		{"noarchive", `<meta name="robots" content="noarchive">`, true},
		{"index follow", `<meta name="robots" content="index, follow">`, false},
		{"other bot", `<meta name="bingbot" content="noindex">`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := "<html><head>" + tt.meta + "<title>x</title></head><body></body></html>"
			_, err := New(nil).Extract(html, docURL)
			if tt.blocked {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrMetaRobotsBlocked))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStructuredData_Variants(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{ not json </script>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList","name":"Crumbs"},
  {"@type":["Product","Thing"],"name":"Graph Product","image":{"@type":"ImageObject","url":"https://cdn.example.com/g.jpg"},
   "offers":{"@type":"AggregateOffer","lowPrice":9.5,"priceCurrency":"GBP","offers":[{"@type":"Offer","url":"https://seller.example.com/o/1"}]}}
]}
</script>
<script type="application/ld+json">
[{"@type":"product","name":"Second Product","description":"from second block","brand":"Other"}]
</script>
</head><body></body></html>`

	f, err := New(nil).Extract(html, docURL)
	require.NoError(t, err)

	assert.Equal(t, "Graph Product", *f.Title, "first block wins")
	assert.Equal(t, "from second block", *f.Description, "later blocks fill gaps")
	assert.Equal(t, "Other", *f.Brand)
	assert.Equal(t, "9.5", *f.RawPrice)
	assert.Equal(t, "GBP", *f.CurrencyHint)
	assert.Equal(t, "https://cdn.example.com/g.jpg", *f.Image)
	assert.Equal(t, "https://seller.example.com/o/1", *f.OfferURL)
}

func TestFields_Merge(t *testing.T) {
	title := "first"
	other := "second"
	rating := 4.0

	f := Fields{Title: &title}
	f.Merge(Fields{Title: &other, Brand: &other, Rating: &rating, Features: []string{"a"}})
	f.Merge(Fields{Features: []string{"b"}})

	assert.Equal(t, "first", *f.Title)
	assert.Equal(t, "second", *f.Brand)
	assert.Equal(t, 4.0, *f.Rating)
	assert.Equal(t, []string{"a"}, f.Features)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.5 out of 5 stars", 4.5, true},
		{"4,2 von 5 Sternen", 4.2, true},
		{"6 out of 5", 0, false},
		{"no rating", 0, false},
		{"0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseRating(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestResolveImage(t *testing.T) {
	base, _ := models.ParseTarget(docURL)

	assert.Equal(t, "https://cdn.example.com/a.jpg", resolveImage(base, "//cdn.example.com/a.jpg"))
	assert.Equal(t, "https://shop.example.com/a.jpg", resolveImage(base, "/a.jpg"))
	assert.Equal(t, "https://shop.example.com/img/google-pixel-8.jpg", resolveImage(base, "/img/google-pixel-8.jpg"))
	assert.Empty(t, resolveImage(base, "  "))
}

func TestIsPlaceholderImage(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"/img/placeholder.png", true},
		{"https://cdn.example.com/assets/product-placeholder-400.jpg", true},
		{"/static/spacer.gif", true},
		{"/img/pixel_1x1.png?v=2", true},
		{"/img/loading.gif", true},
		{"/img/transparent.png", true},
		{"data:image/gif;base64,R0lGOD", true},
		{"https://cdn.example.com/phones/google-pixel-8-obsidian.jpg", false},
		{"https://cdn.example.com/cases/transparent-case-clear.jpg", false},
		{"https://cdn.example.com/blank-notebook-a5.jpg", false},
		{"https://cdn.example.com/loading/widget.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, isPlaceholderImage(tt.src))
		})
	}
}

func TestExtract_ImagePlaceholders(t *testing.T) {
	t.Run("structured image is never filtered by name", func(t *testing.T) {
		html := `<html><head><script type="application/ld+json">
{"@type":"Product","name":"Pixel 8","image":"https://cdn.example.com/phones/google-pixel-8-obsidian.jpg"}
</script></head></html>`

		f, err := New(nil).Extract(html, docURL)
		require.NoError(t, err)
		require.NotNil(t, f.Image)
		assert.Equal(t, "https://cdn.example.com/phones/google-pixel-8-obsidian.jpg", *f.Image)
	})

	t.Run("dom placeholder falls through to the next attribute", func(t *testing.T) {
		html := `<html><body><h1>Case</h1>
<img id="landingImage" data-src="/img/placeholder.png" src="/img/transparent-case.jpg">
</body></html>`

		f, err := New(nil).Extract(html, docURL)
		require.NoError(t, err)
		require.NotNil(t, f.Image)
		assert.Equal(t, "https://shop.example.com/img/transparent-case.jpg", *f.Image)
	})
}
