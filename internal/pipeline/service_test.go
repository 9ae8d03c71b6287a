package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/product-extractor/internal/extractor"
	"github.com/maltedev/product-extractor/internal/fetch"
	"github.com/maltedev/product-extractor/internal/models"
)

type stubFetcher struct {
	resp *fetch.Response
	err  error
	got  []string
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Response, error) {
	f.got = append(f.got, rawURL)
	return f.resp, f.err
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductExtracted(ctx context.Context, result *models.ProductExtractionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type recordingStatuses struct {
	statuses []string
}

func (r *recordingStatuses) Extraction(status string) {
	r.statuses = append(r.statuses, status)
}

const productHTML = `<html><head>
<script type="application/ld+json">
{"@type":"Product","name":"Trail Shoe","brand":"Peak",
 "offers":{"@type":"Offer","price":"89.00","priceCurrency":"EUR","url":"/p/trail-shoe"}}
</script></head><body></body></html>`

func newService(f Fetcher, pub Publisher, rec Recorder) *Service {
	s := NewService(f, extractor.New(nil), pub, rec, nil)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestService_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes price and publishes", func(t *testing.T) {
		fetcher := &stubFetcher{resp: &fetch.Response{
			HTML:      productHTML,
			SourceURL: "https://www.shop.example.com/p/trail-shoe",
			FinalURL:  "https://www.shop.example.com/p/trail-shoe",
		}}
		pub := new(MockPublisher)
		pub.On("PublishProductExtracted", mock.Anything, mock.AnythingOfType("*models.ProductExtractionResult")).Return(nil)
		rec := &recordingStatuses{}

		result, err := newService(fetcher, pub, rec).Extract(ctx, "https://shop.example.com/p/trail-shoe#top")
		require.NoError(t, err)

		assert.Equal(t, []string{"https://shop.example.com/p/trail-shoe"}, fetcher.got)
		assert.Equal(t, "Trail Shoe", *result.Title)
		assert.Equal(t, "89.00", *result.PriceText)
		assert.InDelta(t, 89.0, *result.PriceNumber, 1e-9)
		assert.Equal(t, "EUR", *result.Currency)
		assert.Equal(t, "https://www.shop.example.com/p/trail-shoe", result.SourceURL)
		assert.Equal(t, "https://www.shop.example.com/p/trail-shoe", *result.OfferURL)
		assert.Equal(t, []string{}, result.Features)
		assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), result.FetchedAt)
		assert.Equal(t, []string{"ok"}, rec.statuses)
		pub.AssertExpectations(t)
	})

	t.Run("cached pages are not republished", func(t *testing.T) {
		fetcher := &stubFetcher{resp: &fetch.Response{
			HTML:      productHTML,
			SourceURL: "https://shop.example.com/p/trail-shoe",
			FinalURL:  "https://shop.example.com/p/trail-shoe",
			FromCache: true,
		}}
		pub := new(MockPublisher)

		result, err := newService(fetcher, pub, nil).Extract(ctx, "https://shop.example.com/p/trail-shoe")
		require.NoError(t, err)
		assert.True(t, result.FromCache)
		pub.AssertNotCalled(t, "PublishProductExtracted", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail extraction", func(t *testing.T) {
		fetcher := &stubFetcher{resp: &fetch.Response{HTML: productHTML, SourceURL: "https://shop.example.com/p", FinalURL: "https://shop.example.com/p"}}
		pub := new(MockPublisher)
		pub.On("PublishProductExtracted", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := newService(fetcher, pub, nil).Extract(ctx, "https://shop.example.com/p")
		assert.NoError(t, err)
	})

	t.Run("unsupported scheme fails before fetching", func(t *testing.T) {
		fetcher := &stubFetcher{}
		rec := &recordingStatuses{}

		_, err := newService(fetcher, nil, rec).Extract(ctx, "file:///etc/passwd")
		assert.True(t, errors.Is(err, models.ErrUnsupportedScheme))
		assert.Empty(t, fetcher.got)
		assert.Equal(t, []string{"UnsupportedScheme"}, rec.statuses)
	})

	t.Run("meta robots block surfaces", func(t *testing.T) {
		fetcher := &stubFetcher{resp: &fetch.Response{
			HTML:      `<html><head><meta name="robots" content="noindex"></head></html>`,
			SourceURL: "https://shop.example.com/p",
			FinalURL:  "https://shop.example.com/p",
		}}

		_, err := newService(fetcher, nil, nil).Extract(ctx, "https://shop.example.com/p")
		assert.True(t, errors.Is(err, models.ErrMetaRobotsBlocked))
	})

	t.Run("deadline maps to timeout", func(t *testing.T) {
		fetcher := &stubFetcher{err: context.DeadlineExceeded}

		_, err := newService(fetcher, nil, nil).Extract(ctx, "https://shop.example.com/p")
		assert.Equal(t, "Timeout", models.ErrorCode(err))
	})
}

func TestBuildResult_NoPrice(t *testing.T) {
	hint := "usd"
	result := BuildResult(extractor.Fields{CurrencyHint: &hint}, "https://shop.example.com/p")

	assert.Nil(t, result.PriceText)
	assert.Nil(t, result.PriceNumber)
	require.NotNil(t, result.Currency)
	assert.Equal(t, "USD", *result.Currency)
}
