package variants

import (
	"math/rand"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func urlStrings(us []*url.URL) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.String()
	}
	return out
}

func TestURLVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "adds www and strips query",
			in:   "https://shop.example.com/p/1?ref=abc",
			want: []string{
				"https://shop.example.com/p/1?ref=abc",
				"https://www.shop.example.com/p/1?ref=abc",
				"https://shop.example.com/p/1",
			},
		},
		{
			name: "strips www",
			in:   "https://www.example.com/p/1",
			want: []string{
				"https://www.example.com/p/1",
				"https://example.com/p/1",
			},
		},
		{
			name: "keeps port when toggling",
			in:   "http://example.com:8080/p",
			want: []string{
				"http://example.com:8080/p",
				"http://www.example.com:8080/p",
			},
		},
		{
			name: "ip literal has no www form",
			in:   "http://127.0.0.1:9000/p?x=1",
			want: []string{
				"http://127.0.0.1:9000/p?x=1",
				"http://127.0.0.1:9000/p",
			},
		},
		{
			name: "single label host",
			in:   "http://localhost/p",
			want: []string{"http://localhost/p"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, urlStrings(URLVariants(parse(t, tt.in))))
		})
	}
}

func TestGenerator_Build(t *testing.T) {
	t.Run("url-major order truncated to max attempts", func(t *testing.T) {
		g := NewGenerator(nil, 6, rand.NewSource(1))
		attempts := g.Build(parse(t, "https://shop.example.com/p/1?ref=abc"))

		require.Len(t, attempts, 6)
		for i := 0; i < 4; i++ {
			assert.Equal(t, "https://shop.example.com/p/1?ref=abc", attempts[i].URL.String())
		}
		assert.Equal(t, "https://www.shop.example.com/p/1?ref=abc", attempts[4].URL.String())
		assert.Equal(t, "https://www.shop.example.com/", attempts[4].Headers["Referer"])
		assert.Equal(t, "https://shop.example.com/", attempts[0].Headers["Referer"])
	})

	t.Run("each url form sees every profile once", func(t *testing.T) {
		g := NewGenerator(nil, 100, rand.NewSource(7))
		attempts := g.Build(parse(t, "https://www.example.com/p"))

		require.Len(t, attempts, 2*len(DefaultProfiles))
		seen := map[string]int{}
		for _, a := range attempts[:len(DefaultProfiles)] {
			seen[a.Headers["User-Agent"]]++
		}
		assert.Len(t, seen, len(DefaultProfiles))
	})

	t.Run("same seed yields same order", func(t *testing.T) {
		u := parse(t, "https://example.com/p")
		a := NewGenerator(nil, 4, rand.NewSource(42)).Build(u)
		b := NewGenerator(nil, 4, rand.NewSource(42)).Build(u)

		for i := range a {
			assert.Equal(t, a[i].Headers["User-Agent"], b[i].Headers["User-Agent"])
		}
	})

	t.Run("extra user agents join the pool", func(t *testing.T) {
		g := NewGenerator([]string{"CustomBot/1.0", " "}, 0, rand.NewSource(1))
		assert.Equal(t, DefaultMaxAttempts, g.MaxAttempts())

		profiles := g.Profiles()
		require.Len(t, profiles, len(DefaultProfiles)+1)
		assert.Equal(t, HeaderProfile{UserAgent: "CustomBot/1.0", AcceptLanguage: "en-US,en;q=0.9"}, profiles[len(profiles)-1])
	})

	t.Run("attempt headers", func(t *testing.T) {
		g := NewGenerator(nil, 1, rand.NewSource(1))
		attempts := g.Build(parse(t, "https://example.com/p"))
		require.Len(t, attempts, 1)

		h := attempts[0].Headers
		assert.NotEmpty(t, h["User-Agent"])
		assert.NotEmpty(t, h["Accept-Language"])
		assert.Equal(t, "gzip, deflate, br", h["Accept-Encoding"])
	})
}

func TestParseUserAgents(t *testing.T) {
	assert.Equal(t, []string{"A/1", "B/2", "C/3"}, ParseUserAgents("A/1|B/2\nC/3\r\n"))
	assert.Empty(t, ParseUserAgents(""))
}
