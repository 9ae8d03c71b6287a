// Package variants builds the ordered list of request attempts for one
// extraction: URL forms crossed with shuffled browser header profiles.
package variants

import (
	"math/rand"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/product-extractor/internal/models"
)

const (
	DefaultMaxAttempts    = 4
	defaultAcceptLanguage = "en-US,en;q=0.9"
	acceptHeader          = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptEncodingHeader  = "gzip, deflate, br"
)

// HeaderProfile is one user-agent and accept-language pair.
type HeaderProfile struct {
	UserAgent      string
	AcceptLanguage string
}

// DefaultProfiles is the built-in pool of browser profiles.
var DefaultProfiles = []HeaderProfile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		AcceptLanguage: "en-GB,en;q=0.9",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		AcceptLanguage: "en-US,en;q=0.8,de;q=0.6",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
		AcceptLanguage: "en-US,en;q=0.9,fr;q=0.7",
	},
}

// Attempt is one concrete request: a URL form plus the headers to send.
type Attempt struct {
	URL     *url.URL
	Headers map[string]string
}

// Generator builds attempts. It is safe for concurrent use.
type Generator struct {
	profiles    []HeaderProfile
	maxAttempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a Generator over the default profiles plus one
// profile per extra user agent. A nil src seeds from the clock.
func NewGenerator(extraUserAgents []string, maxAttempts int, src rand.Source) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}

	profiles := append([]HeaderProfile(nil), DefaultProfiles...)
	for _, ua := range extraUserAgents {
		ua = strings.TrimSpace(ua)
		if ua == "" {
			continue
		}
		profiles = append(profiles, HeaderProfile{UserAgent: ua, AcceptLanguage: defaultAcceptLanguage})
	}

	return &Generator{
		profiles:    profiles,
		maxAttempts: maxAttempts,
		rnd:         rand.New(src),
	}
}

// ParseUserAgents splits an operator-supplied list on newlines or pipes.
func ParseUserAgents(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == '|'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// MaxAttempts returns the attempt cap.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Build returns at most MaxAttempts attempts for u, URL-major and
// header-minor. The first attempt is always the input URL.
func (g *Generator) Build(u *url.URL) []Attempt {
	urls := URLVariants(u)
	profiles := g.shuffledProfiles()

	attempts := make([]Attempt, 0, g.maxAttempts)
	for _, variant := range urls {
		for _, profile := range profiles {
			if len(attempts) == g.maxAttempts {
				return attempts
			}
			attempts = append(attempts, Attempt{
				URL:     variant,
				Headers: headersFor(variant, profile),
			})
		}
	}
	return attempts
}

// Profiles returns the profile pool in its unshuffled order.
func (g *Generator) Profiles() []HeaderProfile {
	return append([]HeaderProfile(nil), g.profiles...)
}

func (g *Generator) shuffledProfiles() []HeaderProfile {
	out := append([]HeaderProfile(nil), g.profiles...)

	g.mu.Lock()
	g.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	g.mu.Unlock()

	return out
}

// URLVariants returns the input URL, its www-toggled form and, when a query
// is present, the query-stripped form. Duplicates are dropped.
func URLVariants(u *url.URL) []*url.URL {
	candidates := []*url.URL{u}

	if toggled, ok := toggleWWW(u); ok {
		candidates = append(candidates, toggled)
	}
	if u.RawQuery != "" || u.ForceQuery {
		stripped := *u
		stripped.RawQuery = ""
		stripped.ForceQuery = false
		candidates = append(candidates, &stripped)
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]*url.URL, 0, len(candidates))
	for _, c := range candidates {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// toggleWWW adds or strips the www. prefix. IP literals and single-label
// hosts such as localhost have no www form.
func toggleWWW(u *url.URL) (*url.URL, bool) {
	host := u.Hostname()
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return nil, false
	}

	var toggled string
	if strings.HasPrefix(host, "www.") {
		toggled = strings.TrimPrefix(host, "www.")
	} else {
		toggled = "www." + host
	}

	v := *u
	if port := u.Port(); port != "" {
		v.Host = net.JoinHostPort(toggled, port)
	} else {
		v.Host = toggled
	}
	return &v, true
}

func headersFor(u *url.URL, p HeaderProfile) map[string]string {
	return map[string]string{
		"User-Agent":      p.UserAgent,
		"Accept-Language": p.AcceptLanguage,
		"Accept":          acceptHeader,
		"Accept-Encoding": acceptEncodingHeader,
		"Referer":         models.Origin(u) + "/",
	}
}

// BaseHeaders returns the header set for robots.txt requests, using the
// first default profile.
func BaseHeaders(agentName string) map[string]string {
	h := map[string]string{
		"User-Agent":      DefaultProfiles[0].UserAgent,
		"Accept-Language": DefaultProfiles[0].AcceptLanguage,
		"Accept":          "text/plain,*/*;q=0.8",
	}
	if agentName != "" {
		h["User-Agent"] = DefaultProfiles[0].UserAgent + " " + agentName
	}
	return h
}
