package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ParseTarget validates a caller-supplied product URL and returns its
// canonical form: lower-case scheme and host, no fragment.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	canonical := *u
	canonical.Scheme = scheme
	canonical.Host = strings.ToLower(u.Host)
	canonical.Fragment = ""
	canonical.RawFragment = ""
	if canonical.Path == "" {
		canonical.Path = "/"
	}

	return &canonical, nil
}

// Origin returns scheme://host for u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// ToAbsoluteURL resolves ref against base. Protocol-relative and
// root-relative references inherit the base scheme and host.
func ToAbsoluteURL(base *url.URL, ref string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if base == nil {
		return relURL.String(), nil
	}
	return base.ResolveReference(relURL).String(), nil
}

// HashURL creates a SHA256 hash of a URL string for use as a storage key.
func HashURL(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(h[:])
}
