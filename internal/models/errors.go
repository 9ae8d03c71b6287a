package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrHostNotAllowed    = errors.New("host not allowed")
	ErrRobotsDisallowed  = errors.New("disallowed by robots.txt")
	ErrMetaRobotsBlocked = errors.New("blocked by meta robots directive")
	ErrTimeout           = errors.New("request timed out")
	ErrEmptyResponse     = errors.New("empty response body")
	ErrScrapeFailed      = errors.New("scrape failed")
)

// Error is the JSON error body returned to API callers.
type Error struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	URL     string    `json:"url,omitempty"`
}

// ErrorCode maps an error to its kind name. Policy kinds are checked before
// ScrapeFailed so a wrapped policy error keeps its own code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return "InvalidURL"
	case errors.Is(err, ErrUnsupportedScheme):
		return "UnsupportedScheme"
	case errors.Is(err, ErrHostNotAllowed):
		return "HostNotAllowed"
	case errors.Is(err, ErrRobotsDisallowed):
		return "RobotsDisallowed"
	case errors.Is(err, ErrMetaRobotsBlocked):
		return "MetaRobotsBlocked"
	case errors.Is(err, ErrScrapeFailed):
		return "ScrapeFailed"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrEmptyResponse):
		return "EmptyResponse"
	default:
		return "Internal"
	}
}

// IsPolicyError reports whether err is a fatal policy decision that must not be retried.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrHostNotAllowed) ||
		errors.Is(err, ErrRobotsDisallowed) ||
		errors.Is(err, ErrMetaRobotsBlocked) ||
		errors.Is(err, ErrUnsupportedScheme) ||
		errors.Is(err, ErrInvalidURL)
}
