package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/product-extractor/internal/hostpolicy"
	"github.com/maltedev/product-extractor/internal/models"
)

// Extractor runs the extraction pipeline for one URL.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*models.ProductExtractionResult, error)
}

// PolicyChecker answers host policy questions.
type PolicyChecker interface {
	Check(ctx context.Context, u *url.URL) (hostpolicy.Decision, error)
}

// BacklogReporter reports outbox queue depth for the health check.
type BacklogReporter interface {
	Backlog(ctx context.Context) (pending, deadLetter int64, err error)
}

type Handlers struct {
	extractor Extractor
	policy    PolicyChecker
	backlog   BacklogReporter
	now       func() time.Time
	logger    *slog.Logger
}

// NewHandlers creates the API handlers. backlog may be nil when no outbox is configured.
func NewHandlers(extractor Extractor, policy PolicyChecker, backlog BacklogReporter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		extractor: extractor,
		policy:    policy,
		backlog:   backlog,
		now:       time.Now,
		logger:    logger.With("component", "api"),
	}
}

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	URL string `json:"url"`
}

// PolicyResponse is the host policy decision for one URL.
type PolicyResponse struct {
	URL             string    `json:"url"`
	Allowed         bool      `json:"allowed"`
	DisallowedPaths []string  `json:"disallowed_paths"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

type errorResponse struct {
	Error models.Error `json:"error"`
}

// Extract handles product extraction requests.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "InvalidURL", "invalid request body", "")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "InvalidURL", "url is required", "")
		return
	}

	result, err := h.extractor.Extract(r.Context(), req.URL)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("extraction failed", "url", req.URL, "error", err)
		}
		h.respondError(w, status, models.ErrorCode(err), err.Error(), req.URL)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Policy reports whether a URL may be fetched. Refusals are a normal answer,
// not an error.
func (h *Handlers) Policy(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		h.respondError(w, http.StatusBadRequest, "InvalidURL", "url query parameter is required", "")
		return
	}

	target, err := models.ParseTarget(raw)
	if err != nil {
		h.respondError(w, StatusFor(err), models.ErrorCode(err), err.Error(), raw)
		return
	}

	decision, err := h.policy.Check(r.Context(), target)
	resp := PolicyResponse{
		URL:             target.String(),
		Allowed:         err == nil,
		DisallowedPaths: decision.DisallowedPaths,
		ExpiresAt:       decision.ExpiresAt,
	}
	if resp.DisallowedPaths == nil {
		resp.DisallowedPaths = []string{}
	}
	if err != nil {
		if !models.IsPolicyError(err) {
			h.respondError(w, StatusFor(err), models.ErrorCode(err), err.Error(), raw)
			return
		}
		resp.Reason = models.ErrorCode(err)
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Health reports service status, including the outbox backlog when present.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
	}
	status := http.StatusOK

	if h.backlog != nil {
		pending, deadLetter, err := h.backlog.Backlog(r.Context())
		if err != nil {
			h.logger.Warn("failed to read outbox backlog", "error", err)
			health["status"] = "warning"
			health["message"] = "outbox backlog unavailable"
		} else {
			health["outbox"] = map[string]interface{}{
				"pending":     pending,
				"dead_letter": deadLetter,
			}
			if pending > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if deadLetter > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnsupportedScheme), errors.Is(err, models.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrHostNotAllowed),
		errors.Is(err, models.ErrRobotsDisallowed),
		errors.Is(err, models.ErrMetaRobotsBlocked):
		return http.StatusForbidden
	case errors.Is(err, models.ErrScrapeFailed):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, code, message, rawURL string) {
	h.respondJSON(w, status, errorResponse{Error: models.Error{
		Code:    code,
		Message: message,
		Time:    h.now().UTC(),
		URL:     rawURL,
	}})
}
