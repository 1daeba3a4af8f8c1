package handlers

import (
	"net/http"
	"time"

	"github.com/webcitydotdev/woodwork-site-example/internal/platform/httpx"
)

// HealthHandlers serves the liveness endpoint.
type HealthHandlers struct {
	started time.Time
	clock   func() time.Time
	version string
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthClock overrides the clock (tests).
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthVersion reports the build version.
func WithHealthVersion(version string) HealthOption {
	return func(h *HealthHandlers) { h.version = version }
}

// NewHealthHandlers constructs HealthHandlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.clock()
	return h
}

// Healthz responds with a simple status payload for monitoring.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	payload := map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.version != "" {
		payload["version"] = h.version
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, payload)
}
