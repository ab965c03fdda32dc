package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves the liveness banner and the readiness probe.
type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthHandler(checks map[string]CheckFunc, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// HandleRoot handles GET / under the API prefix.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend API is running"))
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// HandleHealthz runs every dependency check and answers 503 if any fails.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var failed []string
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Failed: failed})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
