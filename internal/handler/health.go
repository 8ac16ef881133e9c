package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: store, logger: logger}
}

// HealthResponse represents the health status response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /healthz - Simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz - 200 only when storage answers a ping
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"storage": "ok"}
	status, code := "ready", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		checks["storage"] = "error: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
		h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
	}

	writeJSON(w, code, ReadinessResponse{Status: status, Checks: checks})
}
