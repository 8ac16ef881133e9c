package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/featureflags"
	"github.com/aryan0dhankhar/companyhub/internal/service"
)

// BatchHandler applies the configured batch file
type BatchHandler struct {
	batch  *service.BatchService
	logger *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batch *service.BatchService, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchHandler{batch: batch, logger: logger}
}

// ServeHTTP handles POST /api/process-json. The route answers 404 unless
// FLAG_BATCH_APPLY is enabled.
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !featureflags.Enabled(featureflags.BatchApply) {
		http.NotFound(w, r)
		return
	}

	report, err := h.batch.ApplyFile(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
