package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/application/usecase"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// MetricsAPIHandler обрабатывает API запросы истории TPS
type MetricsAPIHandler struct {
	getSampleHistoryUC *usecase.GetSampleHistoryUseCase
	logger             *logger.Logger
}

// NewMetricsAPIHandler создает новый handler
func NewMetricsAPIHandler(getSampleHistoryUC *usecase.GetSampleHistoryUseCase, logger *logger.Logger) *MetricsAPIHandler {
	return &MetricsAPIHandler{
		getSampleHistoryUC: getSampleHistoryUC,
		logger:             logger,
	}
}

// GetSampleHistory возвращает историю: ?duration=10m&source=window|archive
func (h *MetricsAPIHandler) GetSampleHistory(w http.ResponseWriter, r *http.Request) {
	durationStr := r.URL.Query().Get("duration")
	source := r.URL.Query().Get("source")

	if durationStr == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: duration")
		return
	}

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid duration format")
		return
	}

	history, err := h.getSampleHistoryUC.Execute(r.Context(), source, duration)
	switch {
	case errors.Is(err, usecase.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "Duration out of allowed range")
		return
	case errors.Is(err, usecase.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, "Invalid source")
		return
	case errors.Is(err, usecase.ErrArchiveDisabled):
		writeError(w, http.StatusServiceUnavailable, "Sample archive is not configured")
		return
	case err != nil:
		h.logger.Error("Failed to get sample history", err, "source", source)
		writeError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	if err := writeJSON(w, http.StatusOK, history); err != nil {
		h.logger.Error("Failed to encode sample history response", err)
	}
}
