package handler

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/dreschagin/devex-dashboard/internal/application/usecase"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/api"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// ActionsAPIHandler проксирует действия пользователя в upstream API
type ActionsAPIHandler struct {
	retryBuildUC   *usecase.RetryBuildUseCase
	resolveAlertUC *usecase.ResolveAlertUseCase
	logger         *logger.Logger
}

// NewActionsAPIHandler создает новый handler
func NewActionsAPIHandler(
	retryBuildUC *usecase.RetryBuildUseCase,
	resolveAlertUC *usecase.ResolveAlertUseCase,
	logger *logger.Logger,
) *ActionsAPIHandler {
	return &ActionsAPIHandler{
		retryBuildUC:   retryBuildUC,
		resolveAlertUC: resolveAlertUC,
		logger:         logger,
	}
}

// RetryBuild POST /api/builds/{id}/retry
func (h *ActionsAPIHandler) RetryBuild(w http.ResponseWriter, r *http.Request) {
	if h.retryBuildUC == nil {
		writeError(w, http.StatusServiceUnavailable, "Upstream API is not configured")
		return
	}

	id := r.PathValue("id")
	if err := h.retryBuildUC.Execute(r.Context(), id); err != nil {
		h.writeActionError(w, "retry build", id, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResolveAlert POST /api/alerts/{id}/resolve
func (h *ActionsAPIHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.resolveAlertUC.Execute(r.Context(), id); err != nil {
		h.writeActionError(w, "resolve alert", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ActionsAPIHandler) writeActionError(w http.ResponseWriter, action, id string, err error) {
	var apiErr *api.APIError

	switch {
	case errors.Is(err, usecase.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, usecase.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, "Alert not found")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "Upstream API unavailable")
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		writeError(w, http.StatusNotFound, "Not found upstream")
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		writeError(w, http.StatusBadRequest, apiErr.Error())
	default:
		h.logger.Error("Upstream action failed", err, "action", action, "id", id)
		writeError(w, http.StatusBadGateway, "Upstream action failed")
	}
}
