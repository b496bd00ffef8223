package handler

import (
	"net/http"

	"github.com/dreschagin/devex-dashboard/internal/application/dto"
	"github.com/dreschagin/devex-dashboard/internal/application/usecase"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// StateHandler отдает текущее состояние дашборда и probes
type StateHandler struct {
	feed   usecase.FeedState
	logger *logger.Logger
}

// NewStateHandler создает новый handler
func NewStateHandler(feed usecase.FeedState, logger *logger.Logger) *StateHandler {
	return &StateHandler{feed: feed, logger: logger}
}

// GetState возвращает снимок состояния со статусом соединения
func (h *StateHandler) GetState(w http.ResponseWriter, _ *http.Request) {
	state := dto.NewStateDTO(h.feed.State(), h.feed.Status())
	if err := writeJSON(w, http.StatusOK, state); err != nil {
		h.logger.Error("Failed to encode state response", err)
	}
}

// Healthz liveness probe
func (h *StateHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz готов, когда применено хотя бы одно сообщение (из потока, опроса или кеша)
func (h *StateHandler) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.feed.State().HasData() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("waiting for data: " + h.feed.Status().String()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
