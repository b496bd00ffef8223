package dto

import (
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// FeedStatusEvent публикуется в брокер при смене статуса соединения
type FeedStatusEvent struct {
	Feed      string    `json:"feed"`
	Status    string    `json:"status"`
	Previous  string    `json:"previous"`
	Degraded  bool      `json:"degraded"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertEvent публикуется в брокер для нового или измененного alert
type AlertEvent struct {
	Feed      string       `json:"feed"`
	Alert     entity.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}
