package dto

import (
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// StateDTO представляет состояние дашборда для HTTP и WebSocket клиентов.
// Degraded выставлен, пока поток не подключен; показывать ли баннер, решает UI.
type StateDTO struct {
	Status           string                   `json:"status"`
	Degraded         bool                     `json:"degraded"`
	Version          uint64                   `json:"version"`
	UpdatedAt        *time.Time               `json:"updatedAt,omitempty"`
	LastHeartbeat    *time.Time               `json:"lastHeartbeat,omitempty"`
	ActiveBuilds     []entity.Build           `json:"activeBuilds"`
	Deployments      []entity.Deployment      `json:"recentDeployments"`
	Alerts           []entity.Alert           `json:"alerts"`
	UnresolvedAlerts int                      `json:"unresolvedAlerts"`
	Protocols        []entity.ProtocolMetrics `json:"protocols"`
	Network          *entity.NetworkMetrics   `json:"network,omitempty"`
	System           *entity.SystemMetrics    `json:"system,omitempty"`
	Overview         *entity.Overview         `json:"overview,omitempty"`
	History          []entity.MetricSample    `json:"history"`
}

// NewStateDTO конвертирует состояние и статус соединения в DTO
func NewStateDTO(state dashboard.State, status valueobject.ConnectionStatus) *StateDTO {
	return &StateDTO{
		Status:           status.String(),
		Degraded:         status.Degraded(),
		Version:          state.Version,
		UpdatedAt:        optionalTime(state.UpdatedAt),
		LastHeartbeat:    optionalTime(state.LastHeartbeat),
		ActiveBuilds:     state.Builds.Items(),
		Deployments:      state.Deployments.Items(),
		Alerts:           state.Alerts.Items(),
		UnresolvedAlerts: state.UnresolvedAlerts(),
		Protocols:        state.Protocols.Items(),
		Network:          state.Network,
		System:           state.System,
		Overview:         state.Overview,
		History:          state.History.Items(),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
