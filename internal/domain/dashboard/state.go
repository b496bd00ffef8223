// Package dashboard состояние DevEx дашборда и reducers для всех типов сообщений live feed.
package dashboard

import (
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/collection"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// Limits емкости списков и задержка удаления завершенных сборок
type Limits struct {
	Deployments       int
	Alerts            int
	History           int
	CompletedBuildTTL time.Duration
}

// DefaultLimits значения, с которыми работают дашборды
func DefaultLimits() Limits {
	return Limits{
		Deployments:       10,
		Alerts:            10,
		History:           collection.DefaultHistoryCapacity,
		CompletedBuildTTL: 30 * time.Second,
	}
}

// State иммутабельное состояние одного дашборда.
// Reducers возвращают новое значение; указатели внутри никогда не изменяются по месту.
type State struct {
	Builds      collection.List[entity.Build]
	Deployments collection.List[entity.Deployment]
	Alerts      collection.List[entity.Alert]
	Protocols   collection.List[entity.ProtocolMetrics]
	Network     *entity.NetworkMetrics
	System      *entity.SystemMetrics
	Overview    *entity.Overview
	History     collection.History[entity.MetricSample]

	LastHeartbeat time.Time
	UpdatedAt     time.Time
	Version       uint64
}

// NewState создает пустое состояние с емкостями из limits.
// Активные сборки не ограничены: их вытесняет таймер после завершения.
func NewState(limits Limits) State {
	return State{
		Builds:      collection.NewList[entity.Build](0),
		Deployments: collection.NewList[entity.Deployment](limits.Deployments),
		Alerts:      collection.NewList[entity.Alert](limits.Alerts),
		Protocols:   collection.NewList[entity.ProtocolMetrics](0),
		History:     collection.NewHistory[entity.MetricSample](limits.History),
	}
}

// HasData сообщает, получено ли хоть одно сообщение с данными
func (s State) HasData() bool {
	return s.Version > 0
}

// UnresolvedAlerts возвращает количество неразрешенных alerts
func (s State) UnresolvedAlerts() int {
	count := 0
	for _, a := range s.Alerts.Items() {
		if !a.Resolved {
			count++
		}
	}
	return count
}
