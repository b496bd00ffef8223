package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
)

// DashboardSource опрашивает CI/CD endpoints, а с includeMonitor и данные монитора.
// Реализует port.SnapshotSource
type DashboardSource struct {
	client         *Client
	includeMonitor bool
}

// NewDashboardSource создает источник полного снимка
func NewDashboardSource(client *Client, includeMonitor bool) *DashboardSource {
	return &DashboardSource{client: client, includeMonitor: includeMonitor}
}

// NextSnapshot запрашивает endpoints параллельно; любая ошибка отменяет снимок целиком,
// и дашборд остается на прежних данных
func (s *DashboardSource) NextSnapshot(ctx context.Context) (feed.Message, error) {
	var (
		board    *DashboardResponse
		overview *entity.Overview
		data     *entity.DashboardData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		board, err = s.client.Dashboard(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		overview, err = s.client.Overview(gctx)
		return err
	})
	if s.includeMonitor {
		g.Go(func() error {
			var err error
			data, err = s.client.DashboardData(gctx)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return feed.Message{}, fmt.Errorf("failed to poll dashboard: %w", err)
	}

	snapshot := dashboard.Snapshot{
		ActiveBuilds:      nonNil(board.ActiveBuilds),
		RecentDeployments: nonNil(board.RecentDeployments),
		Overview:          overview,
	}

	msgType := dashboard.TypeInitialData
	if data != nil {
		snapshot.DashboardData = *data
		msgType = dashboard.TypeDashboardUpdate
	}

	return feed.NewMessage(msgType, snapshot)
}

// MonitorSource опрашивает только GET /api/dashboard/data
// Реализует port.SnapshotSource
type MonitorSource struct {
	client *Client
}

// NewMonitorSource создает источник данных монитора
func NewMonitorSource(client *Client) *MonitorSource {
	return &MonitorSource{client: client}
}

// NextSnapshot возвращает dashboard_update
func (s *MonitorSource) NextSnapshot(ctx context.Context) (feed.Message, error) {
	data, err := s.client.DashboardData(ctx)
	if err != nil {
		return feed.Message{}, fmt.Errorf("failed to poll dashboard data: %w", err)
	}
	return feed.NewMessage(dashboard.TypeDashboardUpdate, data)
}

// nonNil превращает отсутствующий список в пустой: опрос отдает полный снимок
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
