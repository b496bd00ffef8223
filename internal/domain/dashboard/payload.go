package dashboard

import (
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// Типы сообщений live feed
const (
	TypeStatus          = "status"
	TypeInitialData     = "initial_data"
	TypeDashboardUpdate = "dashboard_update"

	TypeBuildStarted   = "build_started"
	TypePRBuildStarted = "pr_build_started"
	TypeBuildUpdated   = "build_updated"
	TypeBuildCompleted = "build_completed"

	TypeDeploymentCreated = "deployment_created"
	TypeDeploymentUpdated = "deployment_updated"
	TypeVercelDeployment  = "vercel_deployment"
	TypeRailwayDeployment = "railway_deployment"
	TypeHerokuDeployment  = "heroku_deployment"

	TypeNetworkMetrics  = "network_metrics"
	TypeProtocolMetrics = "protocol_metrics"
	TypeAlert           = "alert"
	TypeHealthCheck     = "health_check"

	// Внутренние типы: не приходят из upstream, их порождают эффекты и use cases
	TypeBuildExpired  = "build_expired"
	TypeAlertResolved = "alert_resolved"
)

// Snapshot полный или частичный снимок.
// Отсутствующая секция (nil) не трогает состояние, пустой массив очищает список.
type Snapshot struct {
	ActiveBuilds      []entity.Build      `json:"activeBuilds"`
	RecentDeployments []entity.Deployment `json:"recentDeployments"`
	Overview          *entity.Overview    `json:"overview,omitempty"`
	entity.DashboardData
}

// Ref ссылка на сущность по id
type Ref struct {
	ID string `json:"id"`
}

// SnapshotOf собирает Snapshot из текущего состояния (для кеша и восстановления)
func SnapshotOf(s State) Snapshot {
	return Snapshot{
		ActiveBuilds:      s.Builds.Items(),
		RecentDeployments: s.Deployments.Items(),
		Overview:          s.Overview,
		DashboardData: entity.DashboardData{
			Network:   s.Network,
			Protocols: s.Protocols.Items(),
			Alerts:    s.Alerts.Items(),
			System:    s.System,
			Timestamp: s.UpdatedAt,
		},
	}
}
