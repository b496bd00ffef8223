package port

import (
	"context"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// SystemCollector собирает показатели хоста (Port).
// Реализация в Infrastructure слое (gopsutil)
type SystemCollector interface {
	Collect(ctx context.Context) (entity.SystemMetrics, error)
}
