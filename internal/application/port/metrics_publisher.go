package port

import (
	"context"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
)

// MetricsPublisher экспортирует точки истории во внешнюю observability платформу.
type MetricsPublisher interface {
	// PublishBatch буферизует или отправляет точки.
	// Реализация учитывает ограничения батча платформы (CloudWatch: 1000 datum на запрос).
	PublishBatch(ctx context.Context, samples []entity.MetricSample) error

	// Flush немедленно отправляет буфер; вызывается при graceful shutdown
	Flush(ctx context.Context) error
}
