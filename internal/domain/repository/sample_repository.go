package repository

import (
	"context"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// SampleRepository архив точек истории сетевых метрик (Port).
// Окно в памяти ограничено 50 точками, архив хранит все.
type SampleRepository interface {
	// SaveBatch сохраняет несколько точек одной транзакцией
	SaveBatch(ctx context.Context, samples []entity.MetricSample) error

	// FindByTimeRange находит точки в диапазоне, по возрастанию времени
	FindByTimeRange(ctx context.Context, timeRange valueobject.TimeRange) ([]entity.MetricSample, error)

	// FindLatest возвращает последние limit точек, по возрастанию времени
	FindLatest(ctx context.Context, limit int) ([]entity.MetricSample, error)

	// DeleteOlderThan удаляет точки старше before и возвращает количество удаленных
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)

	// Count возвращает количество точек в архиве
	Count(ctx context.Context) (int64, error)
}
