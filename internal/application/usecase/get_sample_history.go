package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/application/dto"
	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/repository"
	"github.com/dreschagin/devex-dashboard/internal/domain/service"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

var (
	// ErrInvalidDuration длительность вне допустимого диапазона
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidSource неизвестный источник истории
	ErrInvalidSource = errors.New("invalid history source")

	// ErrArchiveDisabled архив (PostgreSQL) не настроен
	ErrArchiveDisabled = errors.New("sample archive is disabled")
)

// HistoryConfig ограничения запроса истории
type HistoryConfig struct {
	MaxDuration  time.Duration
	DipThreshold float64 // TPS ниже порога считается провалом
}

// GetSampleHistoryUseCase возвращает историю TPS из окна в памяти или из архива.
// Ответы архива кешируются с минутной гранулярностью.
type GetSampleHistoryUseCase struct {
	feed       FeedState
	repository repository.SampleRepository
	cache      port.Cache
	aggregator *service.SampleAggregator
	clock      clock.Clock
	config     HistoryConfig
	logger     *logger.Logger
}

// NewGetSampleHistoryUseCase создает новый use case; repository и cache могут быть nil
func NewGetSampleHistoryUseCase(
	feed FeedState,
	repository repository.SampleRepository,
	cache port.Cache,
	aggregator *service.SampleAggregator,
	clk clock.Clock,
	config HistoryConfig,
	logger *logger.Logger,
) *GetSampleHistoryUseCase {
	if config.MaxDuration <= 0 {
		config.MaxDuration = 24 * time.Hour
	}

	return &GetSampleHistoryUseCase{
		feed:       feed,
		repository: repository,
		cache:      cache,
		aggregator: aggregator,
		clock:      clk,
		config:     config,
		logger:     logger,
	}
}

// Execute выполняет получение истории за duration
func (uc *GetSampleHistoryUseCase) Execute(ctx context.Context, source string, duration time.Duration) (*dto.SampleHistoryDTO, error) {
	if duration <= 0 || duration > uc.config.MaxDuration {
		return nil, fmt.Errorf("%w: must be in (0, %s]", ErrInvalidDuration, uc.config.MaxDuration)
	}

	now := uc.clock.Now()
	timeRange, err := valueobject.NewTimeRangeEndingAt(now, duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}

	switch source {
	case dto.HistorySourceWindow, "":
		return uc.window(timeRange), nil
	case dto.HistorySourceArchive:
		return uc.archive(ctx, timeRange, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
}

// window история из кольцевого буфера состояния
func (uc *GetSampleHistoryUseCase) window(timeRange valueobject.TimeRange) *dto.SampleHistoryDTO {
	items := uc.feed.State().History.Items()

	samples := make([]entity.MetricSample, 0, len(items))
	for _, s := range items {
		if timeRange.Contains(s.Timestamp) {
			samples = append(samples, s)
		}
	}

	return uc.aggregate(dto.HistorySourceWindow, timeRange.Duration(), samples)
}

func (uc *GetSampleHistoryUseCase) archive(ctx context.Context, timeRange valueobject.TimeRange, now time.Time) (*dto.SampleHistoryDTO, error) {
	if uc.repository == nil {
		return nil, ErrArchiveDisabled
	}

	cacheKey := redis.HistoryKey(dto.HistorySourceArchive, timeRange.Duration(), now)
	if uc.cache != nil {
		var cached dto.SampleHistoryDTO
		err := uc.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			uc.logger.Debug("Cache hit for sample history", "key", cacheKey)
			return &cached, nil
		}
		if !errors.Is(err, port.ErrCacheMiss) {
			uc.logger.Warn("Failed to read history cache", "error", err.Error())
		}
	}

	samples, err := uc.repository.FindByTimeRange(ctx, timeRange)
	if err != nil {
		uc.logger.Error("Failed to fetch archived samples", err)
		return nil, fmt.Errorf("failed to fetch archived samples: %w", err)
	}

	history := uc.aggregate(dto.HistorySourceArchive, timeRange.Duration(), samples)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, history); err != nil {
			uc.logger.Warn("Failed to cache sample history", "error", err.Error())
		}
	}

	return history, nil
}

func (uc *GetSampleHistoryUseCase) aggregate(source string, duration time.Duration, samples []entity.MetricSample) *dto.SampleHistoryDTO {
	history := &dto.SampleHistoryDTO{
		Source:   source,
		Duration: duration.String(),
		Samples:  uc.aggregator.SortByTime(samples, false),
	}
	if len(samples) == 0 {
		return history
	}

	// ошибки возможны только для пустого среза
	history.Average, _ = uc.aggregator.CalculateAverage(samples)
	history.Min, _ = uc.aggregator.CalculateMin(samples)
	history.Max, _ = uc.aggregator.CalculateMax(samples)
	history.P95, _ = uc.aggregator.CalculatePercentile(samples, 95)
	if uc.config.DipThreshold > 0 {
		history.DipCount = len(uc.aggregator.FindBelow(samples, uc.config.DipThreshold))
	}

	return history
}
