package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// RestoreSnapshotUseCase засевает состояние последним снимком из кеша,
// чтобы клиенты видели данные до первого сообщения upstream
type RestoreSnapshotUseCase struct {
	cache      port.Cache
	dispatcher FeedDispatcher
	logger     *logger.Logger
}

// NewRestoreSnapshotUseCase создает новый use case
func NewRestoreSnapshotUseCase(cache port.Cache, dispatcher FeedDispatcher, logger *logger.Logger) *RestoreSnapshotUseCase {
	return &RestoreSnapshotUseCase{
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Execute восстанавливает снимок feed. Возвращает false, если снимка нет.
func (uc *RestoreSnapshotUseCase) Execute(ctx context.Context, feedName string) (bool, error) {
	var snap dashboard.Snapshot
	err := uc.cache.Get(ctx, redis.SnapshotKey(feedName), &snap)
	if errors.Is(err, port.ErrCacheMiss) {
		uc.logger.Debug("No cached snapshot", "feed", feedName)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	msg, err := feed.NewMessage(dashboard.TypeInitialData, snap)
	if err != nil {
		return false, err
	}
	uc.dispatcher.Dispatch(msg)

	uc.logger.Info("Restored cached snapshot",
		"feed", feedName,
		"builds", len(snap.ActiveBuilds),
		"alerts", len(snap.Alerts),
	)
	return true, nil
}
