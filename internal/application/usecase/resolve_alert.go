package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// ResolveAlertUseCase отмечает alert разрешенным в upstream и в локальном состоянии
type ResolveAlertUseCase struct {
	feed       FeedState
	dispatcher FeedDispatcher
	actions    port.UpstreamActions
	logger     *logger.Logger
}

// NewResolveAlertUseCase создает новый use case.
// actions может быть nil (синтетический источник): тогда alert разрешается только локально.
func NewResolveAlertUseCase(
	feed FeedState,
	dispatcher FeedDispatcher,
	actions port.UpstreamActions,
	logger *logger.Logger,
) *ResolveAlertUseCase {
	return &ResolveAlertUseCase{
		feed:       feed,
		dispatcher: dispatcher,
		actions:    actions,
		logger:     logger,
	}
}

// Execute выполняет разрешение alert
func (uc *ResolveAlertUseCase) Execute(ctx context.Context, alertID string) error {
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return fmt.Errorf("%w: alert id is required", ErrInvalidID)
	}

	if _, ok := uc.feed.State().Alerts.Get(alertID); !ok {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}

	if uc.actions != nil {
		if err := uc.actions.ResolveAlert(ctx, alertID); err != nil {
			uc.logger.Error("Failed to resolve alert upstream", err, "alert_id", alertID)
			return fmt.Errorf("failed to resolve alert %s: %w", alertID, err)
		}
	}

	// Upstream может не прислать подтверждение: отмечаем сразу
	uc.dispatcher.Dispatch(feed.MustMessage(dashboard.TypeAlertResolved, dashboard.Ref{ID: alertID}))

	uc.logger.Info("Alert resolved", "alert_id", alertID, "feed", uc.feed.Name())
	return nil
}
