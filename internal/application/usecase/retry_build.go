package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// RetryBuildUseCase перезапускает сборку через upstream API.
// Состояние не меняется локально: новая сборка придет из feed как build_started.
type RetryBuildUseCase struct {
	actions port.UpstreamActions
	logger  *logger.Logger
}

// NewRetryBuildUseCase создает новый use case
func NewRetryBuildUseCase(actions port.UpstreamActions, logger *logger.Logger) *RetryBuildUseCase {
	return &RetryBuildUseCase{
		actions: actions,
		logger:  logger,
	}
}

// Execute выполняет перезапуск сборки
func (uc *RetryBuildUseCase) Execute(ctx context.Context, buildID string) error {
	buildID = strings.TrimSpace(buildID)
	if buildID == "" {
		return fmt.Errorf("%w: build id is required", ErrInvalidID)
	}

	if err := uc.actions.RetryBuild(ctx, buildID); err != nil {
		uc.logger.Error("Failed to retry build", err, "build_id", buildID)
		return fmt.Errorf("failed to retry build %s: %w", buildID, err)
	}

	uc.logger.Info("Build retry requested", "build_id", buildID)
	return nil
}
