package main

import (
	"context"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/repository"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// runRetention раз в час удаляет из архива точки старше retention
func runRetention(ctx context.Context, repo repository.SampleRepository, retention time.Duration, log *logger.Logger) error {
	ticker := time.NewTicker(retentionInterval(retention))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			deleted, err := repo.DeleteOlderThan(ctx, now.Add(-retention))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("Failed to delete archived samples", err, "retention", retention.String())
				continue
			}
			if deleted > 0 {
				log.Info("Archived samples cleaned up", "deleted", deleted, "retention", retention.String())
			}
		}
	}
}

// retentionInterval час, но не реже одной проверки за период хранения
func retentionInterval(retention time.Duration) time.Duration {
	if retention < time.Hour {
		return retention
	}
	return time.Hour
}
