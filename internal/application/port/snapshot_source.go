package port

import (
	"context"

	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
)

// SnapshotSource источник снимков для fallback режима (Port).
// Реализации: HTTP poller upstream API и синтетический генератор.
type SnapshotSource interface {
	// NextSnapshot возвращает следующее сообщение для маршрутизатора
	NextSnapshot(ctx context.Context) (feed.Message, error)
}
