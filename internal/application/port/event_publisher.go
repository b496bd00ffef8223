package port

import (
	"context"
)

// EventPublisher публикует события feed в брокер сообщений (Port)
type EventPublisher interface {
	// PublishEvent публикует событие в subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	Close() error
}
