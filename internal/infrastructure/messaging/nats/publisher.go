package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

const (
	// StreamName поток JetStream для событий feed
	StreamName = "DEVEX_FEED"

	streamMaxAge = 24 * time.Hour
)

// NATSPublisher implements EventPublisher for NATS JetStream
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher.
// Subjects публикуются с префиксом prefix, поток покрывает "<prefix>.>".
func NewNATSPublisher(natsURL, prefix string, log *logger.Logger) (*NATSPublisher, error) {
	// Connect to NATS with retry
	nc, err := nats.Connect(natsURL,
		nats.Name("devex-dashboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Get JetStream context
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL, "prefix", prefix)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		prefix: prefix,
		logger: log,
	}, nil
}

// EnsureStream создает поток, если его еще нет, иначе обновляет subjects
func (p *NATSPublisher) EnsureStream(ctx context.Context) error {
	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{p.prefix + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAge,
		Discard:   nats.DiscardOld,
	}

	_, err := p.js.StreamInfo(StreamName, nats.Context(ctx))
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := p.js.AddStream(cfg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		p.logger.Info("Created JetStream stream", "stream", StreamName)
	case err != nil:
		return fmt.Errorf("failed to get stream info: %w", err)
	default:
		if _, err := p.js.UpdateStream(cfg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("failed to update stream: %w", err)
		}
	}

	return nil
}

// Subject полное имя subject с префиксом
func (p *NATSPublisher) Subject(name string) string {
	return p.prefix + "." + name
}

// PublishEvent publishes an event to NATS (async)
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Marshal event to JSON
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Async publish (fire-and-forget for better performance)
	_, err = p.js.PublishAsync(subject, data)
	if err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Flush ждет подтверждения всех асинхронных публикаций
func (p *NATSPublisher) Flush(ctx context.Context) error {
	select {
	case <-p.js.PublishAsyncComplete():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush NATS publishes: %w", ctx.Err())
	}
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	p.logger.Info("Closing NATS connection")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		p.logger.Warn("Pending NATS publishes dropped", "error", err.Error())
	}

	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
