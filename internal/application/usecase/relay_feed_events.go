package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/dreschagin/devex-dashboard/internal/application/dto"
	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/repository"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// Sinks для RelayFailureCounter
const (
	SinkNotifier = "notifier"
	SinkEvents   = "events"
	SinkArchive  = "archive"
	SinkExporter = "exporter"
	SinkCache    = "cache"
)

// RelayFailureCounter учитывает ошибки записи в sinks
type RelayFailureCounter interface {
	RelayFailed(sink string)
}

// RelayConfig настройки relay
type RelayConfig struct {
	StatusSubject   string
	AlertSubject    string
	CacheWriteEvery time.Duration
	FlushTimeout    time.Duration
}

// RelaySinks получатели состояния; любой может быть nil
type RelaySinks struct {
	Notifier port.NotificationService
	Events   port.EventPublisher
	Archive  repository.SampleRepository
	Exporter port.MetricsPublisher
	Cache    port.Cache
	Failures RelayFailureCounter
}

// RelayFeedEventsUseCase раздает изменения live feed во внешние системы.
// Слушатели контроллера только будят worker; worker читает актуальное состояние,
// поэтому серия быстрых обновлений схлопывается в одну рассылку.
type RelayFeedEventsUseCase struct {
	feed   FeedSubscriber
	sinks  RelaySinks
	config RelayConfig
	clock  clock.Clock
	logger *logger.Logger

	wake       chan struct{}
	cacheWrite rate.Sometimes

	lastStatus valueobject.ConnectionStatus
	lastSample time.Time
	alerts     map[string]entity.Alert
}

// NewRelayFeedEventsUseCase создает relay и подписывается на feed
func NewRelayFeedEventsUseCase(
	feed FeedSubscriber,
	sinks RelaySinks,
	config RelayConfig,
	clk clock.Clock,
	logger *logger.Logger,
) *RelayFeedEventsUseCase {
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 10 * time.Second
	}

	uc := &RelayFeedEventsUseCase{
		feed:   feed,
		sinks:  sinks,
		config: config,
		clock:  clk,
		logger: logger,
		wake:   make(chan struct{}, 1),
		alerts: make(map[string]entity.Alert),
	}
	if config.CacheWriteEvery > 0 {
		uc.cacheWrite.Interval = config.CacheWriteEvery
	} else {
		uc.cacheWrite.Every = 1
	}

	feed.OnUpdate(func(dashboard.State) { uc.signal() })
	feed.OnStatus(func(valueobject.ConnectionStatus) { uc.signal() })

	return uc
}

// signal вызывается под блокировкой контроллера и не должен блокироваться
func (uc *RelayFeedEventsUseCase) signal() {
	select {
	case uc.wake <- struct{}{}:
	default:
	}
}

// Run обрабатывает изменения до отмены ctx, затем сбрасывает буферы sinks
func (uc *RelayFeedEventsUseCase) Run(ctx context.Context) error {
	uc.logger.Info("Feed relay started", "feed", uc.feed.Name())

	for {
		select {
		case <-ctx.Done():
			uc.shutdown()
			return nil
		case <-uc.wake:
			uc.Sync(ctx)
		}
	}
}

// Sync рассылает текущее состояние во все sinks
func (uc *RelayFeedEventsUseCase) Sync(ctx context.Context) {
	state := uc.feed.State()
	status := uc.feed.Status()

	if uc.sinks.Notifier != nil {
		uc.sinks.Notifier.Broadcast(dto.NewStateDTO(state, status))
	}

	uc.publishStatus(ctx, status)
	uc.publishAlerts(ctx, state.Alerts.Items())
	uc.persistSamples(ctx, state.History.Items())

	if uc.sinks.Cache != nil && state.HasData() {
		uc.cacheWrite.Do(func() { uc.writeSnapshot(ctx, state) })
	}
}

func (uc *RelayFeedEventsUseCase) publishStatus(ctx context.Context, status valueobject.ConnectionStatus) {
	if status == uc.lastStatus {
		return
	}
	previous := uc.lastStatus
	uc.lastStatus = status

	if uc.sinks.Events == nil {
		return
	}

	event := dto.FeedStatusEvent{
		Feed:      uc.feed.Name(),
		Status:    status.String(),
		Previous:  previous.String(),
		Degraded:  status.Degraded(),
		Timestamp: uc.clock.Now(),
	}
	if err := uc.sinks.Events.PublishEvent(ctx, uc.config.StatusSubject, event); err != nil {
		uc.failed(SinkEvents, err)
	}
}

// publishAlerts публикует новые и измененные alerts; вытесненные забываются
func (uc *RelayFeedEventsUseCase) publishAlerts(ctx context.Context, alerts []entity.Alert) {
	seen := make(map[string]entity.Alert, len(alerts))

	for _, alert := range alerts {
		seen[alert.ID] = alert

		if prev, ok := uc.alerts[alert.ID]; ok && sameAlert(prev, alert) {
			continue
		}
		if uc.sinks.Events == nil {
			continue
		}

		event := dto.AlertEvent{
			Feed:      uc.feed.Name(),
			Alert:     alert,
			Timestamp: uc.clock.Now(),
		}
		if err := uc.sinks.Events.PublishEvent(ctx, uc.config.AlertSubject, event); err != nil {
			uc.failed(SinkEvents, err)
		}
	}

	uc.alerts = seen
}

// persistSamples сохраняет точки новее последней сохраненной
func (uc *RelayFeedEventsUseCase) persistSamples(ctx context.Context, history []entity.MetricSample) {
	var fresh []entity.MetricSample
	for _, sample := range history {
		if sample.Timestamp.After(uc.lastSample) {
			fresh = append(fresh, sample)
		}
	}
	if len(fresh) == 0 {
		return
	}
	// Позиция сдвигается и при ошибке: повтор всего окна дал бы дубли в экспорте
	uc.lastSample = fresh[len(fresh)-1].Timestamp

	if uc.sinks.Archive != nil {
		if err := uc.sinks.Archive.SaveBatch(ctx, fresh); err != nil {
			uc.failed(SinkArchive, err)
		}
	}
	if uc.sinks.Exporter != nil {
		if err := uc.sinks.Exporter.PublishBatch(ctx, fresh); err != nil {
			uc.failed(SinkExporter, err)
		}
	}
}

func (uc *RelayFeedEventsUseCase) writeSnapshot(ctx context.Context, state dashboard.State) {
	key := redis.SnapshotKey(uc.feed.Name())
	if err := uc.sinks.Cache.Set(ctx, key, dashboard.SnapshotOf(state)); err != nil {
		uc.failed(SinkCache, err)
	}
}

// shutdown сохраняет последний снимок и сбрасывает буфер экспорта
func (uc *RelayFeedEventsUseCase) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), uc.config.FlushTimeout)
	defer cancel()

	uc.Sync(ctx)

	state := uc.feed.State()
	if uc.sinks.Cache != nil && state.HasData() {
		uc.writeSnapshot(ctx, state)
	}
	if uc.sinks.Exporter != nil {
		if err := uc.sinks.Exporter.Flush(ctx); err != nil {
			uc.failed(SinkExporter, err)
		}
	}

	uc.logger.Info("Feed relay stopped", "feed", uc.feed.Name())
}

func (uc *RelayFeedEventsUseCase) failed(sink string, err error) {
	uc.logger.Warn("Feed relay sink failed", "sink", sink, "feed", uc.feed.Name(), "error", err.Error())
	if uc.sinks.Failures != nil {
		uc.sinks.Failures.RelayFailed(sink)
	}
}

// sameAlert сравнивает жизненный цикл alert: текст с текущим значением показателя
// меняется на каждом снимке и событием не считается
func sameAlert(a, b entity.Alert) bool {
	return a.Severity == b.Severity &&
		a.Source == b.Source &&
		a.Resolved == b.Resolved &&
		a.Timestamp.Equal(b.Timestamp)
}
