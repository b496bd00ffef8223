package dashboard

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/collection"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// NewRouter регистрирует reducers для всех известных типов сообщений
func NewRouter(limits Limits) *feed.Router[State] {
	r := reducers{limits: limits}

	return feed.NewRouter[State]().
		Handle(stamp(r.snapshot(false)), TypeInitialData, TypeStatus).
		Handle(stamp(r.snapshot(true)), TypeDashboardUpdate).
		Handle(stamp(r.buildUpsert), TypeBuildStarted, TypePRBuildStarted, TypeBuildUpdated).
		Handle(stamp(r.buildCompleted), TypeBuildCompleted).
		Handle(stamp(r.buildExpired), TypeBuildExpired).
		Handle(stamp(r.deploymentUpsert),
			TypeDeploymentCreated,
			TypeDeploymentUpdated,
			TypeVercelDeployment,
			TypeRailwayDeployment,
			TypeHerokuDeployment,
		).
		Handle(stamp(r.networkMetrics), TypeNetworkMetrics).
		Handle(stamp(r.protocolMetrics), TypeProtocolMetrics).
		Handle(stamp(r.alert), TypeAlert).
		Handle(stamp(r.alertResolved), TypeAlertResolved).
		Handle(stamp(r.healthCheck), TypeHealthCheck)
}

type reducers struct {
	limits Limits
}

// stamp увеличивает версию и время обновления после успешного reducer
func stamp(next feed.Reducer[State]) feed.Reducer[State] {
	return func(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
		out, effects, err := next(s, msg, now)
		if err != nil {
			return s, nil, err
		}
		out.Version = s.Version + 1
		out.UpdatedAt = now
		return out, effects, nil
	}
}

func (r reducers) snapshot(appendSample bool) feed.Reducer[State] {
	return func(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
		var snap Snapshot
		if err := msg.DecodeData(&snap); err != nil {
			return s, nil, err
		}

		for i := range snap.Alerts {
			alert, err := normalizeAlert(snap.Alerts[i], now)
			if err != nil {
				return s, nil, fmt.Errorf("%w: %v", feed.ErrInvalidPayload, err)
			}
			snap.Alerts[i] = keepResolved(s.Alerts, alert)
		}

		if snap.ActiveBuilds != nil {
			s.Builds = s.Builds.ReplaceAll(snap.ActiveBuilds)
		}
		if snap.RecentDeployments != nil {
			s.Deployments = s.Deployments.ReplaceAll(snap.RecentDeployments)
		}
		if snap.Overview != nil {
			overview := *snap.Overview
			s.Overview = &overview
		}
		if snap.Protocols != nil {
			s.Protocols = s.Protocols.ReplaceAll(snap.Protocols)
		}
		if snap.Alerts != nil {
			s.Alerts = s.Alerts.ReplaceAll(snap.Alerts)
		}
		if snap.Network != nil {
			network := *snap.Network
			s.Network = &network
		}
		if snap.System != nil {
			system := *snap.System
			s.System = &system
		}

		if appendSample && s.Network != nil {
			s.History = s.History.Append(sampleOf(s.Network, s.System, now))
		}

		return s, nil, nil
	}
}

func (r reducers) buildUpsert(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
	build, err := decodeValid[entity.Build](msg)
	if err != nil {
		return s, nil, err
	}

	if build.Status == "" {
		build.Status = valueobject.BuildPending
	}
	if build.StartedAt == nil && msg.Type != TypeBuildUpdated {
		started := now
		build.StartedAt = &started
	}
	if build.StartedAt == nil {
		if current, ok := s.Builds.Get(build.ID); ok {
			build.StartedAt = current.StartedAt
		}
	}

	s.Builds = s.Builds.Upsert(build)
	return s, nil, nil
}

func (r reducers) buildCompleted(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
	build, err := decodeValid[entity.Build](msg)
	if err != nil {
		return s, nil, err
	}

	if !build.Status.Terminal() {
		build.Status = valueobject.BuildSuccess
	}
	if build.CompletedAt == nil {
		completed := now
		build.CompletedAt = &completed
	}
	if build.StartedAt == nil {
		if current, ok := s.Builds.Get(build.ID); ok {
			build.StartedAt = current.StartedAt
		}
	}

	s.Builds = s.Builds.Upsert(build)

	expire := feed.MustMessage(TypeBuildExpired, Ref{ID: build.ID})
	return s, []feed.Effect{{After: r.limits.CompletedBuildTTL, Message: expire}}, nil
}

// buildExpired удаляет сборку, только если она все еще завершена:
// перезапуск с тем же id до истечения задержки не должен пропасть из ленты
func (r reducers) buildExpired(s State, msg feed.Message, _ time.Time) (State, []feed.Effect, error) {
	var ref Ref
	if err := msg.DecodeData(&ref); err != nil {
		return s, nil, err
	}

	if current, ok := s.Builds.Get(ref.ID); ok && current.Status.Terminal() {
		s.Builds = s.Builds.RemoveByID(ref.ID)
	}
	return s, nil, nil
}

func (r reducers) deploymentUpsert(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
	deployment, err := decodeValid[entity.Deployment](msg)
	if err != nil {
		return s, nil, err
	}

	if deployment.Provider == "" {
		if provider, ok := strings.CutSuffix(msg.Type, "_deployment"); ok {
			deployment.Provider = provider
		}
	}
	if deployment.Status == "" {
		deployment.Status = valueobject.BuildPending
	}
	if deployment.UpdatedAt == nil {
		updated := now
		deployment.UpdatedAt = &updated
	}
	if deployment.CreatedAt == nil {
		if current, ok := s.Deployments.Get(deployment.ID); ok && current.CreatedAt != nil {
			deployment.CreatedAt = current.CreatedAt
		} else {
			created := now
			deployment.CreatedAt = &created
		}
	}

	s.Deployments = s.Deployments.Upsert(deployment)
	return s, nil, nil
}

func (r reducers) networkMetrics(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
	var network entity.NetworkMetrics
	if err := msg.DecodeData(&network); err != nil {
		return s, nil, err
	}

	s.Network = &network
	s.History = s.History.Append(sampleOf(s.Network, s.System, now))
	return s, nil, nil
}

// protocolMetrics принимает как один объект, так и массив
func (r reducers) protocolMetrics(s State, msg feed.Message, _ time.Time) (State, []feed.Effect, error) {
	var protocols []entity.ProtocolMetrics
	if trimmed := bytes.TrimSpace(msg.Data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := msg.DecodeData(&protocols); err != nil {
			return s, nil, err
		}
	} else {
		var single entity.ProtocolMetrics
		if err := msg.DecodeData(&single); err != nil {
			return s, nil, err
		}
		protocols = []entity.ProtocolMetrics{single}
	}

	for _, p := range protocols {
		if p.Name == "" {
			return s, nil, fmt.Errorf("%w: protocol name is required", feed.ErrInvalidPayload)
		}
	}

	list := s.Protocols
	for _, p := range protocols {
		list = list.Upsert(p)
	}
	s.Protocols = list
	return s, nil, nil
}

func (r reducers) alert(s State, msg feed.Message, now time.Time) (State, []feed.Effect, error) {
	var alert entity.Alert
	if err := msg.DecodeData(&alert); err != nil {
		return s, nil, err
	}

	alert, err := normalizeAlert(alert, now)
	if err != nil {
		return s, nil, fmt.Errorf("%w: %v", feed.ErrInvalidPayload, err)
	}

	// повторное срабатывание поднимает alert в начало ленты
	s.Alerts = s.Alerts.RemoveByID(alert.ID).Upsert(alert)
	return s, nil, nil
}

// alertResolved отмечает alert разрешенным на его месте; неизвестный id игнорируется
func (r reducers) alertResolved(s State, msg feed.Message, _ time.Time) (State, []feed.Effect, error) {
	var ref Ref
	if err := msg.DecodeData(&ref); err != nil {
		return s, nil, err
	}

	if alerts, ok := s.Alerts.Update(ref.ID, entity.Alert.Resolve); ok {
		s.Alerts = alerts
	}
	return s, nil, nil
}

func (r reducers) healthCheck(s State, _ feed.Message, now time.Time) (State, []feed.Effect, error) {
	s.LastHeartbeat = now
	return s, nil, nil
}

type validatable interface {
	Validate() error
}

func decodeValid[T validatable](msg feed.Message) (T, error) {
	var v T
	if err := msg.DecodeData(&v); err != nil {
		return v, err
	}
	if err := v.Validate(); err != nil {
		return v, fmt.Errorf("%w: %s: %v", feed.ErrInvalidPayload, msg.Type, err)
	}
	return v, nil
}

func normalizeAlert(alert entity.Alert, now time.Time) (entity.Alert, error) {
	if alert.Severity == "" {
		alert.Severity = valueobject.SeverityInfo
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = now
	}
	if err := alert.Validate(); err != nil {
		return entity.Alert{}, err
	}
	return alert, nil
}

// keepResolved не дает снимку откатить локально разрешенный alert.
// Более позднее срабатывание с тем же id приходит как новый, неразрешенный alert.
func keepResolved(current collection.List[entity.Alert], alert entity.Alert) entity.Alert {
	if prev, ok := current.Get(alert.ID); ok && prev.Resolved && !alert.Timestamp.After(prev.Timestamp) {
		alert.Resolved = true
	}
	return alert
}

func sampleOf(network *entity.NetworkMetrics, system *entity.SystemMetrics, now time.Time) entity.MetricSample {
	fields := map[string]float64{
		"slot":             float64(network.Slot),
		"blockHeight":      float64(network.BlockHeight),
		"avgBlockTimeMs":   network.AvgBlockTimeMs,
		"activeValidators": float64(network.ActiveValidators),
	}
	if system != nil {
		fields["cpuUsage"] = system.CPUUsage
		fields["memoryUsage"] = system.MemoryUsage
	}

	return entity.MetricSample{
		Timestamp: now,
		Value:     network.TPS,
		Fields:    fields,
	}
}
