package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/application/dto"
	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New("error")
}

// mockFeed прогоняет сообщения через настоящий роутер дашборда
type mockFeed struct {
	mu       sync.Mutex
	clock    *clock.Fake
	router   *feed.Router[dashboard.State]
	state    dashboard.State
	status   valueobject.ConnectionStatus
	updates  []func(dashboard.State)
	statuses []func(valueobject.ConnectionStatus)
}

func newMockFeed() *mockFeed {
	limits := dashboard.DefaultLimits()
	return &mockFeed{
		clock:  clock.NewFake(testNow),
		router: dashboard.NewRouter(limits),
		state:  dashboard.NewState(limits),
		status: valueobject.StatusConnecting,
	}
}

func (f *mockFeed) Name() string { return "dashboard" }

func (f *mockFeed) State() dashboard.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *mockFeed) Status() valueobject.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *mockFeed) OnUpdate(fn func(dashboard.State)) {
	f.updates = append(f.updates, fn)
}

func (f *mockFeed) OnStatus(fn func(valueobject.ConnectionStatus)) {
	f.statuses = append(f.statuses, fn)
}

func (f *mockFeed) Dispatch(msg feed.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, _, err := f.router.Route(f.state, msg, f.clock.Now())
	if err != nil {
		return
	}
	f.state = next
	for _, fn := range f.updates {
		fn(next)
	}
}

func (f *mockFeed) setStatus(status valueobject.ConnectionStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = status
	for _, fn := range f.statuses {
		fn(status)
	}
}

// send упаковывает payload и применяет его через Dispatch
func (f *mockFeed) send(msgType string, payload any) {
	f.Dispatch(feed.MustMessage(msgType, payload))
}

type mockActions struct {
	retried  []string
	resolved []string
	err      error
}

func (m *mockActions) RetryBuild(_ context.Context, id string) error {
	m.retried = append(m.retried, id)
	return m.err
}

func (m *mockActions) ResolveAlert(_ context.Context, id string) error {
	m.resolved = append(m.resolved, id)
	return m.err
}

type mockCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.items[key]
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrCacheMiss, key)
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.sets++
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *mockCache) DeletePattern(context.Context, string) error { return nil }

func (m *mockCache) Close() error { return nil }

func (m *mockCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

type mockArchive struct {
	mu      sync.Mutex
	saved   []entity.MetricSample
	stored  []entity.MetricSample
	queries int
	err     error
}

func (m *mockArchive) SaveBatch(_ context.Context, samples []entity.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, samples...)
	return nil
}

func (m *mockArchive) FindByTimeRange(_ context.Context, tr valueobject.TimeRange) ([]entity.MetricSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	var out []entity.MetricSample
	for _, s := range m.stored {
		if tr.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out, m.err
}

func (m *mockArchive) FindLatest(context.Context, int) ([]entity.MetricSample, error) {
	return nil, nil
}

func (m *mockArchive) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *mockArchive) Count(context.Context) (int64, error) {
	return int64(len(m.saved)), nil
}

type mockExporter struct {
	mu        sync.Mutex
	published []entity.MetricSample
	flushes   int
}

func (m *mockExporter) PublishBatch(_ context.Context, samples []entity.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, samples...)
	return nil
}

func (m *mockExporter) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockEvents) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (m *mockEvents) Close() error { return nil }

func (m *mockEvents) bySubject(subject string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []interface{}
	for _, e := range m.events {
		if e.subject == subject {
			out = append(out, e.event)
		}
	}
	return out
}

type mockNotifier struct {
	mu     sync.Mutex
	states []*dto.StateDTO
}

func (m *mockNotifier) Broadcast(state *dto.StateDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *mockNotifier) ClientCount() int { return 0 }

func (m *mockNotifier) last() *dto.StateDTO {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.states) == 0 {
		return nil
	}
	return m.states[len(m.states)-1]
}

type mockFailures struct {
	mu    sync.Mutex
	sinks []string
}

func (m *mockFailures) RelayFailed(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}
