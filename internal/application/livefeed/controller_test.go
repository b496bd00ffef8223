package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var errRefused = errors.New("connection refused")

// fakeConn push-соединение в памяти
type fakeConn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []interface{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.done:
		return nil, errors.New("use of closed connection")
	case frame := <-c.frames:
		return frame, nil
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) send(frame string) {
	c.frames <- []byte(frame)
}

func (c *fakeConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) writes() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.written...)
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	dial  func(ctx context.Context, call int) (port.StreamConn, error)
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (port.StreamConn, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()
	return d.dial(ctx, call)
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeSource struct {
	mu    sync.Mutex
	calls int
	next  func(ctx context.Context, call int) (feed.Message, error)
}

func (s *fakeSource) NextSnapshot(ctx context.Context) (feed.Message, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.next(ctx, call)
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// networkSource возвращает dashboard_update с TPS = номер вызова
func networkSource() *fakeSource {
	return &fakeSource{next: func(_ context.Context, call int) (feed.Message, error) {
		return feed.NewMessage(dashboard.TypeDashboardUpdate, map[string]any{
			"network": map[string]any{"tps": float64(call * 1000), "slot": call},
		})
	}}
}

type recordingMetrics struct {
	port.NoopFeedMetrics
	mu      sync.Mutex
	dropped []string
}

func (m *recordingMetrics) MessageDropped(_, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, reason)
}

func (m *recordingMetrics) Dropped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dropped...)
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []valueobject.ConnectionStatus
}

func (r *statusRecorder) record(s valueobject.ConnectionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) All() []valueobject.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]valueobject.ConnectionStatus(nil), r.statuses...)
}

func newTestController(
	t *testing.T,
	cfg Config,
	limits dashboard.Limits,
	deps Deps,
) (*Controller[dashboard.State], *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	deps.Clock = clk
	deps.Logger = logger.New("error")

	ctrl := NewController(cfg, dashboard.NewRouter(limits), dashboard.NewState(limits), deps)
	t.Cleanup(ctrl.Close)
	return ctrl, clk
}

func buildIDs(s dashboard.State) []string {
	var ids []string
	for _, b := range s.Builds.Items() {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestController_ConnectSubscribesAndAppliesMessages(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{dial: func(context.Context, int) (port.StreamConn, error) {
		return conn, nil
	}}
	metrics := &recordingMetrics{}

	ctrl, _ := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer:  dialer,
		Metrics: metrics,
	})
	ctrl.Connect()

	require.Eventually(t, func() bool {
		return ctrl.Status() == valueobject.StatusConnected
	}, waitFor, tick)

	writes := conn.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, SubscribeMessage{Type: "subscribe", Channels: []string{"all"}}, writes[0])

	conn.send(`{"type":"build_started","data":{"id":"b1","status":"running"}}`)
	conn.send(`{not json`)
	conn.send(`{"type":"mystery","data":{}}`)
	conn.send(`{"type":"alert","data":{"id":"a1","severity":"fatal"}}`)
	conn.send(`{"type":"build_started","data":{"id":"b2"}}`)

	require.Eventually(t, func() bool {
		return len(ctrl.State().Builds.Items()) == 2
	}, waitFor, tick)

	state := ctrl.State()
	assert.Equal(t, []string{"b2", "b1"}, buildIDs(state))
	assert.Equal(t, uint64(2), state.Version)
	assert.Equal(t, 0, state.Alerts.Len())
	assert.Equal(t, []string{"malformed", "unknown_type", "invalid_payload"}, metrics.Dropped())
}

func TestController_ConnectTimeoutStartsFallback(t *testing.T) {
	dialer := &fakeDialer{dial: func(ctx context.Context, _ int) (port.StreamConn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	source := networkSource()
	statuses := &statusRecorder{}

	ctrl, clk := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.OnStatus(statuses.record)
	ctrl.Connect()

	require.Eventually(t, func() bool { return dialer.Calls() == 1 }, waitFor, tick)

	clk.Advance(2999 * time.Millisecond)
	assert.Equal(t, valueobject.StatusConnecting, ctrl.Status())
	assert.Equal(t, 0, source.Calls())

	clk.Advance(time.Millisecond)
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
	assert.Equal(t, 1, source.Calls(), "first snapshot is polled immediately")

	clk.Advance(2 * time.Second)
	clk.Advance(2 * time.Second)
	assert.Equal(t, 3, source.Calls())

	state := ctrl.State()
	require.NotNil(t, state.Network)
	assert.Equal(t, float64(3000), state.Network.TPS)
	assert.Equal(t, 3, state.History.Len(), "every poll tick appends one sample")

	assert.Equal(t, 1, dialer.Calls(), "no further attempt after fallback")
	assert.Equal(t, []valueobject.ConnectionStatus{
		valueobject.StatusDisconnected,
		valueobject.StatusFallback,
	}, statuses.All())
}

func TestController_LateConnectionIsClosedUnused(t *testing.T) {
	conn := newFakeConn()
	release := make(chan struct{})
	dialer := &fakeDialer{dial: func(context.Context, int) (port.StreamConn, error) {
		<-release
		return conn, nil
	}}

	ctrl, clk := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: networkSource(),
	})
	ctrl.Connect()
	require.Eventually(t, func() bool { return dialer.Calls() == 1 }, waitFor, tick)

	clk.Advance(3 * time.Second)
	require.Equal(t, valueobject.StatusFallback, ctrl.Status())

	close(release)
	require.Eventually(t, conn.closed, waitFor, tick)
	assert.Empty(t, conn.writes(), "late connection must not be subscribed")
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
}

func TestController_StartFallbackIsIdempotent(t *testing.T) {
	source := networkSource()
	ctrl, clk := newTestController(t, DefaultConfig(""), dashboard.DefaultLimits(), Deps{Source: source})

	ctrl.StartFallback()
	ctrl.StartFallback()

	assert.Equal(t, 1, source.Calls())
	assert.Equal(t, 1, clk.Pending(), "exactly one poll timer")
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
}

func TestController_PollErrorKeepsPreviousState(t *testing.T) {
	source := &fakeSource{next: func(_ context.Context, call int) (feed.Message, error) {
		if call == 2 {
			return feed.Message{}, errors.New("503 Service Unavailable")
		}
		return feed.NewMessage(dashboard.TypeDashboardUpdate, map[string]any{
			"network": map[string]any{"tps": float64(call)},
		})
	}}
	ctrl, clk := newTestController(t, DefaultConfig(""), dashboard.DefaultLimits(), Deps{Source: source})

	ctrl.Connect()
	before := ctrl.State()

	clk.Advance(2 * time.Second)
	assert.Equal(t, before.Version, ctrl.State().Version)

	clk.Advance(2 * time.Second)
	assert.Equal(t, float64(3), ctrl.State().Network.TPS, "polling continues after a failure")
}

func TestController_StreamCloseFallsBack(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{dial: func(context.Context, int) (port.StreamConn, error) {
		return conn, nil
	}}
	source := networkSource()
	statuses := &statusRecorder{}

	ctrl, _ := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.OnStatus(statuses.record)
	ctrl.Connect()
	require.Eventually(t, func() bool { return ctrl.Status() == valueobject.StatusConnected }, waitFor, tick)

	_ = conn.Close()

	require.Eventually(t, func() bool { return ctrl.Status() == valueobject.StatusFallback }, waitFor, tick)
	require.Eventually(t, func() bool { return source.Calls() == 1 }, waitFor, tick)
	assert.Equal(t, []valueobject.ConnectionStatus{
		valueobject.StatusConnected,
		valueobject.StatusDisconnected,
		valueobject.StatusFallback,
	}, statuses.All())
}

func TestController_ReconnectBackoffThenFallback(t *testing.T) {
	dialer := &fakeDialer{dial: func(context.Context, int) (port.StreamConn, error) {
		return nil, errRefused
	}}
	source := networkSource()

	cfg := DefaultConfig("ws://upstream/ws")
	cfg.Strategy = StrategyReconnect

	ctrl, clk := newTestController(t, cfg, dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()

	delays := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		30 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, want := range delays {
		require.Eventually(t, func() bool {
			d, ok := clk.NextDeadline()
			return ok && d == want && ctrl.Status() == valueobject.StatusReconnecting
		}, waitFor, tick, "attempt %d: want delay %v", i+1, want)

		clk.Advance(want)
	}

	require.Eventually(t, func() bool { return ctrl.Status() == valueobject.StatusFallback }, waitFor, tick)
	require.Eventually(t, func() bool { return source.Calls() == 1 }, waitFor, tick)
	assert.Equal(t, 11, dialer.Calls(), "initial attempt plus 10 reconnects")
}

func TestController_ReconnectSucceeds(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{dial: func(_ context.Context, call int) (port.StreamConn, error) {
		if call == 1 {
			return nil, errRefused
		}
		return conn, nil
	}}
	source := networkSource()

	cfg := DefaultConfig("ws://upstream/ws")
	cfg.Strategy = StrategyReconnect

	ctrl, clk := newTestController(t, cfg, dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()

	require.Eventually(t, func() bool {
		return ctrl.Status() == valueobject.StatusReconnecting
	}, waitFor, tick)
	clk.Advance(time.Second)

	require.Eventually(t, func() bool {
		return ctrl.Status() == valueobject.StatusConnected
	}, waitFor, tick)
	assert.Equal(t, 0, source.Calls())
	assert.Len(t, conn.writes(), 1)
}

func TestController_CompletedBuildExpires(t *testing.T) {
	ctrl, clk := newTestController(t, DefaultConfig(""), dashboard.DefaultLimits(), Deps{})

	ctrl.Dispatch(feed.MustMessage(dashboard.TypeBuildStarted, map[string]any{"id": "b1", "status": "pending"}))
	ctrl.Dispatch(feed.MustMessage(dashboard.TypeBuildCompleted, map[string]any{"id": "b1", "status": "success"}))
	require.Equal(t, []string{"b1"}, buildIDs(ctrl.State()))

	clk.Advance(29999 * time.Millisecond)
	assert.Equal(t, []string{"b1"}, buildIDs(ctrl.State()))

	clk.Advance(time.Millisecond)
	assert.Empty(t, buildIDs(ctrl.State()))
}

func TestController_AlertsNewestFirstCapped(t *testing.T) {
	limits := dashboard.DefaultLimits()
	limits.Alerts = 2
	ctrl, _ := newTestController(t, DefaultConfig(""), limits, Deps{})

	for _, id := range []string{"a1", "a2", "a3"} {
		ctrl.Dispatch(feed.MustMessage(dashboard.TypeAlert, map[string]any{
			"id": id, "severity": "warning", "message": "slot lag",
		}))
	}

	var ids []string
	for _, a := range ctrl.State().Alerts.Items() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a3", "a2"}, ids)
}

func TestController_NoMutationAfterClose(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{next: func(context.Context, int) (feed.Message, error) {
		close(started)
		<-release
		return feed.NewMessage(dashboard.TypeDashboardUpdate, map[string]any{
			"network": map[string]any{"tps": 4200.0},
		})
	}}

	ctrl, clk := newTestController(t, DefaultConfig(""), dashboard.DefaultLimits(), Deps{Source: source})

	updates := 0
	ctrl.OnUpdate(func(dashboard.State) { updates++ })

	ctrl.Dispatch(feed.MustMessage(dashboard.TypeBuildCompleted, map[string]any{"id": "b1"}))
	require.Equal(t, 1, updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.StartFallback()
	}()
	<-started

	ctrl.Close()
	before := ctrl.State()

	close(release)
	<-done
	clk.Advance(time.Minute)

	after := ctrl.State()
	assert.Equal(t, before.Version, after.Version)
	assert.Nil(t, after.Network, "late snapshot must be ignored")
	assert.Equal(t, []string{"b1"}, buildIDs(after), "expiry timer was cancelled")
	assert.Equal(t, 1, updates)
	assert.Equal(t, 0, clk.Pending())

	ctrl.Dispatch(feed.MustMessage(dashboard.TypeBuildStarted, map[string]any{"id": "b2"}))
	assert.Equal(t, before.Version, ctrl.State().Version)
}

func TestController_CloseCancelsPendingDial(t *testing.T) {
	dialer := &fakeDialer{dial: func(ctx context.Context, _ int) (port.StreamConn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	source := networkSource()

	ctrl, clk := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()
	require.Eventually(t, func() bool { return dialer.Calls() == 1 }, waitFor, tick)

	ctrl.Close()
	clk.Advance(time.Minute)

	assert.Equal(t, 0, source.Calls())
	assert.Equal(t, valueobject.StatusConnecting, ctrl.Status())
}

func TestController_RunClosesOnCancel(t *testing.T) {
	source := networkSource()
	ctrl, clk := newTestController(t, DefaultConfig(""), dashboard.DefaultLimits(), Deps{Source: source})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return source.Calls() == 1 }, waitFor, tick)
	cancel()
	require.NoError(t, <-done)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, source.Calls(), "no polls after Run returns")
	assert.Equal(t, 0, clk.Pending())
}

func TestController_ReconnectStrategyFirstTimeoutFallsBack(t *testing.T) {
	dialer := &fakeDialer{dial: func(ctx context.Context, _ int) (port.StreamConn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	source := networkSource()

	cfg := DefaultConfig("ws://upstream/ws")
	cfg.Strategy = StrategyReconnect

	ctrl, clk := newTestController(t, cfg, dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()
	require.Eventually(t, func() bool { return dialer.Calls() == 1 }, waitFor, tick)

	clk.Advance(3 * time.Second)
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
	assert.Equal(t, 1, source.Calls())

	clk.Advance(time.Minute)
	assert.Equal(t, 1, dialer.Calls(), "the stream is not dialed again after a first-attempt timeout")
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
}

func TestController_ReconnectTimeoutCountsAsAttempt(t *testing.T) {
	dialer := &fakeDialer{dial: func(ctx context.Context, call int) (port.StreamConn, error) {
		if call == 1 {
			return nil, errRefused
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	source := networkSource()

	cfg := DefaultConfig("ws://upstream/ws")
	cfg.Strategy = StrategyReconnect

	ctrl, clk := newTestController(t, cfg, dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()

	require.Eventually(t, func() bool { return ctrl.Status() == valueobject.StatusReconnecting }, waitFor, tick)
	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return dialer.Calls() == 2 }, waitFor, tick)

	clk.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		d, ok := clk.NextDeadline()
		return ok && d == 2*time.Second && ctrl.Status() == valueobject.StatusReconnecting
	}, waitFor, tick)
	assert.Equal(t, 0, source.Calls())
}

// slowSubscribeConn блокирует запись подписки до release
type slowSubscribeConn struct {
	*fakeConn
	entered chan struct{}
	release chan struct{}
}

func (c *slowSubscribeConn) WriteJSON(v interface{}) error {
	close(c.entered)
	<-c.release
	return c.fakeConn.WriteJSON(v)
}

func TestController_SubscribeWriteDoesNotBlockController(t *testing.T) {
	conn := &slowSubscribeConn{
		fakeConn: newFakeConn(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	dialer := &fakeDialer{dial: func(context.Context, int) (port.StreamConn, error) {
		return conn, nil
	}}
	source := networkSource()

	ctrl, _ := newTestController(t, DefaultConfig("ws://upstream/ws"), dashboard.DefaultLimits(), Deps{
		Dialer: dialer,
		Source: source,
	})
	ctrl.Connect()

	select {
	case <-conn.entered:
	case <-time.After(waitFor):
		t.Fatal("subscribe was not written")
	}

	done := make(chan struct{})
	go func() {
		_ = ctrl.State()
		ctrl.StartFallback()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		close(conn.release)
		t.Fatal("controller is blocked by a slow subscribe write")
	}
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status())
	assert.Equal(t, 1, source.Calls())

	close(conn.release)
	require.Eventually(t, conn.closed, waitFor, tick)
	assert.Equal(t, valueobject.StatusFallback, ctrl.Status(), "connection finished after fallback is discarded")
}
