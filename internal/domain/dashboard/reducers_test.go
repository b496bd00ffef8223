package dashboard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/devex-dashboard/internal/domain/feed"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(msgType, data string) feed.Message {
	return feed.Message{Type: msgType, Data: json.RawMessage(data)}
}

func apply(t *testing.T, r *feed.Router[State], s State, m feed.Message, now time.Time) (State, []feed.Effect) {
	t.Helper()
	next, effects, err := r.Route(s, m, now)
	if err != nil {
		t.Fatalf("Route(%s) error = %v", m.Type, err)
	}
	return next, effects
}

func buildIDs(s State) []string {
	ids := make([]string, 0, s.Builds.Len())
	for _, b := range s.Builds.Items() {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestRouter_KnowsAllObservedTypes(t *testing.T) {
	r := NewRouter(DefaultLimits())

	observed := []string{
		TypeStatus, TypeBuildStarted, TypePRBuildStarted, TypeBuildUpdated, TypeBuildCompleted,
		TypeDeploymentCreated, TypeDeploymentUpdated, TypeVercelDeployment, TypeRailwayDeployment,
		TypeHerokuDeployment, TypeInitialData, TypeDashboardUpdate, TypeNetworkMetrics,
		TypeProtocolMetrics, TypeAlert, TypeHealthCheck,
	}
	for _, typ := range observed {
		if !r.Knows(typ) {
			t.Errorf("router does not handle %q", typ)
		}
	}
}

func TestBuildLifecycle_CompletedIsEvictedAfterTTL(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeBuildStarted, `{"id":"b1","status":"pending"}`), t0)
	s, effects := apply(t, r, s, msg(TypeBuildCompleted, `{"id":"b1","status":"success"}`), t0.Add(time.Second))

	if len(effects) != 1 {
		t.Fatalf("effects = %d, want 1", len(effects))
	}
	if effects[0].After != 30*time.Second {
		t.Errorf("effect delay = %v, want 30s", effects[0].After)
	}
	if got, ok := s.Builds.Get("b1"); !ok || got.Status != valueobject.BuildSuccess {
		t.Fatalf("b1 = %+v, %v; want success build present", got, ok)
	}

	s, _ = apply(t, r, s, effects[0].Message, t0.Add(31*time.Second))
	if _, ok := s.Builds.Get("b1"); ok {
		t.Error("b1 still present after expiry")
	}
}

func TestBuildExpired_KeepsRestartedBuild(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, effects := apply(t, r, s, msg(TypeBuildCompleted, `{"id":"b1","status":"failed"}`), t0)
	s, _ = apply(t, r, s, msg(TypeBuildStarted, `{"id":"b1","status":"running"}`), t0.Add(5*time.Second))
	s, _ = apply(t, r, s, effects[0].Message, t0.Add(30*time.Second))

	if got, ok := s.Builds.Get("b1"); !ok || got.Status != valueobject.BuildRunning {
		t.Errorf("restarted build = %+v, %v; want running build kept", got, ok)
	}
}

func TestBuildUpdated_PreservesOrderAndStart(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeBuildStarted, `{"id":"b1"}`), t0)
	s, _ = apply(t, r, s, msg(TypePRBuildStarted, `{"id":"b2","prNumber":42}`), t0.Add(time.Second))
	s, _ = apply(t, r, s, msg(TypeBuildUpdated, `{"id":"b1","status":"running","progress":50}`), t0.Add(2*time.Second))

	ids := buildIDs(s)
	if len(ids) != 2 || ids[0] != "b2" || ids[1] != "b1" {
		t.Fatalf("order = %v, want [b2 b1]", ids)
	}
	b1, _ := s.Builds.Get("b1")
	if b1.Progress != 50 || b1.Status != valueobject.BuildRunning {
		t.Errorf("b1 = %+v", b1)
	}
	if b1.StartedAt == nil || !b1.StartedAt.Equal(t0) {
		t.Errorf("b1.StartedAt = %v, want %v", b1.StartedAt, t0)
	}
}

func TestAlerts_NewestFirstWithCap(t *testing.T) {
	limits := DefaultLimits()
	limits.Alerts = 2
	r := NewRouter(limits)
	s := NewState(limits)

	for i, id := range []string{"a1", "a2", "a3"} {
		s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"`+id+`","severity":"warning","message":"m"}`), t0.Add(time.Duration(i)*time.Second))
	}

	alerts := s.Alerts.Items()
	if len(alerts) != 2 || alerts[0].ID != "a3" || alerts[1].ID != "a2" {
		t.Errorf("alerts = %+v, want [a3 a2]", alerts)
	}
}

func TestAlert_RefireMovesToFront(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a1","severity":"warning","message":"slot lag"}`), t0)
	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a2","severity":"warning","message":"rpc slow"}`), t0)
	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a1","severity":"critical","message":"slot lag"}`), t0.Add(time.Second))

	alerts := s.Alerts.Items()
	if len(alerts) != 2 || alerts[0].ID != "a1" || alerts[1].ID != "a2" {
		t.Fatalf("alerts = %+v, want [a1 a2]", alerts)
	}
	if alerts[0].Severity != valueobject.SeverityCritical {
		t.Errorf("a1 severity = %q, want critical", alerts[0].Severity)
	}
}

func TestSnapshot_KeepsLocallyResolvedAlert(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	update := msg(TypeDashboardUpdate, `{"alerts":[{"id":"system-disk","severity":"warning","message":"disk usage 81.0%","timestamp":"2026-03-01T12:00:00Z"}]}`)
	s, _ = apply(t, r, s, update, t0)
	s, _ = apply(t, r, s, msg(TypeAlertResolved, `{"id":"system-disk"}`), t0.Add(time.Second))

	s, _ = apply(t, r, s, update, t0.Add(2*time.Second))
	if a, ok := s.Alerts.Get("system-disk"); !ok || !a.Resolved {
		t.Fatalf("system-disk after next snapshot = %+v, want resolved", a)
	}

	refired := msg(TypeDashboardUpdate, `{"alerts":[{"id":"system-disk","severity":"critical","message":"disk usage 93.0%","timestamp":"2026-03-01T12:05:00Z"}]}`)
	s, _ = apply(t, r, s, refired, t0.Add(5*time.Minute))
	if a, _ := s.Alerts.Get("system-disk"); a.Resolved {
		t.Errorf("newer occurrence = %+v, want unresolved", a)
	}
}

func TestAlertResolved_MutatesInPlace(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a1","severity":"critical","message":"rpc down"}`), t0)
	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a2","message":"slow slot"}`), t0)
	s, _ = apply(t, r, s, msg(TypeAlertResolved, `{"id":"a1"}`), t0)

	alerts := s.Alerts.Items()
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2 (resolved alerts are kept)", len(alerts))
	}
	if alerts[1].ID != "a1" || !alerts[1].Resolved {
		t.Errorf("a1 = %+v, want resolved at position 1", alerts[1])
	}
	if alerts[0].Severity != valueobject.SeverityInfo {
		t.Errorf("a2 severity = %q, want default info", alerts[0].Severity)
	}
	if s.UnresolvedAlerts() != 1 {
		t.Errorf("UnresolvedAlerts() = %d, want 1", s.UnresolvedAlerts())
	}

	same, _ := apply(t, r, s, msg(TypeAlertResolved, `{"id":"ghost"}`), t0)
	if same.Alerts.Len() != 2 {
		t.Errorf("resolving unknown alert changed list: %d", same.Alerts.Len())
	}
}

func TestAlert_InvalidSeverityDropped(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	next, _, err := r.Route(s, msg(TypeAlert, `{"id":"a1","severity":"panic","message":"x"}`), t0)
	if !errors.Is(err, feed.ErrInvalidPayload) {
		t.Fatalf("error = %v, want ErrInvalidPayload", err)
	}
	if next.Version != s.Version || next.Alerts.Len() != 0 {
		t.Error("state changed on invalid alert")
	}
}

func TestDeployments_ProviderFromTypeAndCap(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeVercelDeployment, `{"id":"d0","status":"success"}`), t0)
	d0, _ := s.Deployments.Get("d0")
	if d0.Provider != "vercel" {
		t.Errorf("provider = %q, want vercel", d0.Provider)
	}

	for i := 1; i <= 12; i++ {
		id := "d" + string(rune('a'+i))
		s, _ = apply(t, r, s, msg(TypeDeploymentCreated, `{"id":"`+id+`"}`), t0)
	}
	if s.Deployments.Len() != 10 {
		t.Errorf("deployments = %d, want cap 10", s.Deployments.Len())
	}
	if _, ok := s.Deployments.Get("d0"); ok {
		t.Error("oldest deployment d0 was not evicted")
	}
}

func TestSnapshot_ReplacesPresentSectionsOnly(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeBuildStarted, `{"id":"old"}`), t0)
	s, _ = apply(t, r, s, msg(TypeVercelDeployment, `{"id":"keep"}`), t0)

	s, _ = apply(t, r, s, msg(TypeInitialData, `{"activeBuilds":[{"id":"n1"},{"id":"n2"}],"overview":{"builds":{"total":7}}}`), t0)

	ids := buildIDs(s)
	if len(ids) != 2 || ids[0] != "n1" || ids[1] != "n2" {
		t.Errorf("builds = %v, want [n1 n2]", ids)
	}
	if _, ok := s.Deployments.Get("keep"); !ok {
		t.Error("deployments replaced although section was absent")
	}
	if s.Overview == nil || s.Overview.Builds.Total != 7 {
		t.Errorf("overview = %+v", s.Overview)
	}
	if s.History.Len() != 0 {
		t.Errorf("initial_data appended history: %d", s.History.Len())
	}

	s, _ = apply(t, r, s, msg(TypeStatus, `{"activeBuilds":[]}`), t0)
	if s.Builds.Len() != 0 {
		t.Errorf("empty activeBuilds did not clear list: %v", buildIDs(s))
	}
}

func TestDashboardUpdate_AppendsOneSample(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	data := `{"network":{"tps":2400,"slot":100},"protocols":[{"name":"jupiter","tvl":1}],"alerts":[{"id":"x","message":"m"}],"system":{"cpuUsage":12.5}}`
	s, _ = apply(t, r, s, msg(TypeDashboardUpdate, data), t0)
	s, _ = apply(t, r, s, msg(TypeDashboardUpdate, `{"network":{"tps":2500}}`), t0.Add(2*time.Second))

	if s.History.Len() != 2 {
		t.Fatalf("history = %d, want 2", s.History.Len())
	}
	last, _ := s.History.Last()
	if last.Value != 2500 || !last.Timestamp.Equal(t0.Add(2*time.Second)) {
		t.Errorf("last sample = %+v", last)
	}
	if cpu, ok := last.Field("cpuUsage"); !ok || cpu != 12.5 {
		t.Errorf("cpuUsage field = %v, %v", cpu, ok)
	}
	if s.Protocols.Len() != 1 || s.Alerts.Len() != 1 {
		t.Errorf("protocols = %d, alerts = %d", s.Protocols.Len(), s.Alerts.Len())
	}
}

func TestNetworkMetrics_HistoryWindow(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	for i := 0; i < 51; i++ {
		s, _ = apply(t, r, s, msg(TypeNetworkMetrics, `{"tps":1}`), t0.Add(time.Duration(i)*time.Second))
	}

	if s.History.Len() != 50 {
		t.Fatalf("history = %d, want 50", s.History.Len())
	}
	if first := s.History.Items()[0]; !first.Timestamp.Equal(t0.Add(time.Second)) {
		t.Errorf("first sample at %v, want second sample", first.Timestamp)
	}
}

func TestProtocolMetrics_ObjectOrArray(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeProtocolMetrics, `{"name":"marinade","tvl":10}`), t0)
	s, _ = apply(t, r, s, msg(TypeProtocolMetrics, `[{"name":"marinade","tvl":11},{"name":"orca","tvl":3}]`), t0)

	if s.Protocols.Len() != 2 {
		t.Fatalf("protocols = %d, want 2", s.Protocols.Len())
	}
	if p, _ := s.Protocols.Get("marinade"); p.TVL != 11 {
		t.Errorf("marinade tvl = %v, want 11", p.TVL)
	}

	if _, _, err := r.Route(s, msg(TypeProtocolMetrics, `[{"tvl":1}]`), t0); !errors.Is(err, feed.ErrInvalidPayload) {
		t.Errorf("nameless protocol error = %v, want ErrInvalidPayload", err)
	}
	if _, _, err := r.Route(s, msg(TypeProtocolMetrics, `null`), t0); !errors.Is(err, feed.ErrInvalidPayload) {
		t.Errorf("null payload error = %v, want ErrInvalidPayload", err)
	}
}

func TestHealthCheck_RecordsHeartbeat(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)

	s, _ := apply(t, r, NewState(limits), feed.Message{Type: TypeHealthCheck}, t0)
	if !s.LastHeartbeat.Equal(t0) || s.Version != 1 {
		t.Errorf("heartbeat = %v, version = %d", s.LastHeartbeat, s.Version)
	}
}

func TestSnapshotOf_RoundTripThroughInitialData(t *testing.T) {
	limits := DefaultLimits()
	r := NewRouter(limits)
	s := NewState(limits)

	s, _ = apply(t, r, s, msg(TypeBuildStarted, `{"id":"b1"}`), t0)
	s, _ = apply(t, r, s, msg(TypeAlert, `{"id":"a1","message":"m"}`), t0)
	s, _ = apply(t, r, s, msg(TypeNetworkMetrics, `{"tps":10}`), t0)

	restored, _ := apply(t, r, NewState(limits), feed.MustMessage(TypeInitialData, SnapshotOf(s)), t0)
	if restored.Builds.Len() != 1 || restored.Alerts.Len() != 1 || restored.Network == nil {
		t.Errorf("restored = builds %d, alerts %d, network %v", restored.Builds.Len(), restored.Alerts.Len(), restored.Network)
	}
}
