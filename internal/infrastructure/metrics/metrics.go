package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

// Metrics bundles prometheus collectors used by the dashboard service.
// Реализует port.FeedMetrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter

	MessagesApplied *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	FeedStatus      *prometheus.GaugeVec
	Polls           *prometheus.CounterVec
	Reconnects      *prometheus.CounterVec
	RelayErrors     *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devex_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devex_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		MessagesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_feed_messages_applied_total",
			Help: "Feed messages applied to the dashboard state.",
		}, []string{"feed", "type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_feed_messages_dropped_total",
			Help: "Feed messages dropped without changing state.",
		}, []string{"feed", "reason"}),
		FeedStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "devex_feed_status",
			Help: "Current feed connection status (1 for the active status).",
		}, []string{"feed", "status"}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_feed_polls_total",
			Help: "Snapshot polls performed in fallback mode.",
		}, []string{"feed", "result"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_feed_reconnects_total",
			Help: "Reconnect attempts scheduled.",
		}, []string{"feed"}),
		RelayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devex_relay_errors_total",
			Help: "Failures while relaying feed state to sinks.",
		}, []string{"sink"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.AuthFailures,
		m.RateLimitDropped,
		m.MessagesApplied,
		m.MessagesDropped,
		m.FeedStatus,
		m.Polls,
		m.Reconnects,
		m.RelayErrors,
	)

	return m
}

func (m *Metrics) MessageApplied(feedName, msgType string) {
	m.MessagesApplied.WithLabelValues(feedName, msgType).Inc()
}

func (m *Metrics) MessageDropped(feedName, reason string) {
	m.MessagesDropped.WithLabelValues(feedName, reason).Inc()
}

// StatusChanged выставляет 1 текущему статусу и 0 остальным
func (m *Metrics) StatusChanged(feedName string, status valueobject.ConnectionStatus) {
	for _, s := range valueobject.AllConnectionStatuses() {
		value := 0.0
		if s == status {
			value = 1
		}
		m.FeedStatus.WithLabelValues(feedName, s.String()).Set(value)
	}
}

func (m *Metrics) PollCompleted(feedName string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Polls.WithLabelValues(feedName, result).Inc()
}

func (m *Metrics) ReconnectScheduled(feedName string) {
	m.Reconnects.WithLabelValues(feedName).Inc()
}

// RelayFailed учитывает ошибку записи в sink (cache, nats, postgres, cloudwatch)
func (m *Metrics) RelayFailed(sink string) {
	m.RelayErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute сворачивает пути с id, чтобы не раздувать кардинальность
func normalizeRoute(path string) string {
	switch {
	case path == "/ws", path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	case strings.HasPrefix(path, "/api/builds/"):
		return "/api/builds/*"
	case strings.HasPrefix(path, "/api/alerts/"):
		return "/api/alerts/*"
	case path == "/api/state", path == "/api/metrics/history":
		return path
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		return "/api/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
