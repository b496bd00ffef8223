package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/devex-dashboard/internal/infrastructure/metrics"
	"github.com/dreschagin/devex-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/devex-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/devex-dashboard/pkg/config"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux               *http.ServeMux
	stateHandler      *handler.StateHandler
	websocketHandler  *handler.WebSocketHandler
	metricsAPIHandler *handler.MetricsAPIHandler
	actionsAPIHandler *handler.ActionsAPIHandler
	metrics           *metrics.Metrics
	registry          *prometheus.Registry
	limiter           *middleware.IPRateLimiter
	security          config.SecurityConfig
	logger            *logger.Logger
}

// NewRouter создает новый router; metrics, registry и limiter могут быть nil
func NewRouter(
	stateHandler *handler.StateHandler,
	websocketHandler *handler.WebSocketHandler,
	metricsAPIHandler *handler.MetricsAPIHandler,
	actionsAPIHandler *handler.ActionsAPIHandler,
	appMetrics *metrics.Metrics,
	registry *prometheus.Registry,
	limiter *middleware.IPRateLimiter,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		stateHandler:      stateHandler,
		websocketHandler:  websocketHandler,
		metricsAPIHandler: metricsAPIHandler,
		actionsAPIHandler: actionsAPIHandler,
		metrics:           appMetrics,
		registry:          registry,
		limiter:           limiter,
		security:          security,
		logger:            logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// probes и /metrics без авторизации
	rt.mux.HandleFunc("GET /healthz", rt.stateHandler.Healthz)
	rt.mux.HandleFunc("GET /readyz", rt.stateHandler.Readyz)
	if rt.registry != nil {
		rt.mux.Handle("GET /metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	authConfig := NewAuthConfig(rt.security, rt.metrics)
	protect := func(h http.HandlerFunc) http.Handler {
		var next http.Handler = h
		next = middleware.Auth(authConfig, rt.logger)(next)
		if rt.limiter != nil {
			next = middleware.RateLimit(rt.limiter, rt.onRateLimited)(next)
		}
		return next
	}

	// WebSocket сам проверяет токен: браузер передает его в query
	rt.mux.HandleFunc("GET /ws", rt.websocketHandler.HandleConnection)

	rt.mux.Handle("GET /api/state", protect(rt.stateHandler.GetState))
	rt.mux.Handle("GET /api/metrics/history", protect(rt.metricsAPIHandler.GetSampleHistory))
	rt.mux.Handle("POST /api/builds/{id}/retry", protect(rt.actionsAPIHandler.RetryBuild))
	rt.mux.Handle("POST /api/alerts/{id}/resolve", protect(rt.actionsAPIHandler.ResolveAlert))

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.CORS(rt.security.AllowedOrigins)(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}

// NewAuthConfig настройки авторизации, общие для API и WebSocket
func NewAuthConfig(security config.SecurityConfig, appMetrics *metrics.Metrics) middleware.AuthConfig {
	cfg := middleware.AuthConfig{
		Enabled:     security.AuthEnabled,
		BearerToken: security.AuthToken,
	}
	if appMetrics != nil {
		cfg.OnFailure = appMetrics.AuthFailures.Inc
	}
	return cfg
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RateLimitDropped.Inc()
	}
}
