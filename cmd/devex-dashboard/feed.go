package main

import (
	"time"

	"github.com/dreschagin/devex-dashboard/internal/application/livefeed"
	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/service"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/api"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/collector"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/generator"
	streamws "github.com/dreschagin/devex-dashboard/internal/infrastructure/stream/websocket"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/config"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// dashboardFeed controller дашборда и клиент upstream API (nil без FEED_API_URL)
type dashboardFeed struct {
	controller *livefeed.Controller[dashboard.State]
	client     *api.Client
}

func newDashboardFeed(cfg config.FeedConfig, metrics port.FeedMetrics, log *logger.Logger) (*dashboardFeed, error) {
	strategy, err := livefeed.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	feedCfg := livefeed.DefaultConfig(cfg.StreamURL)
	feedCfg.Strategy = strategy
	feedCfg.ConnectTimeout = cfg.ConnectTimeout
	feedCfg.PollInterval = cfg.PollInterval
	feedCfg.Backoff = livefeed.BackoffConfig{
		Base:        cfg.BackoffBase,
		Max:         cfg.BackoffMax,
		MaxAttempts: cfg.BackoffRetries,
	}

	var client *api.Client
	if cfg.APIURL != "" {
		client = api.NewClient(api.DefaultClientConfig(cfg.APIURL, cfg.APIToken), log)
	}

	var source port.SnapshotSource
	switch {
	case cfg.Source == "synthetic" || client == nil:
		seed := uint64(cfg.Seed)
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		source = generator.NewSyntheticSource(
			seed,
			collector.NewSystemCollector(200*time.Millisecond, "/"),
			service.NewAlertEvaluator(service.DefaultThresholds()),
			clock.Real(),
			cfg.AlertsCap,
		)
	case cfg.Source == "monitor":
		source = api.NewMonitorSource(client)
	default:
		source = api.NewDashboardSource(client, true)
	}

	var dialer port.StreamDialer
	if cfg.StreamURL != "" {
		dialer = streamws.NewDialer(cfg.APIToken)
	}

	limits := dashboard.Limits{
		Deployments:       cfg.DeploymentsCap,
		Alerts:            cfg.AlertsCap,
		History:           cfg.HistoryCap,
		CompletedBuildTTL: cfg.CompletedBuildTTL,
	}

	controller := livefeed.NewController(feedCfg, dashboard.NewRouter(limits), dashboard.NewState(limits), livefeed.Deps{
		Dialer:  dialer,
		Source:  source,
		Clock:   clock.Real(),
		Metrics: metrics,
		Logger:  log,
	})

	log.Info("Live feed configured",
		"feed", feedCfg.Name,
		"stream_url", cfg.StreamURL,
		"strategy", string(strategy),
		"source", cfg.Source,
	)

	return &dashboardFeed{controller: controller, client: client}, nil
}

// upstreamActions nil интерфейс, если клиента нет: resolve остается локальным
func (f *dashboardFeed) upstreamActions() port.UpstreamActions {
	if f.client == nil {
		return nil
	}
	return f.client
}
