package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/application/usecase"
	"github.com/dreschagin/devex-dashboard/internal/domain/repository"
	"github.com/dreschagin/devex-dashboard/internal/domain/service"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/devex-dashboard/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/metrics"
	wsInfra "github.com/dreschagin/devex-dashboard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/devex-dashboard/internal/infrastructure/persistence/postgres"
	httpInterface "github.com/dreschagin/devex-dashboard/internal/interfaces/http"
	"github.com/dreschagin/devex-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/devex-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/devex-dashboard/pkg/clock"
	"github.com/dreschagin/devex-dashboard/pkg/config"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay: live feed, HTTP API, WebSocket hub and sinks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting DevEx dashboard relay")

	// 1. Prometheus registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// 2. CloudWatch Logs: дублируем логи, пока процесс жив
	if cfg.CloudWatch.Enabled {
		logsPublisher, err := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroup,
			LogStreamName:   cfg.CloudWatch.LogStream,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			AutoCreate:      true,
		})
		if err != nil {
			log.Warn("CloudWatch logs publisher disabled", "error", err.Error())
		} else {
			log.SetLogPublisher(logsPublisher)
			defer closeWithTimeout(log, "CloudWatch logs", logsPublisher.Close)
			log.Info("CloudWatch logs publisher initialized", "log_group", cfg.CloudWatch.LogGroup)
		}
	}

	// 3. Redis: снимок состояния и кеш истории
	var cache port.Cache
	if cfg.Redis.Enabled {
		opts := redis.DefaultOptions(cfg.Redis.Addr())
		opts.Password = cfg.Redis.Password
		opts.DB = cfg.Redis.DB
		opts.TTL = cfg.Redis.TTL

		redisCache, err := redis.NewRedisCache(ctx, opts)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", "error", err.Error())
		} else {
			cache = redisCache
			defer func() { _ = redisCache.Close() }()
			log.Info("Redis cache connected", "addr", cfg.Redis.Addr())
		}
	}

	// 4. NATS JetStream: события статуса и alerts
	var events port.EventPublisher
	var statusSubject, alertSubject string
	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", err.Error())
		} else if err := publisher.EnsureStream(ctx); err != nil {
			log.Warn("Failed to ensure JetStream stream, continuing without event publishing", "error", err.Error())
			_ = publisher.Close()
		} else {
			events = publisher
			statusSubject = publisher.Subject("status")
			alertSubject = publisher.Subject("alert")
			defer func() { _ = publisher.Close() }()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL, "stream", natsInfra.StreamName)
		}
	}

	// 5. Live feed
	feed, err := newDashboardFeed(cfg.Feed, appMetrics, log)
	if err != nil {
		return err
	}
	feedName := feed.controller.Name()

	// 6. PostgreSQL: архив точек истории
	var archive repository.SampleRepository
	if cfg.Database.Enabled {
		db, err := openArchive(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		archive = postgres.NewPostgresSampleRepository(db, feedName)
		log.Info("Sample archive connected", "database", cfg.Database.Database)
	}

	// 7. CloudWatch Metrics: экспорт точек истории
	var exporter port.MetricsPublisher
	if cfg.CloudWatch.Enabled {
		metricsPublisher, err := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:       cfg.CloudWatch.Namespace,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			Feed:            feedName,
		})
		if err != nil {
			log.Warn("CloudWatch metrics publisher disabled", "error", err.Error())
		} else {
			exporter = metricsPublisher
			defer closeWithTimeout(log, "CloudWatch metrics", metricsPublisher.Close)
		}
	}

	// 8. Use cases
	hub := wsInfra.NewHub(log)
	actions := feed.upstreamActions()

	var retryBuildUC *usecase.RetryBuildUseCase
	if actions != nil {
		retryBuildUC = usecase.NewRetryBuildUseCase(actions, log)
	}
	resolveAlertUC := usecase.NewResolveAlertUseCase(feed.controller, feed.controller, actions, log)
	historyUC := usecase.NewGetSampleHistoryUseCase(
		feed.controller,
		archive,
		cache,
		service.NewSampleAggregator(),
		clock.Real(),
		usecase.HistoryConfig{MaxDuration: 24 * time.Hour, DipThreshold: service.DefaultThresholds().TPSWarning},
		log,
	)
	relay := usecase.NewRelayFeedEventsUseCase(feed.controller, usecase.RelaySinks{
		Notifier: hub,
		Events:   events,
		Archive:  archive,
		Exporter: exporter,
		Cache:    cache,
		Failures: appMetrics,
	}, usecase.RelayConfig{
		StatusSubject:   statusSubject,
		AlertSubject:    alertSubject,
		CacheWriteEvery: cfg.Feed.CacheWriteEvery,
	}, clock.Real(), log)

	// Снимок из кеша до подключения: клиенты сразу видят последние данные
	if cache != nil {
		if _, err := usecase.NewRestoreSnapshotUseCase(cache, feed.controller, log).Execute(ctx, feedName); err != nil {
			log.Warn("Failed to restore cached snapshot", "error", err.Error())
		}
	}

	// 9. HTTP
	limiter := middleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	router := httpInterface.NewRouter(
		handler.NewStateHandler(feed.controller, log),
		handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, httpInterface.NewAuthConfig(cfg.Security, appMetrics), log),
		handler.NewMetricsAPIHandler(historyUC, log),
		handler.NewActionsAPIHandler(retryBuildUC, resolveAlertUC, log),
		appMetrics,
		registry,
		limiter,
		cfg.Security,
		log,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 10. Запускаем фоновые процессы
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return feed.controller.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	if archive != nil && cfg.Database.Retention > 0 {
		g.Go(func() error { return runRetention(gctx, archive, cfg.Database.Retention, log) })
	}

	g.Go(func() error {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 11. Graceful shutdown по сигналу или ошибке любого процесса
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Relay stopped with error", err)
		return err
	}

	log.Info("Relay stopped gracefully")
	return nil
}

func openArchive(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := postgres.Open(ctx, cfg.DSN(), cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func closeWithTimeout(log *logger.Logger, name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := closeFn(ctx); err != nil {
		log.Error("Failed to flush "+name, err)
	}
}
