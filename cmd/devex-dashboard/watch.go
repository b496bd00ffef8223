package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dreschagin/devex-dashboard/internal/application/port"
	"github.com/dreschagin/devex-dashboard/internal/domain/dashboard"
	"github.com/dreschagin/devex-dashboard/internal/domain/valueobject"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the live feed in the terminal without starting the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// логи не должны перемешиваться со сводкой
			if opts.logLevel == "" && os.Getenv("LOG_LEVEL") == "" {
				opts.logLevel = "warn"
			}
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			feed, err := newDashboardFeed(cfg.Feed, port.NoopFeedMetrics{}, log)
			if err != nil {
				return err
			}

			w := &summaryWriter{out: cmd.OutOrStdout()}
			feed.controller.OnStatus(w.onStatus)
			feed.controller.OnUpdate(w.onState)

			return feed.controller.Run(cmd.Context())
		},
	}
}

// summaryWriter печатает одну строку на каждое изменение статуса или состояния
type summaryWriter struct {
	mu     sync.Mutex
	out    io.Writer
	status valueobject.ConnectionStatus
}

func (w *summaryWriter) onStatus(s valueobject.ConnectionStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status = s
	fmt.Fprintf(w.out, "status=%s degraded=%t\n", s, s.Degraded())
}

func (w *summaryWriter) onState(s dashboard.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintln(w.out, summarize(s, w.status))
}

func summarize(s dashboard.State, status valueobject.ConnectionStatus) string {
	tps := "-"
	if s.Network != nil {
		tps = fmt.Sprintf("%.0f", s.Network.TPS)
	}
	return fmt.Sprintf("v%d status=%s builds=%d deployments=%d alerts=%d/%d tps=%s",
		s.Version,
		status,
		s.Builds.Len(),
		s.Deployments.Len(),
		s.UnresolvedAlerts(),
		s.Alerts.Len(),
		tps,
	)
}
