package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreschagin/devex-dashboard/pkg/config"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// rootOptions флаги, общие для всех команд; пустое значение оставляет настройку из окружения
type rootOptions struct {
	streamURL string
	apiURL    string
	strategy  string
	source    string
	port      string
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "devex-dashboard",
		Short:         "Live feed relay for the Solana DevEx dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.streamURL, "stream-url", "", "upstream WebSocket URL (FEED_STREAM_URL)")
	flags.StringVar(&opts.apiURL, "api-url", "", "upstream HTTP API base URL (FEED_API_URL)")
	flags.StringVar(&opts.strategy, "strategy", "", "behaviour after disconnect: fallback|reconnect (FEED_STRATEGY)")
	flags.StringVar(&opts.source, "source", "", "polling source: api|monitor|synthetic (FEED_SOURCE)")
	flags.StringVar(&opts.port, "port", "", "HTTP listen port (SERVER_PORT)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (LOG_LEVEL)")

	root.AddCommand(newServeCommand(opts), newWatchCommand(opts))
	return root
}

// load читает окружение и применяет флаги поверх него
func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if o.streamURL != "" {
		cfg.Feed.StreamURL = o.streamURL
	}
	if o.apiURL != "" {
		cfg.Feed.APIURL = o.apiURL
	}
	if o.strategy != "" {
		cfg.Feed.Strategy = o.strategy
	}
	if o.source != "" {
		cfg.Feed.Source = o.source
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	if err := cfg.Feed.Validate(); err != nil {
		return nil, nil, err
	}

	level := o.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	return cfg, logger.New(level), nil
}
