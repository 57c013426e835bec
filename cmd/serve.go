package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/metrics"
	"gitlab.com/tinyland/lab/minigraph/pkg/server"
)

type serveOptions struct {
	listen string
	debug  bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API, the graph snapshot and the host hub",
		Long: `Serve exposes target resolution over HTTP, keeps the focused graph fresh
on the collector interval, and accepts host frames on /ws so navigation
requests can be posted to them.`,
		Example: `  minigraph serve
  minigraph serve --listen 0.0.0.0:8089`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if o.listen != "" {
				cfg.Server.Listen = o.listen
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signalContext(parent)
			defer stop()

			logger := root.newLogger(cfg, cmd.ErrOrStderr())
			return runServe(ctx, cfg, root.resolvedConfigPath(), o.debug, logger)
		},
	}
	cmd.Flags().StringVar(&o.listen, "listen", "", "listen address (default: [server] listen)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "run gin in debug mode")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cfgPath string, debug bool, logger *slog.Logger) error {
	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
	}
	src, _, err := newSource(cfg, logger, m)
	if err != nil {
		return err
	}

	hub := host.NewHub(logger)
	srv := server.New(server.Options{
		Settings: cfg.NavigateSettings(),
		Source:   src,
		Hub:      hub,
		Metrics:  m,
		Logger:   logger,
		Debug:    debug,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Listen)
	})
	g.Go(func() error {
		refreshLoop(ctx, src, cfg.Source.Interval.Duration, logger)
		return nil
	})
	if cfgPath != "" {
		w := config.NewWatcher(cfgPath, logger, func(next *config.Config) {
			srv.SetSettings(next.NavigateSettings())
			src.SetParameters(next.FetchParams())
		})
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// refreshLoop refetches the graph immediately and then every interval.
// Failures are kept on the source and served as the snapshot's error.
func refreshLoop(ctx context.Context, src *datasource.Source, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := src.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("graph refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
