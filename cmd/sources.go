package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/collectors"
	"gitlab.com/tinyland/lab/minigraph/pkg/collectors/file"
	"gitlab.com/tinyland/lab/minigraph/pkg/collectors/k8s"
	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/metrics"
)

// hostSendTimeout bounds a single post to the host frame.
const hostSendTimeout = 3 * time.Second

// newCollector returns the collector selected by [source].
func newCollector(cfg *config.Config) (collectors.Collector, error) {
	switch cfg.Source.Collector {
	case "file":
		return file.New(file.Config{
			Path:     cfg.Source.Snapshot,
			Interval: cfg.Source.Interval.Duration,
		}), nil
	case "k8s", "":
		return k8s.New(k8s.Config{
			Interval:    cfg.Source.Interval.Duration,
			Kubeconfig:  cfg.Source.Kubeconfig,
			Contexts:    cfg.Source.Contexts,
			ClusterName: cfg.Cluster.Name,
		}), nil
	default:
		return nil, fmt.Errorf("unknown collector %q", cfg.Source.Collector)
	}
}

// newRegistry registers the configured collector and returns its name.
func newRegistry(cfg *config.Config) (*collectors.Registry, string, error) {
	c, err := newCollector(cfg)
	if err != nil {
		return nil, "", err
	}
	reg := collectors.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, "", err
	}
	return reg, c.Name(), nil
}

// newSource builds the data source the card and the API read from.
func newSource(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*datasource.Source, *collectors.Registry, error) {
	reg, name, err := newRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := []datasource.Option{datasource.WithLogger(logger)}
	if m != nil {
		opts = append(opts, datasource.WithObserver(m))
	}
	return datasource.New(reg.Fetcher(name), cfg.FetchParams(), opts...), reg, nil
}

// newDispatcher returns a dispatcher that pushes onto history when
// standalone and posts to the configured host channel when embedded. hub is
// used for the websocket transport.
func newDispatcher(cfg *config.Config, history *dispatch.History, hub *host.Hub, logger *slog.Logger, m *metrics.Metrics) *dispatch.Dispatcher {
	d := &dispatch.Dispatcher{
		Router:   history,
		Embedded: cfg.Host.Embedded,
		Logger:   logger,
	}
	if m != nil {
		d.Observer = m
	}
	if !cfg.Host.Embedded {
		return d
	}
	switch cfg.Host.Transport {
	case "websocket":
		if hub != nil {
			d.Host = timeoutHost{hub}
		}
	default:
		d.Host = timeoutHost{host.NewIPCClient(cfg.Host.SocketPath)}
	}
	return d
}

// timeoutHost bounds each send so a stuck host cannot hang the card.
type timeoutHost struct {
	ch dispatch.HostChannel
}

func (t timeoutHost) Send(ctx context.Context, msg host.Message) error {
	ctx, cancel := context.WithTimeout(ctx, hostSendTimeout)
	defer cancel()
	return t.ch.Send(ctx, msg)
}
