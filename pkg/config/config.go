package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

// Config is the root configuration document.
type Config struct {
	General GeneralConfig `toml:"general"`
	Source  SourceConfig  `toml:"source"`
	Graph   GraphConfig   `toml:"graph"`
	Cluster ClusterConfig `toml:"cluster"`
	Host    HostConfig    `toml:"host"`
	Server  ServerConfig  `toml:"server"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogLevel string `toml:"log_level"`
	// LogFile receives log output while the TUI owns the terminal.
	LogFile  string `toml:"log_file"`
	Timezone string `toml:"timezone"`
}

// SourceConfig selects and configures the graph collector.
type SourceConfig struct {
	// Collector is "k8s" or "file".
	Collector  string      `toml:"collector"`
	Snapshot   string      `toml:"snapshot"`
	Kubeconfig string      `toml:"kubeconfig"`
	Contexts   []string    `toml:"contexts"`
	Interval   Duration    `toml:"interval"`
	Namespaces []string    `toml:"namespaces"`
	GraphType  string      `toml:"graph_type"`
	Focus      FocusConfig `toml:"focus"`
}

// FocusConfig names the node the card is focused on. An empty NodeType
// means no focus.
type FocusConfig struct {
	NodeType       string `toml:"node_type"`
	Namespace      string `toml:"namespace"`
	Cluster        string `toml:"cluster"`
	App            string `toml:"app"`
	Service        string `toml:"service"`
	Workload       string `toml:"workload"`
	Version        string `toml:"version"`
	Aggregate      string `toml:"aggregate"`
	AggregateValue string `toml:"aggregate_value"`
}

// GraphConfig holds the UI settings injected into the navigation builder
// and the display toggles carried by fetch parameters.
type GraphConfig struct {
	Preset             string   `toml:"preset"`
	Layout             string   `toml:"layout"`
	NamespaceLayout    string   `toml:"namespace_layout"`
	RefreshInterval    Duration `toml:"refresh_interval"`
	Duration           Duration `toml:"duration"`
	EdgeLabels         []string `toml:"edge_labels"`
	TrafficRates       []string `toml:"traffic_rates"`
	ShowIdleEdges      bool     `toml:"show_idle_edges"`
	ShowIdleNodes      bool     `toml:"show_idle_nodes"`
	ShowOperationNodes bool     `toml:"show_operation_nodes"`
	InjectServiceNodes bool     `toml:"inject_service_nodes"`
}

// ClusterConfig controls cluster qualification of targets.
type ClusterConfig struct {
	MultiCluster bool   `toml:"multi_cluster"`
	Name         string `toml:"name"`
}

// HostConfig describes the embedding host frame.
type HostConfig struct {
	Embedded bool `toml:"embedded"`
	// Transport is "ipc" or "websocket".
	Transport    string `toml:"transport"`
	SocketPath   string `toml:"socket_path"`
	WebsocketURL string `toml:"websocket_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen  string `toml:"listen"`
	Metrics bool   `toml:"metrics"`
}

// Validate checks enumerated fields and required combinations.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.General.LogLevel); err != nil {
		return err
	}
	if c.General.Timezone != "" {
		if _, err := time.LoadLocation(c.General.Timezone); err != nil {
			return fmt.Errorf("general.timezone: %w", err)
		}
	}
	switch c.Source.Collector {
	case "k8s":
	case "file":
		if c.Source.Snapshot == "" {
			return fmt.Errorf("source.snapshot is required for the file collector")
		}
	default:
		return fmt.Errorf("source.collector: unknown collector %q", c.Source.Collector)
	}
	if len(c.Source.Namespaces) == 0 {
		return fmt.Errorf("source.namespaces: at least one namespace is required")
	}
	if _, err := graph.ParseGraphType(c.Source.GraphType); err != nil {
		return fmt.Errorf("source.graph_type: %w", err)
	}
	if nt := c.Source.Focus.NodeType; nt != "" && graph.ParseNodeType(nt) == graph.NodeTypeUnknown {
		return fmt.Errorf("source.focus.node_type: unknown node type %q", nt)
	}
	switch c.Host.Transport {
	case "ipc", "websocket":
	default:
		return fmt.Errorf("host.transport: unknown transport %q", c.Host.Transport)
	}
	if c.Host.Transport == "websocket" && c.Host.WebsocketURL == "" {
		return fmt.Errorf("host.websocket_url is required for the websocket transport")
	}
	return nil
}

// ParseLogLevel maps a config log level onto slog.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("general.log_level: unknown level %q", s)
	}
}

// Location returns the configured display timezone, UTC when unset or
// invalid.
func (c *Config) Location() *time.Location {
	if c.General.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NavigateSettings is the snapshot handed to navigate.NewBuilder.
func (c *Config) NavigateSettings() navigate.Settings {
	return navigate.Settings{
		MultiCluster:    c.Cluster.MultiCluster,
		Layout:          c.Graph.Layout,
		NamespaceLayout: c.Graph.NamespaceLayout,
		RefreshInterval: c.Graph.RefreshInterval.Duration,
	}
}

// FetchParams builds the initial fetch parameters.
func (c *Config) FetchParams() graph.FetchParams {
	nss := make([]graph.Namespace, 0, len(c.Source.Namespaces))
	for _, n := range c.Source.Namespaces {
		nss = append(nss, graph.Namespace{Name: n})
	}
	gt, err := graph.ParseGraphType(c.Source.GraphType)
	if err != nil {
		gt = graph.GraphTypeVersionedApp
	}
	node := c.Source.Focus.NodeParams()
	if node != nil && node.Namespace.Name == "" && len(nss) > 0 {
		node.Namespace = nss[0]
	}
	return graph.FetchParams{
		Namespaces:         nss,
		Node:               node,
		GraphType:          gt,
		Duration:           c.Graph.Duration.Duration,
		EdgeLabels:         append([]string(nil), c.Graph.EdgeLabels...),
		ShowIdleEdges:      c.Graph.ShowIdleEdges,
		ShowIdleNodes:      c.Graph.ShowIdleNodes,
		ShowOperationNodes: c.Graph.ShowOperationNodes,
		InjectServiceNodes: c.Graph.InjectServiceNodes,
		TrafficRates:       append([]string(nil), c.Graph.TrafficRates...),
	}
}

// NodeParams converts the focus section. It returns nil when no node type is
// configured.
func (f FocusConfig) NodeParams() *graph.NodeParams {
	if f.NodeType == "" {
		return nil
	}
	return &graph.NodeParams{
		Namespace:      graph.Namespace{Name: f.Namespace},
		NodeType:       graph.ParseNodeType(f.NodeType),
		Cluster:        f.Cluster,
		App:            f.App,
		Service:        f.Service,
		Workload:       f.Workload,
		Version:        f.Version,
		Aggregate:      f.Aggregate,
		AggregateValue: f.AggregateValue,
	}
}
