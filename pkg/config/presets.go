package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// defaultTrafficRates mirrors the graph page's out-of-the-box protocol set.
var defaultTrafficRates = []string{"grpcRequest", "httpRequest", "tcpSent"}

// GraphPreset returns the graph settings for a named preset.
// If the name is not recognized, the "default" preset is returned.
func GraphPreset(name string) GraphConfig {
	switch name {
	case "latency":
		return latencyPreset()
	case "throughput":
		return throughputPreset()
	case "distribution":
		return distributionPreset()
	case "default":
		return defaultPreset()
	default:
		return defaultPreset()
	}
}

// PresetNames lists the known presets in display order.
func PresetNames() []string {
	return []string{"default", "latency", "throughput", "distribution"}
}

// defaultPreset shows request rates on edges and hides idle elements.
func defaultPreset() GraphConfig {
	return GraphConfig{
		Preset:             "default",
		Layout:             "dagre",
		NamespaceLayout:    "dagre",
		RefreshInterval:    Duration{time.Minute},
		Duration:           Duration{10 * time.Minute},
		EdgeLabels:         []string{"trafficRate"},
		TrafficRates:       append([]string(nil), defaultTrafficRates...),
		InjectServiceNodes: true,
	}
}

// latencyPreset labels edges with response times and refreshes faster.
func latencyPreset() GraphConfig {
	g := defaultPreset()
	g.Preset = "latency"
	g.EdgeLabels = []string{"responseTime", "responseTimeP95"}
	g.RefreshInterval = Duration{30 * time.Second}
	g.Duration = Duration{5 * time.Minute}
	return g
}

// throughputPreset labels edges with byte throughput and includes every
// protocol rate.
func throughputPreset() GraphConfig {
	g := defaultPreset()
	g.Preset = "throughput"
	g.EdgeLabels = []string{"throughput", "throughputRequest"}
	g.TrafficRates = []string{"grpcTotal", "httpRequest", "tcpTotal"}
	return g
}

// distributionPreset shows the traffic split across destinations, which is
// only meaningful with idle edges visible.
func distributionPreset() GraphConfig {
	g := defaultPreset()
	g.Preset = "distribution"
	g.EdgeLabels = []string{"trafficDistribution"}
	g.ShowIdleEdges = true
	return g
}

// applyPreset fills the [graph] keys the file did not set from the named
// preset. Explicit keys always win.
func applyPreset(cfg *Config, md toml.MetaData) {
	p := GraphPreset(cfg.Graph.Preset)
	g := &cfg.Graph
	g.Preset = p.Preset
	set := func(key string) bool { return md.IsDefined("graph", key) }

	if !set("layout") {
		g.Layout = p.Layout
	}
	if !set("namespace_layout") {
		g.NamespaceLayout = p.NamespaceLayout
	}
	if !set("refresh_interval") {
		g.RefreshInterval = p.RefreshInterval
	}
	if !set("duration") {
		g.Duration = p.Duration
	}
	if !set("edge_labels") {
		g.EdgeLabels = p.EdgeLabels
	}
	if !set("traffic_rates") {
		g.TrafficRates = p.TrafficRates
	}
	if !set("show_idle_edges") {
		g.ShowIdleEdges = p.ShowIdleEdges
	}
	if !set("show_idle_nodes") {
		g.ShowIdleNodes = p.ShowIdleNodes
	}
	if !set("show_operation_nodes") {
		g.ShowOperationNodes = p.ShowOperationNodes
	}
	if !set("inject_service_nodes") {
		g.InjectServiceNodes = p.InjectServiceNodes
	}
}
