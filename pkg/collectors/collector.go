// Package collectors defines the graph data sources behind the mini graph
// card. Each collector (k8s, file) implements the Collector interface and
// is registered by name; a Runner can poll them on their own interval.
package collectors

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// Collector is the interface all graph sources implement. Implementations
// live in sub-packages (e.g., pkg/collectors/k8s) and are registered with
// the Registry at startup.
type Collector interface {
	// Name returns a unique identifier for this collector (e.g., "k8s").
	Name() string

	// Collect retrieves the graph described by params.
	Collect(ctx context.Context, params graph.FetchParams) (*graph.Elements, error)

	// Interval returns how often this collector should be polled.
	Interval() time.Duration

	// Healthy returns whether the collector is functioning. A collector that
	// has never run or whose last run succeeded is considered healthy.
	Healthy() bool
}

// CollectorStatus tracks the runtime state of a single collector.
type CollectorStatus struct {
	Name        string
	Healthy     bool
	LastRun     time.Time
	LastError   error
	RunCount    int64
	ErrorCount  int64
	LastLatency time.Duration
}

// Update carries the result of a single collection cycle.
type Update struct {
	Source    string
	Params    graph.FetchParams
	Elements  *graph.Elements
	Timestamp time.Time
	Error     error
}
