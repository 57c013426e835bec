package collectors

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// MockCollector implements Collector for testing. All fields are configurable
// and it tracks how many times Collect has been called.
type MockCollector struct {
	name     string
	interval time.Duration
	elements *graph.Elements
	err      error
	healthy  bool

	mu        sync.RWMutex
	callCount atomic.Int64

	lastParams graph.FetchParams

	// CollectFunc, if set, overrides the default Collect behavior.
	// This allows tests to inject dynamic behavior (e.g., return a graph
	// derived from params, or block until a signal).
	CollectFunc func(ctx context.Context, params graph.FetchParams) (*graph.Elements, error)
}

// MockCollectorOption configures a MockCollector.
type MockCollectorOption func(*MockCollector)

// WithElements sets the graph returned by Collect.
func WithElements(elems *graph.Elements) MockCollectorOption {
	return func(m *MockCollector) { m.elements = elems }
}

// WithError sets the error returned by Collect.
func WithError(err error) MockCollectorOption {
	return func(m *MockCollector) { m.err = err }
}

// WithHealthy sets the Healthy() return value.
func WithHealthy(healthy bool) MockCollectorOption {
	return func(m *MockCollector) { m.healthy = healthy }
}

// WithCollectFunc sets a custom function for Collect.
func WithCollectFunc(fn func(ctx context.Context, params graph.FetchParams) (*graph.Elements, error)) MockCollectorOption {
	return func(m *MockCollector) { m.CollectFunc = fn }
}

// NewMockCollector creates a mock collector with the given name, interval,
// and options.
func NewMockCollector(name string, interval time.Duration, opts ...MockCollectorOption) *MockCollector {
	m := &MockCollector{
		name:     name,
		interval: interval,
		healthy:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the collector name.
func (m *MockCollector) Name() string { return m.name }

// Interval returns the configured collection interval.
func (m *MockCollector) Interval() time.Duration { return m.interval }

// Healthy returns the configured health status.
func (m *MockCollector) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// SetHealthy updates the health status (thread-safe).
func (m *MockCollector) SetHealthy(h bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = h
}

// SetElements updates the returned graph (thread-safe).
func (m *MockCollector) SetElements(elems *graph.Elements) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements = elems
}

// SetError updates the returned error (thread-safe).
func (m *MockCollector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Collect performs a mock collection. It increments the call counter,
// remembers params, and returns a copy of the configured graph and error,
// or delegates to CollectFunc if set.
func (m *MockCollector) Collect(ctx context.Context, params graph.FetchParams) (*graph.Elements, error) {
	m.callCount.Add(1)

	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()

	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, params)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.elements.Clone(), nil
}

// LastParams returns the parameters of the most recent Collect call.
func (m *MockCollector) LastParams() graph.FetchParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastParams
}

// CallCount returns how many times Collect has been called.
func (m *MockCollector) CallCount() int64 {
	return m.callCount.Load()
}
