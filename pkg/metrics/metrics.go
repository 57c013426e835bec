// Package metrics exposes Prometheus counters for the card's navigation
// decisions and graph fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

const namespace = "minigraph"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	taps          *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		taps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "taps_total",
				Help:      "Graph element taps, labeled by resolved category and whether they produced a navigation target.",
			},
			[]string{"category", "navigated"},
		),
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Navigation dispatches, labeled by destination mode, target kind, and result.",
			},
			[]string{"mode", "kind", "result"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Graph data fetches, labeled by result.",
			},
			[]string{"result"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent collecting graph elements.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// ObserveTap records one tap resolution.
func (m *Metrics) ObserveTap(category graph.NodeType, navigated bool) {
	n := "false"
	if navigated {
		n = "true"
	}
	m.taps.WithLabelValues(string(category), n).Inc()
}

// ObserveDispatch implements dispatch.Observer.
func (m *Metrics) ObserveDispatch(mode dispatch.Mode, kind string, err error) {
	m.dispatches.WithLabelValues(string(mode), kind, result(err)).Inc()
}

// ObserveFetch implements datasource.FetchObserver.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	m.fetches.WithLabelValues(result(err)).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
