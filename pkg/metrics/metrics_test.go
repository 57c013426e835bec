package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

var (
	_ dispatch.Observer        = (*Metrics)(nil)
	_ datasource.FetchObserver = (*Metrics)(nil)
)

func TestObserveTap(t *testing.T) {
	m := New()
	m.ObserveTap(graph.NodeTypeService, true)
	m.ObserveTap(graph.NodeTypeService, true)
	m.ObserveTap(graph.NodeTypeBox, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.taps.WithLabelValues("service", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taps.WithLabelValues("box", "false")))
}

func TestObserveDispatch(t *testing.T) {
	m := New()
	m.ObserveDispatch(dispatch.ModeRouter, "details", nil)
	m.ObserveDispatch(dispatch.ModeHost, "full-graph", errors.New("closed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("router", "details", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("host", "full-graph", "error")))
}

func TestObserveFetch(t *testing.T) {
	m := New()
	m.ObserveFetch(120*time.Millisecond, nil)
	m.ObserveFetch(time.Second, errors.New("forbidden"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveTap(graph.NodeTypeWorkload, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `minigraph_taps_total{category="workload",navigated="true"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveTap(graph.NodeTypeApp, true)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.taps.WithLabelValues("app", "true")))
}
