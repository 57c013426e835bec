package navigate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

func newTestBuilder(multiCluster bool) *Builder {
	return NewBuilder(Settings{
		MultiCluster:    multiCluster,
		Layout:          "dagre",
		NamespaceLayout: "cose",
		RefreshInterval: 15 * time.Second,
	})
}

func workloadDisplay() *graph.DisplayContext {
	return graph.DisplayContextOf(&graph.NodeParams{
		Namespace: graph.Namespace{Name: "ns1"},
		NodeType:  graph.NodeTypeWorkload,
		Workload:  "wk1",
	})
}

func TestFromTapServiceDetails(t *testing.T) {
	b := newTestBuilder(false)
	tap := graph.NodeTap(graph.NodeData{Namespace: "ns1", NodeType: graph.NodeTypeService, Service: "svc1"})

	target, ok := b.FromTap(workloadDisplay(), tap)
	require.True(t, ok)
	assert.Equal(t, KindDetails, target.Kind)
	assert.Equal(t, "/namespaces/ns1/services/svc1", target.URL())
}

func TestFromTapResourceTypes(t *testing.T) {
	b := newTestBuilder(false)
	tests := []struct {
		name string
		node graph.NodeData
		want string
	}{
		{name: "app", node: graph.NodeData{Namespace: "bookinfo", NodeType: graph.NodeTypeApp, App: "reviews"}, want: "/namespaces/bookinfo/applications/reviews"},
		{name: "app box", node: graph.NodeData{Namespace: "bookinfo", NodeType: graph.NodeTypeBox, IsBox: graph.BoxByApp, App: "reviews"}, want: "/namespaces/bookinfo/applications/reviews"},
		{name: "workload", node: graph.NodeData{Namespace: "bookinfo", NodeType: graph.NodeTypeWorkload, Workload: "reviews-v2"}, want: "/namespaces/bookinfo/workloads/reviews-v2"},
		{name: "versioned app node with workload", node: graph.NodeData{Namespace: "bookinfo", NodeType: graph.NodeTypeApp, App: "reviews", Workload: "reviews-v3"}, want: "/namespaces/bookinfo/workloads/reviews-v3"},
		{name: "aggregate", node: graph.NodeData{Namespace: "bookinfo", NodeType: graph.NodeTypeAggregate, Aggregate: "request_operation", AggregateValue: "Top"}, want: "/namespaces/bookinfo/aggregates/request_operation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := b.FromTap(workloadDisplay(), graph.NodeTap(tt.node))
			require.True(t, ok)
			assert.Equal(t, tt.want, target.URL())
		})
	}
}

func TestFromTapIgnored(t *testing.T) {
	b := newTestBuilder(true)
	tests := []struct {
		name string
		tap  graph.TapEvent
	}{
		{name: "inaccessible", tap: graph.NodeTap(graph.NodeData{IsInaccessible: true, Namespace: "ns1", NodeType: graph.NodeTypeService, Service: "svc1"})},
		{name: "service entry", tap: graph.NodeTap(graph.NodeData{IsServiceEntry: true, Namespace: "ns1", NodeType: graph.NodeTypeService, Service: "svc1"})},
		{name: "self", tap: graph.NodeTap(graph.NodeData{Namespace: "ns1", NodeType: graph.NodeTypeWorkload, Workload: "wk1", Cluster: "east"})},
		{name: "cluster box", tap: graph.NodeTap(graph.NodeData{Namespace: "ns1", NodeType: graph.NodeTypeBox, IsBox: graph.BoxByCluster, Cluster: "east"})},
		{name: "no namespace", tap: graph.NodeTap(graph.NodeData{NodeType: graph.NodeTypeService, Service: "svc1"})},
		{name: "edge", tap: graph.EdgeTap(graph.EdgeData{ID: "e1", Source: "a", Target: "b"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := b.FromTap(workloadDisplay(), tt.tap)
			assert.False(t, ok)
		})
	}
}

func TestFromTapInaccessibleIgnoresDisplay(t *testing.T) {
	b := newTestBuilder(false)
	tap := graph.NodeTap(graph.NodeData{IsInaccessible: true, Namespace: "ns1", NodeType: graph.NodeTypeService, Service: "svc1"})
	for _, display := range []*graph.DisplayContext{nil, workloadDisplay()} {
		_, ok := b.FromTap(display, tap)
		assert.False(t, ok)
	}
}

func TestFromTapClusterQualification(t *testing.T) {
	node := graph.NodeData{Namespace: "ns1", NodeType: graph.NodeTypeService, Service: "svc1", Cluster: "east"}
	noCluster := node
	noCluster.Cluster = ""

	tests := []struct {
		name         string
		multiCluster bool
		node         graph.NodeData
		want         string
	}{
		{name: "multi-cluster with cluster", multiCluster: true, node: node, want: "/namespaces/ns1/services/svc1?clusterName=east"},
		{name: "multi-cluster without cluster", multiCluster: true, node: noCluster, want: "/namespaces/ns1/services/svc1"},
		{name: "single cluster with cluster", multiCluster: false, node: node, want: "/namespaces/ns1/services/svc1"},
		{name: "single cluster without cluster", multiCluster: false, node: noCluster, want: "/namespaces/ns1/services/svc1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(tt.multiCluster)
			first, ok := b.FromTap(workloadDisplay(), graph.NodeTap(tt.node))
			require.True(t, ok)
			second, ok := b.FromTap(workloadDisplay(), graph.NodeTap(tt.node))
			require.True(t, ok)
			assert.Equal(t, tt.want, first.URL())
			assert.Equal(t, first, second)
		})
	}
}

func TestFullGraphFromServiceView(t *testing.T) {
	b := newTestBuilder(false)
	params := graph.FetchParams{
		Namespaces: []graph.Namespace{{Name: "ns1"}},
		Node:       &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeService, Service: "svc1"},
		GraphType:  graph.GraphTypeWorkload,
	}

	target, err := b.FullGraph(params)
	require.NoError(t, err)
	assert.Equal(t, KindFullGraph, target.Kind)
	assert.Equal(t, "service", target.Query.Get(ParamGraphType))
	assert.Equal(t, `node[namespace="ns1"][service="svc1"]`, target.Query.Get(ParamFocusSelector))
	assert.Equal(t,
		"/graph/namespaces?graphType=service&injectServiceNodes=true&namespaces=ns1&focusSelector=node%5Bnamespace=%22ns1%22%5D%5Bservice=%22svc1%22%5D",
		target.URL())
}

func TestFullGraphCategoryMapping(t *testing.T) {
	b := newTestBuilder(false)
	tests := []struct {
		node          graph.NodeParams
		wantGraphType string
		wantSelector  string
	}{
		{
			node:          graph.NodeParams{NodeType: graph.NodeTypeApp, App: "reviews"},
			wantGraphType: "app",
			wantSelector:  `node[namespace="ns1"][app="reviews"][nodeType="app"]`,
		},
		{
			node:          graph.NodeParams{NodeType: graph.NodeTypeService, Service: "svc1"},
			wantGraphType: "service",
			wantSelector:  `node[namespace="ns1"][service="svc1"]`,
		},
		{
			node:          graph.NodeParams{NodeType: graph.NodeTypeWorkload, Workload: "wk1"},
			wantGraphType: "workload",
			wantSelector:  `node[namespace="ns1"][workload="wk1"]`,
		},
		{
			node:          graph.NodeParams{NodeType: graph.NodeTypeAggregate, Aggregate: "request_operation", AggregateValue: "Top"},
			wantGraphType: "app",
			wantSelector:  `node[namespace="ns1"][aggregate="request_operation"][aggregateValue="Top"][nodeType="aggregate"]`,
		},
		{
			node:          graph.NodeParams{NodeType: graph.NodeTypeBox},
			wantGraphType: "app",
			wantSelector:  `node[namespace="ns1"]`,
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.node.NodeType), func(t *testing.T) {
			node := tt.node
			node.Namespace = graph.Namespace{Name: "ns1"}
			target, err := b.FullGraph(graph.FetchParams{
				Namespaces: []graph.Namespace{{Name: "ns1"}, {Name: "ns2"}},
				Node:       &node,
				GraphType:  graph.GraphTypeVersionedApp,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantGraphType, target.Query.Get(ParamGraphType))
			assert.Equal(t, tt.wantSelector, target.Query.Get(ParamFocusSelector))
			assert.Equal(t, "ns1", target.Query.Get(ParamNamespaces))
			assert.Equal(t, "true", target.Query.Get(ParamInjectServiceNodes))
		})
	}
}

func TestFullGraphPreconditions(t *testing.T) {
	b := newTestBuilder(false)

	_, err := b.FullGraph(graph.FetchParams{Namespaces: []graph.Namespace{{Name: "ns1"}}})
	assert.ErrorIs(t, err, ErrNoFocusNode)

	_, err = b.FullGraph(graph.FetchParams{Node: &graph.NodeParams{NodeType: graph.NodeTypeService}})
	assert.ErrorIs(t, err, ErrNoNamespace)
}

func TestFullGraphClusterQualification(t *testing.T) {
	params := graph.FetchParams{
		Namespaces: []graph.Namespace{{Name: "ns1"}},
		Node:       &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeWorkload, Workload: "wk1", Cluster: "east"},
	}
	target, err := newTestBuilder(true).FullGraph(params)
	require.NoError(t, err)
	assert.Equal(t, "east", target.Query.Get(ParamClusterName))

	target, err = newTestBuilder(false).FullGraph(params)
	require.NoError(t, err)
	assert.False(t, target.Query.Has(ParamClusterName))
}

func TestNodeGraphServiceNode(t *testing.T) {
	b := newTestBuilder(false)
	params := graph.FetchParams{
		Namespaces:         []graph.Namespace{{Name: "ns1"}},
		Node:               &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeService, Service: "svc1"},
		GraphType:          graph.GraphTypeWorkload,
		Duration:           10 * time.Minute,
		EdgeLabels:         []string{"responseTime", "throughput"},
		ShowIdleEdges:      true,
		ShowIdleNodes:      false,
		ShowOperationNodes: true,
		InjectServiceNodes: false,
		TrafficRates:       []string{"grpcRequest", "httpRequest"},
	}

	target, err := b.NodeGraph(params)
	require.NoError(t, err)
	assert.Equal(t, KindNodeGraph, target.Kind)
	assert.Equal(t,
		"/graph/node/namespaces/ns1/services/svc1?edges=responseTime,throughput&edgeMode=all&layout=dagre&namespaceLayout=cose"+
			"&idleEdges=true&idleNodes=false&operationNodes=true&injectServiceNodes=true&graphType=service"+
			"&duration=600&refresh=15000&traffic=grpcRequest,httpRequest",
		target.URL())
}

func TestNodeGraphCategoryMapping(t *testing.T) {
	b := newTestBuilder(false)
	tests := []struct {
		node     graph.NodeParams
		wantType string
		wantPath string
	}{
		{node: graph.NodeParams{NodeType: graph.NodeTypeApp, App: "reviews"}, wantType: "app", wantPath: "/graph/node/namespaces/ns1/applications/reviews"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeApp, App: "reviews", Version: "v2"}, wantType: "app", wantPath: "/graph/node/namespaces/ns1/applications/reviews/versions/v2"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeApp, App: "reviews", Version: "unknown"}, wantType: "app", wantPath: "/graph/node/namespaces/ns1/applications/reviews"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeService, Service: "svc1"}, wantType: "service", wantPath: "/graph/node/namespaces/ns1/services/svc1"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeWorkload, Workload: "wk1"}, wantType: "workload", wantPath: "/graph/node/namespaces/ns1/workloads/wk1"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeAggregate, Aggregate: "op", AggregateValue: "Top"}, wantType: "versionedApp", wantPath: "/graph/node/namespaces/ns1/aggregates/op/Top"},
		{node: graph.NodeParams{NodeType: graph.NodeTypeBox}, wantType: "versionedApp", wantPath: "/graph/namespaces"},
	}
	for _, tt := range tests {
		t.Run(tt.wantPath, func(t *testing.T) {
			node := tt.node
			node.Namespace = graph.Namespace{Name: "ns1"}
			target, err := b.NodeGraph(graph.FetchParams{
				Namespaces: []graph.Namespace{{Name: "ns1"}},
				Node:       &node,
				GraphType:  graph.GraphTypeVersionedApp,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, target.Query.Get(ParamGraphType))
			assert.Equal(t, tt.wantPath, target.Path)
			assert.Equal(t, "all", target.Query.Get(ParamEdgeMode))
			assert.Equal(t, "true", target.Query.Get(ParamInjectServiceNodes))
		})
	}
}

func TestNodeGraphBoxFallsBackToNamespaces(t *testing.T) {
	b := newTestBuilder(false)
	target, err := b.NodeGraph(graph.FetchParams{
		Namespaces: []graph.Namespace{{Name: "ns1"}, {Name: "ns2"}},
		Node:       &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeBox},
		GraphType:  graph.GraphTypeApp,
	})
	require.NoError(t, err)
	assert.Equal(t, "ns1,ns2", target.Query.Get(ParamNamespaces))
	assert.Equal(t, ParamNamespaces, target.Query[0].Key)
}

func TestNodeGraphRequiresNode(t *testing.T) {
	_, err := newTestBuilder(false).NodeGraph(graph.FetchParams{Namespaces: []graph.Namespace{{Name: "ns1"}}})
	assert.ErrorIs(t, err, ErrNoFocusNode)
}

func TestNodeGraphDoesNotAliasParams(t *testing.T) {
	node := &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeService, Service: "svc1"}
	b := newTestBuilder(false)
	first, err := b.NodeGraph(graph.FetchParams{Node: node})
	require.NoError(t, err)
	node.Service = "svc2"
	second, err := b.NodeGraph(graph.FetchParams{Node: node})
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)
}

func TestNodeGraphClusterQualification(t *testing.T) {
	params := graph.FetchParams{
		Node: &graph.NodeParams{Namespace: graph.Namespace{Name: "ns1"}, NodeType: graph.NodeTypeService, Service: "svc1", Cluster: "west"},
	}
	target, err := newTestBuilder(true).NodeGraph(params)
	require.NoError(t, err)
	assert.Equal(t, "west", target.Query.Get(ParamClusterName))
	assert.Equal(t, ParamClusterName, target.Query[len(target.Query)-1].Key)
}

func TestQueryEncodeEscapesSeparators(t *testing.T) {
	var q Query
	q.Add("a", "x&y")
	q.Add("b", "1+1 #2")
	q.Add("c", "é")
	assert.Equal(t, "a=x%26y&b=1%2B1%20%232&c=%C3%A9", q.Encode())
	assert.Equal(t, "x&y", q.Values().Get("a"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "full-graph", KindFullGraph.String())
	assert.Equal(t, "node-graph", KindNodeGraph.String())
	assert.Equal(t, "details", KindDetails.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
