package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNode(t *testing.T) {
	tests := []struct {
		name string
		node NodeData
		want NodeType
	}{
		{name: "app node", node: NodeData{NodeType: NodeTypeApp, App: "reviews"}, want: NodeTypeApp},
		{name: "service node", node: NodeData{NodeType: NodeTypeService, Service: "svc1"}, want: NodeTypeService},
		{name: "workload node", node: NodeData{NodeType: NodeTypeWorkload, Workload: "wk1"}, want: NodeTypeWorkload},
		{name: "aggregate node", node: NodeData{NodeType: NodeTypeAggregate, Aggregate: "route"}, want: NodeTypeAggregate},
		{name: "app box is an app", node: NodeData{NodeType: NodeTypeBox, IsBox: BoxByApp, App: "reviews"}, want: NodeTypeApp},
		{name: "cluster box stays a box", node: NodeData{NodeType: NodeTypeBox, IsBox: BoxByCluster}, want: NodeTypeBox},
		{name: "namespace box stays a box", node: NodeData{NodeType: NodeTypeBox, IsBox: BoxByNamespace}, want: NodeTypeBox},
		{name: "box without grouping", node: NodeData{NodeType: NodeTypeBox}, want: NodeTypeBox},
		{name: "workload decoration wins over app type", node: NodeData{NodeType: NodeTypeApp, App: "reviews", Workload: "reviews-v1"}, want: NodeTypeWorkload},
		{name: "unknown type falls back to box", node: NodeData{NodeType: "mystery"}, want: NodeTypeBox},
		{name: "empty type falls back to box", node: NodeData{}, want: NodeTypeBox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyNode(tt.node))
			assert.Equal(t, tt.want, Classify(NodeTap(tt.node)))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	valid := map[NodeType]bool{}
	for _, nt := range AllNodeTypes() {
		valid[nt] = true
	}
	for _, raw := range []NodeType{"", "app", "service", "workload", "aggregate", "box", "unknown", "cluster", "APP"} {
		got := Classify(NodeTap(NodeData{NodeType: raw}))
		assert.Truef(t, valid[got], "classification of %q produced %q", raw, got)
	}
	assert.Equal(t, NodeTypeBox, Classify(TapEvent{}))
	assert.Equal(t, NodeTypeBox, Classify(EdgeTap(EdgeData{ID: "e1"})))
}

func TestNodeResource(t *testing.T) {
	n := NodeData{NodeType: NodeTypeAggregate, Aggregate: "request_operation", AggregateValue: "Top"}
	assert.Equal(t, Resource{Kind: NodeTypeAggregate, Name: "request_operation", AggregateValue: "Top"}, n.Resource())

	box := NodeData{NodeType: NodeTypeBox, IsBox: BoxByApp, App: "reviews", Namespace: "bookinfo"}
	assert.Equal(t, Resource{Kind: NodeTypeApp, Name: "reviews"}, box.Resource())

	cluster := NodeData{NodeType: NodeTypeBox, IsBox: BoxByCluster, Cluster: "east"}
	assert.Equal(t, Resource{Kind: NodeTypeBox}, cluster.Resource())
}

func TestSameResource(t *testing.T) {
	display := DisplayContextOf(&NodeParams{
		Namespace: Namespace{Name: "ns1"},
		NodeType:  NodeTypeWorkload,
		Workload:  "wk1",
	})
	require.NotNil(t, display)

	tests := []struct {
		name string
		node NodeData
		want bool
	}{
		{name: "same workload", node: NodeData{Namespace: "ns1", NodeType: NodeTypeWorkload, Workload: "wk1"}, want: true},
		{name: "app node decorated with the same workload", node: NodeData{Namespace: "ns1", NodeType: NodeTypeApp, App: "a", Workload: "wk1"}, want: true},
		{name: "different namespace", node: NodeData{Namespace: "ns2", NodeType: NodeTypeWorkload, Workload: "wk1"}, want: false},
		{name: "different name", node: NodeData{Namespace: "ns1", NodeType: NodeTypeWorkload, Workload: "wk2"}, want: false},
		{name: "different category", node: NodeData{Namespace: "ns1", NodeType: NodeTypeService, Service: "wk1"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameResource(display, NodeTap(tt.node)))
		})
	}
}

func TestSameResourceAppBox(t *testing.T) {
	display := DisplayContextOf(&NodeParams{Namespace: Namespace{Name: "bookinfo"}, NodeType: NodeTypeApp, App: "reviews"})
	box := NodeData{Namespace: "bookinfo", NodeType: NodeTypeBox, IsBox: BoxByApp, App: "reviews"}
	assert.True(t, SameResource(display, NodeTap(box)))

	other := NodeData{Namespace: "bookinfo", NodeType: NodeTypeBox, IsBox: BoxByApp, App: "ratings"}
	assert.False(t, SameResource(display, NodeTap(other)))
}

func TestSameResourceAggregateValue(t *testing.T) {
	display := DisplayContextOf(&NodeParams{
		Namespace:      Namespace{Name: "ns1"},
		NodeType:       NodeTypeAggregate,
		Aggregate:      "request_operation",
		AggregateValue: "Top",
	})
	same := NodeData{Namespace: "ns1", NodeType: NodeTypeAggregate, Aggregate: "request_operation", AggregateValue: "Top"}
	other := NodeData{Namespace: "ns1", NodeType: NodeTypeAggregate, Aggregate: "request_operation", AggregateValue: "Bottom"}
	assert.True(t, SameResource(display, NodeTap(same)))
	assert.False(t, SameResource(display, NodeTap(other)))
}

func TestSameResourceNilDisplay(t *testing.T) {
	assert.Nil(t, DisplayContextOf(nil))
	assert.False(t, SameResource(nil, NodeTap(NodeData{Namespace: "ns1", NodeType: NodeTypeService, Service: "svc1"})))
}

func TestGraphTypeFor(t *testing.T) {
	for _, nt := range AllNodeTypes() {
		gt, ok := GraphTypeFor(nt)
		switch nt {
		case NodeTypeApp:
			assert.Equal(t, GraphTypeApp, gt)
			assert.True(t, ok)
		case NodeTypeService:
			assert.Equal(t, GraphTypeService, gt)
			assert.True(t, ok)
		case NodeTypeWorkload:
			assert.Equal(t, GraphTypeWorkload, gt)
			assert.True(t, ok)
		default:
			assert.False(t, ok, "category %s should not override the graph type", nt)
		}
	}
}

func TestParseGraphType(t *testing.T) {
	gt, err := ParseGraphType("versionedApp")
	require.NoError(t, err)
	assert.Equal(t, GraphTypeVersionedApp, gt)

	_, err = ParseGraphType("bogus")
	assert.Error(t, err)
}

func TestElementsCloneAndLookup(t *testing.T) {
	e := &Elements{
		Nodes: []NodeData{{ID: "n1", NodeType: NodeTypeService, Service: "svc1"}},
		Edges: []EdgeData{{ID: "e1", Source: "n1", Target: "n1"}},
	}
	c := e.Clone()
	c.Nodes[0].Service = "changed"

	n, ok := e.Node("n1")
	require.True(t, ok)
	assert.Equal(t, "svc1", n.Service)

	_, ok = e.Node("missing")
	assert.False(t, ok)

	var nilElems *Elements
	assert.True(t, nilElems.Empty())
	assert.Nil(t, nilElems.Clone())
}

func TestNodeLabel(t *testing.T) {
	assert.Equal(t, "reviews v2", NodeData{NodeType: NodeTypeApp, App: "reviews", Version: "v2"}.Label())
	assert.Equal(t, "reviews-v2", NodeData{NodeType: NodeTypeWorkload, Workload: "reviews-v2", Version: "v2"}.Label())
	assert.Equal(t, "route=Top", NodeData{NodeType: NodeTypeAggregate, Aggregate: "route", AggregateValue: "Top"}.Label())
	assert.Equal(t, "cluster box", NodeData{ID: "b1", NodeType: NodeTypeBox, IsBox: BoxByCluster}.Label())
}
