package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func filterFixture() *Elements {
	return &Elements{
		Nodes: []NodeData{
			{ID: "box-reviews", NodeType: NodeTypeBox, IsBox: BoxByApp, Namespace: "ns1", App: "reviews"},
			{ID: "reviews-v1", Parent: "box-reviews", NodeType: NodeTypeApp, Namespace: "ns1", App: "reviews", Version: "v1", Workload: "reviews-v1"},
			{ID: "reviews-v2", Parent: "box-reviews", NodeType: NodeTypeApp, Namespace: "ns1", App: "reviews", Version: "v2", Workload: "reviews-v2", IsIdle: true},
			{ID: "svc-reviews", NodeType: NodeTypeService, Namespace: "ns1", Service: "reviews"},
			{ID: "svc-ratings", NodeType: NodeTypeService, Namespace: "ns2", Service: "ratings"},
			{ID: "ratings-v1", NodeType: NodeTypeWorkload, Namespace: "ns2", Workload: "ratings-v1"},
		},
		Edges: []EdgeData{
			{ID: "e1", Source: "svc-reviews", Target: "reviews-v1"},
			{ID: "e2", Source: "svc-reviews", Target: "reviews-v2"},
			{ID: "e3", Source: "reviews-v1", Target: "svc-ratings"},
			{ID: "e4", Source: "svc-ratings", Target: "ratings-v1"},
		},
	}
}

func ids(e *Elements) []string {
	out := make([]string, 0, len(e.Nodes))
	for _, n := range e.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestWithoutIdle(t *testing.T) {
	e := filterFixture().WithoutIdle()
	assert.NotContains(t, ids(e), "reviews-v2")
	assert.Contains(t, ids(e), "box-reviews")
	for _, ed := range e.Edges {
		assert.NotEqual(t, "e2", ed.ID)
	}
}

func TestInNamespaces(t *testing.T) {
	e := filterFixture().InNamespaces([]Namespace{{Name: "ns2"}})
	assert.ElementsMatch(t, []string{"svc-ratings", "ratings-v1"}, ids(e))
	assert.Len(t, e.Edges, 1)
}

func TestFocusOnService(t *testing.T) {
	e := filterFixture().Focus(&NodeParams{Namespace: Namespace{Name: "ns2"}, NodeType: NodeTypeService, Service: "ratings"})
	assert.ElementsMatch(t, []string{"box-reviews", "reviews-v1", "svc-ratings", "ratings-v1"}, ids(e))
}

func TestFocusOnAppIncludesVersions(t *testing.T) {
	e := filterFixture().Focus(&NodeParams{Namespace: Namespace{Name: "ns1"}, NodeType: NodeTypeApp, App: "reviews"})
	assert.ElementsMatch(t, []string{"box-reviews", "reviews-v1", "reviews-v2", "svc-reviews", "svc-ratings"}, ids(e))
}

func TestFocusWithoutResourceIsIdentity(t *testing.T) {
	e := filterFixture()
	assert.Same(t, e, e.Focus(nil))
	assert.Same(t, e, e.Focus(&NodeParams{Namespace: Namespace{Name: "ns1"}, NodeType: NodeTypeBox}))
}
