package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

const fixture = "testdata/bookinfo.yaml"

func nodeIDs(e *graph.Elements) []string {
	out := make([]string, 0, len(e.Nodes))
	for _, n := range e.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestLoadFixture(t *testing.T) {
	snap, err := Load(fixture)
	require.NoError(t, err)
	assert.Len(t, snap.Elements.Nodes, 9)
	assert.Len(t, snap.Elements.Edges, 6)
	assert.Equal(t, 2026, snap.Captured.Year())

	n, ok := snap.Elements.Node("reviews-v2")
	require.True(t, ok)
	assert.Equal(t, "box-reviews", n.Parent)
	assert.True(t, n.IsIdle)
}

func TestCollectNarrowsToNamespaces(t *testing.T) {
	c := New(Config{Path: fixture})
	e, err := c.Collect(context.Background(), graph.FetchParams{
		Namespaces:    []graph.Namespace{{Name: "bookinfo"}},
		ShowIdleNodes: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, nodeIDs(e), "svc-ratings")
	assert.NotContains(t, nodeIDs(e), "ns-secret")
	assert.Contains(t, nodeIDs(e), "reviews-v2")
	assert.True(t, c.Healthy())
}

func TestCollectHidesIdle(t *testing.T) {
	c := New(Config{Path: fixture})
	e, err := c.Collect(context.Background(), graph.FetchParams{
		Namespaces: []graph.Namespace{{Name: "bookinfo"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, nodeIDs(e), "reviews-v2")
}

func TestCollectFocus(t *testing.T) {
	c := New(Config{Path: fixture})
	e, err := c.Collect(context.Background(), graph.FetchParams{
		Namespaces:    []graph.Namespace{{Name: "bookinfo"}, {Name: "ratings"}},
		Node:          &graph.NodeParams{Namespace: graph.Namespace{Name: "bookinfo"}, NodeType: graph.NodeTypeWorkload, Workload: "productpage-v1"},
		ShowIdleNodes: true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"svc-productpage", "productpage-v1", "svc-reviews"}, nodeIDs(e))
}

func TestCollectMissingFile(t *testing.T) {
	c := New(Config{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	_, err := c.Collect(context.Background(), graph.FetchParams{})
	assert.Error(t, err)
	assert.False(t, c.Healthy())
}

func TestDecodeRejectsDanglingEdge(t *testing.T) {
	doc := `
elements:
  nodes:
    - id: a
      nodeType: service
      namespace: ns1
  edges:
    - id: e1
      source: a
      target: b
`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorContains(t, err, "unknown node")
}

func TestDecodeRejectsDuplicateIDs(t *testing.T) {
	doc := `
elements:
  nodes:
    - {id: a, nodeType: service, namespace: ns1}
    - {id: a, nodeType: workload, namespace: ns1}
`
	_, err := Decode(strings.NewReader(doc))
	assert.ErrorContains(t, err, "duplicate")
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("elements:\n  nodez: []\n"))
	assert.Error(t, err)
}

func TestDecodeEmpty(t *testing.T) {
	snap, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, snap.Elements.Empty())
}

func TestWriteThenLoad(t *testing.T) {
	snap, err := Load(fixture)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap))

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Elements, again.Elements)
}
