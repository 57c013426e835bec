package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
		want string
	}{
		{name: "empty", b: New(), want: "node"},
		{name: "namespace only", b: New().Namespace("ns1"), want: `node[namespace="ns1"]`},
		{name: "service", b: New().Namespace("ns1").Service("svc1"), want: `node[namespace="ns1"][service="svc1"]`},
		{name: "workload", b: New().Namespace("ns1").Workload("wk1"), want: `node[namespace="ns1"][workload="wk1"]`},
		{
			name: "app with node type",
			b:    New().Namespace("bookinfo").App("reviews").NodeType(graph.NodeTypeApp),
			want: `node[namespace="bookinfo"][app="reviews"][nodeType="app"]`,
		},
		{
			name: "aggregate",
			b:    New().Namespace("ns1").Aggregate("request_operation", "Top").NodeType(graph.NodeTypeAggregate),
			want: `node[namespace="ns1"][aggregate="request_operation"][aggregateValue="Top"][nodeType="aggregate"]`,
		},
		{name: "repeated attribute replaces value", b: New().Namespace("a").Service("s").Namespace("b"), want: `node[namespace="b"][service="s"]`},
		{name: "quotes are escaped", b: New().App(`we"ird`), want: `node[app="we\"ird"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Build())
		})
	}
}

func TestBuildIsRepeatable(t *testing.T) {
	b := New().Namespace("ns1").Service("svc1")
	assert.Equal(t, b.Build(), b.Build())
}
