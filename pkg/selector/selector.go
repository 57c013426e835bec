// Package selector builds graph element selectors. A selector scopes a full
// graph view to a namespace and, optionally, to a single resource:
//
//	selector.New().Namespace("ns1").Service("svc1").Build()
//	// node[namespace="ns1"][service="svc1"]
package selector

import (
	"strings"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// Attribute names understood by the graph view.
const (
	AttrAggregate      = "aggregate"
	AttrAggregateValue = "aggregateValue"
	AttrApp            = "app"
	AttrNamespace      = "namespace"
	AttrNodeType       = "nodeType"
	AttrService        = "service"
	AttrWorkload       = "workload"
)

type term struct {
	key   string
	value string
}

// Builder accumulates node attribute filters. Attributes keep the order in
// which they were first set; setting an attribute again replaces its value
// in place.
type Builder struct {
	terms []term
}

// New returns an empty selector builder.
func New() *Builder {
	return &Builder{}
}

// Namespace filters on the namespace name.
func (b *Builder) Namespace(ns string) *Builder {
	return b.set(AttrNamespace, ns)
}

// App filters on the application name.
func (b *Builder) App(app string) *Builder {
	return b.set(AttrApp, app)
}

// Service filters on the service name.
func (b *Builder) Service(svc string) *Builder {
	return b.set(AttrService, svc)
}

// Workload filters on the workload name.
func (b *Builder) Workload(wk string) *Builder {
	return b.set(AttrWorkload, wk)
}

// Aggregate filters on an aggregate key and its value.
func (b *Builder) Aggregate(key, value string) *Builder {
	return b.set(AttrAggregate, key).set(AttrAggregateValue, value)
}

// NodeType filters on the node category.
func (b *Builder) NodeType(nt graph.NodeType) *Builder {
	return b.set(AttrNodeType, string(nt))
}

// Build returns the canonical selector text.
func (b *Builder) Build() string {
	var sb strings.Builder
	sb.WriteString("node")
	for _, t := range b.terms {
		sb.WriteByte('[')
		sb.WriteString(t.key)
		sb.WriteString(`="`)
		sb.WriteString(escapeValue(t.value))
		sb.WriteString(`"]`)
	}
	return sb.String()
}

func (b *Builder) set(key, value string) *Builder {
	for i := range b.terms {
		if b.terms[i].key == key {
			b.terms[i].value = value
			return b
		}
	}
	b.terms = append(b.terms, term{key: key, value: value})
	return b
}

// escapeValue keeps quoted values well-formed.
func escapeValue(v string) string {
	if !strings.ContainsAny(v, `"\`) {
		return v
	}
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}
