package cmd

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// ref is a resource reference written as KIND/NAMESPACE/NAME. Aggregates
// use NAME=VALUE; apps may carry a version as NAME:VERSION.
type ref struct {
	kind      graph.NodeType
	namespace string
	name      string
	version   string
	value     string
}

func parseRef(s string) (ref, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return ref{}, fmt.Errorf("invalid resource %q: want KIND/NAMESPACE/NAME", s)
	}

	r := ref{kind: graph.ParseNodeType(parts[0]), namespace: parts[1], name: parts[2]}
	switch r.kind {
	case graph.NodeTypeUnknown:
		return ref{}, fmt.Errorf("invalid resource kind %q: want app, service, workload, aggregate or box", parts[0])
	case graph.NodeTypeAggregate:
		name, value, ok := strings.Cut(r.name, "=")
		if !ok || name == "" || value == "" {
			return ref{}, fmt.Errorf("invalid aggregate %q: want NAME=VALUE", r.name)
		}
		r.name, r.value = name, value
	case graph.NodeTypeApp:
		if name, v, ok := strings.Cut(r.name, ":"); ok {
			r.name, r.version = name, v
		}
	}
	return r, nil
}

// node turns the reference into a decorated node. boxType is only used for
// box references; an app box carries the name as its app.
func (r ref) node(cluster string, boxType graph.BoxType) (graph.NodeData, error) {
	n := graph.NodeData{
		ID:        strings.Join([]string{string(r.kind), r.namespace, r.name}, "/"),
		NodeType:  r.kind,
		Namespace: r.namespace,
		Cluster:   cluster,
	}
	switch r.kind {
	case graph.NodeTypeApp:
		n.App, n.Version = r.name, r.version
	case graph.NodeTypeService:
		n.Service = r.name
	case graph.NodeTypeWorkload:
		n.Workload = r.name
	case graph.NodeTypeAggregate:
		n.Aggregate, n.AggregateValue = r.name, r.value
	case graph.NodeTypeBox:
		switch boxType {
		case graph.BoxByApp:
			n.App = r.name
		case graph.BoxByCluster, graph.BoxByNamespace:
		default:
			return graph.NodeData{}, fmt.Errorf("box resources need --box app|cluster|namespace, got %q", boxType)
		}
		n.IsBox = boxType
	}
	return n, nil
}

// params turns the reference into a focused-node descriptor.
func (r ref) params(cluster string) (*graph.NodeParams, error) {
	if r.kind == graph.NodeTypeBox {
		return nil, fmt.Errorf("a box cannot be the displayed resource")
	}
	p := &graph.NodeParams{
		Namespace: graph.Namespace{Name: r.namespace},
		NodeType:  r.kind,
		Cluster:   cluster,
	}
	switch r.kind {
	case graph.NodeTypeApp:
		p.App, p.Version = r.name, r.version
	case graph.NodeTypeService:
		p.Service = r.name
	case graph.NodeTypeWorkload:
		p.Workload = r.name
	case graph.NodeTypeAggregate:
		p.Aggregate, p.AggregateValue = r.name, r.value
	}
	return p, nil
}
