package graph

// ElementKind distinguishes node taps from edge taps.
type ElementKind int

const (
	ElementNode ElementKind = iota
	ElementEdge
)

// String makes ElementKind satisfy fmt.Stringer.
func (k ElementKind) String() string {
	if k == ElementEdge {
		return "edge"
	}
	return "node"
}

// Resource identifies what a graph element stands for: a category paired
// with the one resource name that is meaningful for that category.
// AggregateValue is only set for aggregate resources.
type Resource struct {
	Kind           NodeType `json:"kind" yaml:"kind"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	AggregateValue string   `json:"aggregateValue,omitempty" yaml:"aggregateValue,omitempty"`
}

// TapEvent is produced when the user taps a rendered element.
type TapEvent struct {
	Element        ElementKind
	NodeType       NodeType
	Box            BoxType
	Cluster        string
	Namespace      string
	IsInaccessible bool
	IsServiceEntry bool
	Resource       Resource

	// Edge is set for edge taps only.
	Edge *EdgeData
}

// NodeTap builds the tap event for a node.
func NodeTap(n NodeData) TapEvent {
	return TapEvent{
		Element:        ElementNode,
		NodeType:       n.NodeType,
		Box:            n.IsBox,
		Cluster:        n.Cluster,
		Namespace:      n.Namespace,
		IsInaccessible: n.IsInaccessible,
		IsServiceEntry: n.IsServiceEntry,
		Resource:       n.Resource(),
	}
}

// EdgeTap builds the tap event for an edge.
func EdgeTap(e EdgeData) TapEvent {
	edge := e
	return TapEvent{
		Element:  ElementEdge,
		Resource: Resource{Kind: NodeTypeBox},
		Edge:     &edge,
	}
}

// Classify returns the category of a tapped element. It never fails: a tap
// with no resolvable category is treated as an ungrouped box.
func Classify(tap TapEvent) NodeType {
	switch tap.Resource.Kind {
	case NodeTypeApp, NodeTypeService, NodeTypeWorkload, NodeTypeAggregate:
		return tap.Resource.Kind
	default:
		return NodeTypeBox
	}
}

// ClassifyNode resolves the category of a decorated node. Boxes take the
// kind of their grouping, workload-decorated nodes are workloads, and
// everything else falls back to the node's own type.
func ClassifyNode(n NodeData) NodeType {
	if n.NodeType == NodeTypeBox && n.IsBox != "" {
		if n.IsBox == BoxByApp {
			return NodeTypeApp
		}
		return NodeTypeBox
	}
	if n.Workload != "" {
		return NodeTypeWorkload
	}
	switch nt := ParseNodeType(string(n.NodeType)); nt {
	case NodeTypeUnknown:
		return NodeTypeBox
	default:
		return nt
	}
}

// Resource returns the tagged resource identity of the node.
func (n NodeData) Resource() Resource {
	kind := ClassifyNode(n)
	r := Resource{Kind: kind}
	switch kind {
	case NodeTypeApp:
		r.Name = n.App
	case NodeTypeService:
		r.Name = n.Service
	case NodeTypeWorkload:
		r.Name = n.Workload
	case NodeTypeAggregate:
		r.Name = n.Aggregate
		r.AggregateValue = n.AggregateValue
	}
	return r
}
