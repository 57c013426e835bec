package graph

// NodeData is a decorated graph node as delivered by a data source.
type NodeData struct {
	ID             string   `json:"id" yaml:"id"`
	Parent         string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	NodeType       NodeType `json:"nodeType" yaml:"nodeType"`
	Cluster        string   `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	App            string   `json:"app,omitempty" yaml:"app,omitempty"`
	Service        string   `json:"service,omitempty" yaml:"service,omitempty"`
	Workload       string   `json:"workload,omitempty" yaml:"workload,omitempty"`
	Version        string   `json:"version,omitempty" yaml:"version,omitempty"`
	Aggregate      string   `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	AggregateValue string   `json:"aggregateValue,omitempty" yaml:"aggregateValue,omitempty"`
	IsBox          BoxType  `json:"isBox,omitempty" yaml:"isBox,omitempty"`
	IsInaccessible bool     `json:"isInaccessible,omitempty" yaml:"isInaccessible,omitempty"`
	IsServiceEntry bool     `json:"isServiceEntry,omitempty" yaml:"isServiceEntry,omitempty"`
	IsIdle         bool     `json:"isIdle,omitempty" yaml:"isIdle,omitempty"`
	IsOutside      bool     `json:"isOutside,omitempty" yaml:"isOutside,omitempty"`
}

// Label returns a short human-readable name for the node.
func (n NodeData) Label() string {
	r := n.Resource()
	if r.Name == "" {
		if n.IsBox != "" {
			return string(n.IsBox) + " box"
		}
		return n.ID
	}
	if r.Kind == NodeTypeAggregate && r.AggregateValue != "" {
		return r.Name + "=" + r.AggregateValue
	}
	if r.Kind == NodeTypeWorkload || n.Version == "" {
		return r.Name
	}
	return r.Name + " " + n.Version
}

// EdgeData is a decorated graph edge.
type EdgeData struct {
	ID       string `json:"id" yaml:"id"`
	Source   string `json:"source" yaml:"source"`
	Target   string `json:"target" yaml:"target"`
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Rate     string `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// Elements is a complete graph snapshot.
type Elements struct {
	Nodes []NodeData `json:"nodes" yaml:"nodes"`
	Edges []EdgeData `json:"edges" yaml:"edges"`
}

// Empty reports whether the snapshot has no nodes.
func (e *Elements) Empty() bool {
	return e == nil || len(e.Nodes) == 0
}

// Node returns the node with the given id.
func (e *Elements) Node(id string) (NodeData, bool) {
	if e == nil {
		return NodeData{}, false
	}
	for _, n := range e.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeData{}, false
}

// Clone returns a deep copy so callers can hold a snapshot that later
// fetches will not mutate.
func (e *Elements) Clone() *Elements {
	if e == nil {
		return nil
	}
	c := &Elements{
		Nodes: make([]NodeData, len(e.Nodes)),
		Edges: make([]EdgeData, len(e.Edges)),
	}
	copy(c.Nodes, e.Nodes)
	copy(c.Edges, e.Edges)
	return c
}
