package graph

import "time"

// NodeParams describes the node a graph is focused on.
type NodeParams struct {
	Namespace      Namespace `json:"namespace" yaml:"namespace"`
	NodeType       NodeType  `json:"nodeType" yaml:"nodeType"`
	Cluster        string    `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	App            string    `json:"app,omitempty" yaml:"app,omitempty"`
	Service        string    `json:"service,omitempty" yaml:"service,omitempty"`
	Workload       string    `json:"workload,omitempty" yaml:"workload,omitempty"`
	Version        string    `json:"version,omitempty" yaml:"version,omitempty"`
	Aggregate      string    `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	AggregateValue string    `json:"aggregateValue,omitempty" yaml:"aggregateValue,omitempty"`
}

// Resource returns the identity stored under the node's own category.
func (p NodeParams) Resource() Resource {
	r := Resource{Kind: p.NodeType}
	switch p.NodeType {
	case NodeTypeApp:
		r.Name = p.App
	case NodeTypeService:
		r.Name = p.Service
	case NodeTypeWorkload:
		r.Name = p.Workload
	case NodeTypeAggregate:
		r.Name = p.Aggregate
		r.AggregateValue = p.AggregateValue
	}
	return r
}

// FetchParams are the parameters used to retrieve the displayed graph.
type FetchParams struct {
	Namespaces         []Namespace   `json:"namespaces" yaml:"namespaces"`
	Node               *NodeParams   `json:"node,omitempty" yaml:"node,omitempty"`
	GraphType          GraphType     `json:"graphType" yaml:"graphType"`
	Duration           time.Duration `json:"duration" yaml:"duration"`
	EdgeLabels         []string      `json:"edgeLabels,omitempty" yaml:"edgeLabels,omitempty"`
	ShowIdleEdges      bool          `json:"showIdleEdges" yaml:"showIdleEdges"`
	ShowIdleNodes      bool          `json:"showIdleNodes" yaml:"showIdleNodes"`
	ShowOperationNodes bool          `json:"showOperationNodes" yaml:"showOperationNodes"`
	InjectServiceNodes bool          `json:"injectServiceNodes" yaml:"injectServiceNodes"`
	TrafficRates       []string      `json:"trafficRates,omitempty" yaml:"trafficRates,omitempty"`
}

// DisplayContext is the resource the embedding page currently shows.
type DisplayContext struct {
	Namespace string
	Resource  Resource
}

// DisplayContextOf derives the display context from a focused node. It
// returns nil when there is no focused node.
func DisplayContextOf(node *NodeParams) *DisplayContext {
	if node == nil {
		return nil
	}
	return &DisplayContext{
		Namespace: node.Namespace.Name,
		Resource:  node.Resource(),
	}
}

// SameResource reports whether a tap refers to the resource already being
// displayed. Namespace, resolved category, and resource name must all match.
func SameResource(display *DisplayContext, tap TapEvent) bool {
	if display == nil {
		return false
	}
	if display.Namespace != tap.Namespace {
		return false
	}
	if display.Resource.Kind != Classify(tap) {
		return false
	}
	return display.Resource.Name == tap.Resource.Name &&
		display.Resource.AggregateValue == tap.Resource.AggregateValue
}
