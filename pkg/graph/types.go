// Package graph defines the data model shared by the mini graph card: node
// categories, graph types, decorated elements, tap events, and the fetch
// parameters that describe the graph currently on screen.
package graph

import (
	"fmt"
	"strings"
)

// NodeType is the resource category a graph element represents.
type NodeType string

const (
	NodeTypeApp       NodeType = "app"
	NodeTypeService   NodeType = "service"
	NodeTypeWorkload  NodeType = "workload"
	NodeTypeAggregate NodeType = "aggregate"
	NodeTypeBox       NodeType = "box"
	NodeTypeUnknown   NodeType = "unknown"
)

// AllNodeTypes returns the closed set of categories a tap can resolve to.
func AllNodeTypes() []NodeType {
	return []NodeType{NodeTypeApp, NodeTypeService, NodeTypeWorkload, NodeTypeAggregate, NodeTypeBox}
}

// ParseNodeType maps a raw node-type string onto a NodeType. Anything that is
// not a known category becomes NodeTypeUnknown.
func ParseNodeType(s string) NodeType {
	switch NodeType(strings.ToLower(strings.TrimSpace(s))) {
	case NodeTypeApp:
		return NodeTypeApp
	case NodeTypeService:
		return NodeTypeService
	case NodeTypeWorkload:
		return NodeTypeWorkload
	case NodeTypeAggregate:
		return NodeTypeAggregate
	case NodeTypeBox:
		return NodeTypeBox
	default:
		return NodeTypeUnknown
	}
}

// GraphType selects the granularity of a graph.
type GraphType string

const (
	GraphTypeApp          GraphType = "app"
	GraphTypeVersionedApp GraphType = "versionedApp"
	GraphTypeService      GraphType = "service"
	GraphTypeWorkload     GraphType = "workload"
)

// ParseGraphType parses a graph type, accepting the canonical names only.
func ParseGraphType(s string) (GraphType, error) {
	switch GraphType(s) {
	case GraphTypeApp, GraphTypeVersionedApp, GraphTypeService, GraphTypeWorkload:
		return GraphType(s), nil
	default:
		return "", fmt.Errorf("invalid graph type: %q", s)
	}
}

// GraphTypeFor returns the graph type that matches a node category and
// whether the category overrides the graph type at all. Aggregate and box
// nodes have no graph type of their own.
func GraphTypeFor(nt NodeType) (GraphType, bool) {
	switch nt {
	case NodeTypeApp:
		return GraphTypeApp, true
	case NodeTypeService:
		return GraphTypeService, true
	case NodeTypeWorkload:
		return GraphTypeWorkload, true
	default:
		return "", false
	}
}

// BoxType is the grouping declared by a compound (box) node.
type BoxType string

const (
	BoxByApp       BoxType = "app"
	BoxByCluster   BoxType = "cluster"
	BoxByNamespace BoxType = "namespace"
)

// EdgeMode controls which edges are drawn.
type EdgeMode string

const (
	EdgeModeAll       EdgeMode = "all"
	EdgeModeNone      EdgeMode = "none"
	EdgeModeUnhealthy EdgeMode = "unhealthy"
)

// Namespace is a namespace reference as carried by fetch parameters.
type Namespace struct {
	Name string `json:"name" yaml:"name"`
}

// NamespaceNames returns the names of the given namespaces in order.
func NamespaceNames(nss []Namespace) []string {
	names := make([]string, 0, len(nss))
	for _, ns := range nss {
		names = append(names, ns.Name)
	}
	return names
}
