package navigate

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/selector"
)

// Query parameter names used by graph and details pages.
const (
	ParamClusterName        = "clusterName"
	ParamDuration           = "duration"
	ParamEdgeLabels         = "edges"
	ParamEdgeMode           = "edgeMode"
	ParamFocusSelector      = "focusSelector"
	ParamGraphType          = "graphType"
	ParamIdleEdges          = "idleEdges"
	ParamIdleNodes          = "idleNodes"
	ParamLayout             = "layout"
	ParamNamespaceLayout    = "namespaceLayout"
	ParamNamespaces         = "namespaces"
	ParamOperationNodes     = "operationNodes"
	ParamRefreshInterval    = "refresh"
	ParamInjectServiceNodes = "injectServiceNodes"
	ParamTrafficRates       = "traffic"
)

// FullGraphPath is the namespaces graph page.
const FullGraphPath = "/graph/namespaces"

var (
	// ErrNoFocusNode is returned when a graph action is requested but the
	// card is not focused on any node. The action should not have been
	// offered in that state.
	ErrNoFocusNode = errors.New("navigate: no focused node")

	// ErrNoNamespace is returned when the fetch parameters carry no namespace.
	ErrNoNamespace = errors.New("navigate: no namespace in fetch parameters")
)

// Settings is the UI state the builder needs but does not own. It is a
// snapshot: callers build a new Builder when settings change.
type Settings struct {
	MultiCluster    bool          `json:"multiCluster" yaml:"multiCluster"`
	Layout          string        `json:"layout" yaml:"layout"`
	NamespaceLayout string        `json:"namespaceLayout" yaml:"namespaceLayout"`
	RefreshInterval time.Duration `json:"refreshInterval" yaml:"refreshInterval"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Layout:          "dagre",
		NamespaceLayout: "dagre",
		RefreshInterval: time.Minute,
	}
}

// Builder computes navigation targets.
type Builder struct {
	settings Settings
}

// NewBuilder returns a builder bound to a settings snapshot.
func NewBuilder(s Settings) *Builder {
	return &Builder{settings: s}
}

// Settings returns the snapshot the builder was created with.
func (b *Builder) Settings() Settings {
	return b.settings
}

// FullGraph builds the target for the "show full graph" action: the
// namespace graph of the first fetched namespace, focused on the node the
// card is showing.
func (b *Builder) FullGraph(params graph.FetchParams) (Target, error) {
	if len(params.Namespaces) == 0 {
		return Target{}, ErrNoNamespace
	}
	node := params.Node
	if node == nil {
		return Target{}, ErrNoFocusNode
	}

	namespace := params.Namespaces[0].Name
	sel := selector.New().Namespace(namespace)
	graphType := graph.GraphTypeApp

	switch node.NodeType {
	case graph.NodeTypeAggregate:
		sel = sel.Aggregate(node.Aggregate, node.AggregateValue).NodeType(graph.NodeTypeAggregate)
	case graph.NodeTypeApp:
		sel = sel.App(node.App).NodeType(graph.NodeTypeApp)
	case graph.NodeTypeService:
		graphType = graph.GraphTypeService
		sel = sel.Service(node.Service)
	case graph.NodeTypeWorkload:
		graphType = graph.GraphTypeWorkload
		sel = sel.Workload(node.Workload)
	default:
		// A box is not an anchor for the full graph.
	}

	t := Target{Kind: KindFullGraph, Path: FullGraphPath}
	t.Query.Add(ParamGraphType, string(graphType))
	t.Query.Add(ParamInjectServiceNodes, "true")
	t.Query.Add(ParamNamespaces, namespace)
	t.Query.Add(ParamFocusSelector, sel.Build())
	b.qualify(&t, node.Cluster)
	return t, nil
}

// NodeGraph builds the target for the "show node graph" action.
func (b *Builder) NodeGraph(params graph.FetchParams) (Target, error) {
	node := params.Node
	if node == nil {
		return Target{}, ErrNoFocusNode
	}

	graphType := params.GraphType
	if gt, ok := graph.GraphTypeFor(node.NodeType); ok {
		graphType = gt
	}

	focus := *node
	return b.NodeGraphURL(URLParams{
		ActiveNamespaces:   params.Namespaces,
		Duration:           params.Duration,
		EdgeLabels:         params.EdgeLabels,
		EdgeMode:           graph.EdgeModeAll,
		GraphLayout:        b.settings.Layout,
		NamespaceLayout:    b.settings.NamespaceLayout,
		GraphType:          graphType,
		Node:               &focus,
		RefreshInterval:    b.settings.RefreshInterval,
		ShowIdleEdges:      params.ShowIdleEdges,
		ShowIdleNodes:      params.ShowIdleNodes,
		ShowOperationNodes: params.ShowOperationNodes,
		ShowServiceNodes:   true,
		TrafficRates:       params.TrafficRates,
	}), nil
}

// FromTap resolves a tap into a details-page target. The second result is
// false when the tap must be ignored: edge taps, inaccessible nodes,
// service entries, elements without a resource name, and taps on the
// resource already being displayed.
func (b *Builder) FromTap(display *graph.DisplayContext, tap graph.TapEvent) (Target, bool) {
	if tap.Element != graph.ElementNode {
		return Target{}, false
	}
	if tap.IsInaccessible || tap.IsServiceEntry {
		return Target{}, false
	}
	if graph.SameResource(display, tap) {
		return Target{}, false
	}

	category := graph.Classify(tap)
	name := tap.Resource.Name
	if name == "" || tap.Namespace == "" {
		return Target{}, false
	}

	resourceType := string(category)
	if category == graph.NodeTypeApp {
		resourceType = "application"
	}

	t := Target{
		Kind: KindDetails,
		Path: "/namespaces/" + url.PathEscape(tap.Namespace) + "/" + resourceType + "s/" + url.PathEscape(name),
	}
	b.qualify(&t, tap.Cluster)
	return t, true
}

// Qualifies reports whether a cluster id will be appended to targets.
func (b *Builder) Qualifies(cluster string) bool {
	return b.settings.MultiCluster && cluster != ""
}

func (b *Builder) qualify(t *Target, cluster string) {
	if b.Qualifies(cluster) {
		t.Query.Add(ParamClusterName, cluster)
	}
}

// URLParams is the full parameter bag for a node graph page.
type URLParams struct {
	ActiveNamespaces   []graph.Namespace
	Duration           time.Duration
	EdgeLabels         []string
	EdgeMode           graph.EdgeMode
	GraphLayout        string
	NamespaceLayout    string
	GraphType          graph.GraphType
	Node               *graph.NodeParams
	RefreshInterval    time.Duration
	ShowIdleEdges      bool
	ShowIdleNodes      bool
	ShowOperationNodes bool
	ShowServiceNodes   bool
	TrafficRates       []string
}

// NodeGraphURL encodes a parameter bag as a node graph target. Nodes that
// cannot anchor a node graph fall back to the namespaces graph.
func (b *Builder) NodeGraphURL(p URLParams) Target {
	t := Target{Kind: KindNodeGraph}
	node := p.Node

	if node == nil {
		t.Path = FullGraphPath
		t.Query.Add(ParamNamespaces, strings.Join(graph.NamespaceNames(p.ActiveNamespaces), ","))
		appendCommon(&t.Query, p)
		return t
	}

	ns := "/graph/node/namespaces/" + url.PathEscape(node.Namespace.Name)
	switch node.NodeType {
	case graph.NodeTypeAggregate:
		t.Path = ns + "/aggregates/" + url.PathEscape(node.Aggregate) + "/" + url.PathEscape(node.AggregateValue)
	case graph.NodeTypeApp:
		t.Path = ns + "/applications/" + url.PathEscape(node.App)
		if node.Version != "" && node.Version != "unknown" {
			t.Path += "/versions/" + url.PathEscape(node.Version)
		}
	case graph.NodeTypeService:
		t.Path = ns + "/services/" + url.PathEscape(node.Service)
	case graph.NodeTypeWorkload:
		t.Path = ns + "/workloads/" + url.PathEscape(node.Workload)
	default:
		t.Path = FullGraphPath
		t.Query.Add(ParamNamespaces, strings.Join(graph.NamespaceNames(p.ActiveNamespaces), ","))
	}

	appendCommon(&t.Query, p)
	b.qualify(&t, node.Cluster)
	return t
}

func appendCommon(q *Query, p URLParams) {
	q.Add(ParamEdgeLabels, strings.Join(p.EdgeLabels, ","))
	q.Add(ParamEdgeMode, string(p.EdgeMode))
	q.Add(ParamLayout, p.GraphLayout)
	q.Add(ParamNamespaceLayout, p.NamespaceLayout)
	q.Add(ParamIdleEdges, strconv.FormatBool(p.ShowIdleEdges))
	q.Add(ParamIdleNodes, strconv.FormatBool(p.ShowIdleNodes))
	q.Add(ParamOperationNodes, strconv.FormatBool(p.ShowOperationNodes))
	q.Add(ParamInjectServiceNodes, strconv.FormatBool(p.ShowServiceNodes))
	q.Add(ParamGraphType, string(p.GraphType))
	q.Add(ParamDuration, strconv.FormatInt(int64(p.Duration/time.Second), 10))
	q.Add(ParamRefreshInterval, strconv.FormatInt(p.RefreshInterval.Milliseconds(), 10))
	q.Add(ParamTrafficRates, strings.Join(p.TrafficRates, ","))
}
