package graph

// WithoutIdle returns a copy without idle nodes, their edges, and boxes
// left empty. Service nodes are never considered idle.
func (e *Elements) WithoutIdle() *Elements {
	keep := make(map[string]bool, len(e.Nodes))
	for _, n := range e.Nodes {
		if !n.IsIdle || n.NodeType == NodeTypeService {
			keep[n.ID] = true
		}
	}
	return e.subset(keep)
}

// InNamespaces returns a copy holding only nodes from the given namespaces.
// Nodes without a namespace are kept.
func (e *Elements) InNamespaces(nss []Namespace) *Elements {
	want := make(map[string]bool, len(nss))
	for _, ns := range nss {
		want[ns.Name] = true
	}
	keep := make(map[string]bool, len(e.Nodes))
	for _, n := range e.Nodes {
		if n.Namespace == "" || want[n.Namespace] {
			keep[n.ID] = true
		}
	}
	return e.subset(keep)
}

// Focus returns the neighbourhood of node: the elements representing it,
// their direct neighbours, and the boxes containing any of them. A nil
// node, or one without a resource name, returns e unchanged.
func (e *Elements) Focus(node *NodeParams) *Elements {
	if node == nil {
		return e
	}
	want := node.Resource()
	if want.Kind == NodeTypeBox || want.Name == "" {
		return e
	}

	matches := func(n NodeData) bool {
		if n.Namespace != node.Namespace.Name {
			return false
		}
		r := n.Resource()
		if r.Kind == want.Kind && r.Name == want.Name && r.AggregateValue == want.AggregateValue {
			return true
		}
		// Versioned app nodes classify as workloads but still belong to
		// their app.
		return want.Kind == NodeTypeApp && n.NodeType == NodeTypeApp && n.App == want.Name
	}

	matched := make(map[string]bool)
	keep := make(map[string]bool)
	for _, n := range e.Nodes {
		if matches(n) {
			matched[n.ID] = true
			keep[n.ID] = true
		}
	}
	for _, ed := range e.Edges {
		if matched[ed.Source] || matched[ed.Target] {
			keep[ed.Source], keep[ed.Target] = true, true
		}
	}
	return e.subset(keep)
}

// subset keeps the listed nodes, the boxes they sit in, and edges between
// kept nodes. Grouping boxes survive only through their children.
func (e *Elements) subset(keep map[string]bool) *Elements {
	parents := make(map[string]bool)
	for _, n := range e.Nodes {
		if keep[n.ID] && n.Parent != "" {
			parents[n.Parent] = true
		}
	}

	out := &Elements{}
	for _, n := range e.Nodes {
		grouping := n.NodeType == NodeTypeBox && n.IsBox != "" && !n.IsInaccessible
		switch {
		case grouping && parents[n.ID]:
			out.Nodes = append(out.Nodes, n)
		case !grouping && keep[n.ID]:
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, ed := range e.Edges {
		if keep[ed.Source] && keep[ed.Target] {
			out.Edges = append(out.Edges, ed)
		}
	}
	return out
}
