package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/minigraph/pkg/collectors"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

var (
	headerColor = color.New(color.FgHiCyan, color.Bold)
	goodColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	badColor    = color.New(color.FgRed)
	dimColor    = color.New(color.FgHiBlack)
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// printer renders command results in the format chosen by --output.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &printer{w: w, format: format}, nil
	case "":
		return &printer{w: w, format: formatTable}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// structured writes v as JSON or YAML. It reports false for table output.
func (p *printer) structured(v any) (bool, error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func (p *printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleRounded)
	return t
}

// targetView is the serialized form of a target.
type targetView struct {
	Kind  navigate.Kind  `json:"kind" yaml:"kind"`
	Path  string         `json:"path" yaml:"path"`
	Query navigate.Query `json:"query,omitempty" yaml:"query,omitempty"`
	URL   string         `json:"url" yaml:"url"`
}

func viewOf(t navigate.Target) targetView {
	return targetView{Kind: t.Kind, Path: t.Path, Query: t.Query, URL: t.URL()}
}

// Target prints a navigation target.
func (p *printer) Target(t navigate.Target) error {
	if ok, err := p.structured(viewOf(t)); ok {
		return err
	}

	fmt.Fprintf(p.w, "%s %s\n", headerColor.Sprint(t.Kind.String()), t.URL())
	if len(t.Query) == 0 {
		return nil
	}
	tw := p.newTable()
	tw.AppendHeader(table.Row{"PARAM", "VALUE"})
	for _, q := range t.Query {
		tw.AppendRow(table.Row{q.Key, q.Value})
	}
	tw.Render()
	return nil
}

// resolution is the outcome of resolving one tap.
type resolution struct {
	Category graph.NodeType `json:"category" yaml:"category"`
	Navigate bool           `json:"navigate" yaml:"navigate"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Target   *targetView    `json:"target,omitempty" yaml:"target,omitempty"`
}

// Resolution prints the result of a tap.
func (p *printer) Resolution(r resolution) error {
	if ok, err := p.structured(r); ok {
		return err
	}
	if !r.Navigate {
		fmt.Fprintf(p.w, "%s %s tap ignored: %s\n", warnColor.Sprint("○"), r.Category, r.Reason)
		return nil
	}
	fmt.Fprintf(p.w, "%s %s → %s\n", goodColor.Sprint("✓"), r.Category, r.Target.URL)
	return nil
}

// Elements prints a graph snapshot.
func (p *printer) Elements(e *graph.Elements) error {
	if e == nil {
		e = &graph.Elements{}
	}
	if ok, err := p.structured(e); ok {
		return err
	}

	if e.Empty() {
		fmt.Fprintln(p.w, warnColor.Sprint("No graph data"))
		return nil
	}

	nodes := p.newTable()
	nodes.SetTitle("Nodes")
	nodes.AppendHeader(table.Row{"ID", "CATEGORY", "NAME", "NAMESPACE", "CLUSTER", "FLAGS"})
	for _, n := range e.Nodes {
		r := n.Resource()
		nodes.AppendRow(table.Row{n.ID, string(r.Kind), n.Label(), n.Namespace, n.Cluster, nodeFlags(n)})
	}
	nodes.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgHiBlack}},
	})
	nodes.Render()

	if len(e.Edges) == 0 {
		return nil
	}
	edges := p.newTable()
	edges.SetTitle("Edges")
	edges.AppendHeader(table.Row{"SOURCE", "TARGET", "PROTOCOL", "RATE"})
	for _, ed := range e.Edges {
		edges.AppendRow(table.Row{ed.Source, ed.Target, ed.Protocol, ed.Rate})
	}
	edges.Render()
	return nil
}

func nodeFlags(n graph.NodeData) string {
	var flags []string
	if n.IsBox != "" {
		flags = append(flags, "box:"+string(n.IsBox))
	}
	if n.IsInaccessible {
		flags = append(flags, "inaccessible")
	}
	if n.IsServiceEntry {
		flags = append(flags, "service-entry")
	}
	if n.IsIdle {
		flags = append(flags, "idle")
	}
	if n.IsOutside {
		flags = append(flags, "outside")
	}
	return strings.Join(flags, ",")
}

// collectorView is the serialized form of a collector status.
type collectorView struct {
	Name       string `json:"name" yaml:"name"`
	Healthy    bool   `json:"healthy" yaml:"healthy"`
	Runs       int64  `json:"runs" yaml:"runs"`
	Errors     int64  `json:"errors" yaml:"errors"`
	LastError  string `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	LastTookMs int64  `json:"lastTookMs" yaml:"lastTookMs"`
}

// Collectors prints registry status.
func (p *printer) Collectors(statuses []collectors.CollectorStatus) error {
	views := make([]collectorView, 0, len(statuses))
	for _, s := range statuses {
		v := collectorView{
			Name:       s.Name,
			Healthy:    s.Healthy,
			Runs:       s.RunCount,
			Errors:     s.ErrorCount,
			LastTookMs: s.LastLatency.Milliseconds(),
		}
		if s.LastError != nil {
			v.LastError = s.LastError.Error()
		}
		views = append(views, v)
	}
	if ok, err := p.structured(views); ok {
		return err
	}

	tw := p.newTable()
	tw.AppendHeader(table.Row{"COLLECTOR", "STATUS", "RUNS", "ERRORS", "LAST"})
	for _, v := range views {
		status := goodColor.Sprint("healthy")
		if !v.Healthy {
			status = badColor.Sprint("failing")
		}
		last := fmt.Sprintf("%dms", v.LastTookMs)
		if v.LastError != "" {
			last = dimColor.Sprint(v.LastError)
		}
		tw.AppendRow(table.Row{v.Name, status, v.Runs, v.Errors, last})
	}
	tw.Render()
	return nil
}
