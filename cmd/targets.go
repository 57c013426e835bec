package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

type targetOptions struct {
	focus        string
	cluster      string
	namespaces   []string
	graphType    string
	duration     time.Duration
	multiCluster bool
	dispatch     bool
}

func (o *targetOptions) bind(cmd *cobra.Command) {
	o.bindFocus(cmd)
	f := cmd.Flags()
	f.BoolVar(&o.multiCluster, "multi-cluster", false, "qualify targets with the focused node's cluster")
	f.BoolVar(&o.dispatch, "dispatch", false, "deliver the target to the host (embedded) or history")
}

// bindFocus registers the flags that override the configured fetch
// parameters.
func (o *targetOptions) bindFocus(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.focus, "focus", "", "focused resource as KIND/NAMESPACE/NAME (default: configured focus)")
	f.StringVar(&o.cluster, "cluster", "", "cluster of the focused resource")
	f.StringSliceVarP(&o.namespaces, "namespace", "n", nil, "graph namespaces (default: configured namespaces)")
	f.StringVar(&o.graphType, "graph-type", "", "graph type: app, versionedApp, service, workload")
	f.DurationVar(&o.duration, "duration", 0, "metrics duration (default: configured duration)")
}

// params applies the flags on top of the configured fetch parameters.
func (o *targetOptions) params(cfg *config.Config) (graph.FetchParams, error) {
	p := cfg.FetchParams()
	if len(o.namespaces) > 0 {
		p.Namespaces = make([]graph.Namespace, 0, len(o.namespaces))
		for _, ns := range o.namespaces {
			p.Namespaces = append(p.Namespaces, graph.Namespace{Name: ns})
		}
	}
	if o.graphType != "" {
		gt, err := graph.ParseGraphType(o.graphType)
		if err != nil {
			return p, err
		}
		p.GraphType = gt
	}
	if o.duration > 0 {
		p.Duration = o.duration
	}
	if o.focus != "" {
		r, err := parseRef(o.focus)
		if err != nil {
			return p, fmt.Errorf("--focus: %w", err)
		}
		if p.Node, err = r.params(o.cluster); err != nil {
			return p, fmt.Errorf("--focus: %w", err)
		}
	} else if p.Node != nil && o.cluster != "" {
		p.Node.Cluster = o.cluster
	}
	return p, nil
}

func (o *targetOptions) builder(cfg *config.Config) *navigate.Builder {
	s := cfg.NavigateSettings()
	if o.multiCluster {
		s.MultiCluster = true
	}
	return navigate.NewBuilder(s)
}

func newFullGraphCmd(root *rootOptions) *cobra.Command {
	o := &targetOptions{}
	cmd := &cobra.Command{
		Use:   "full-graph",
		Short: "Print the full namespace graph target for the focused resource",
		Example: `  minigraph full-graph --focus service/bookinfo/reviews
  minigraph full-graph -n bookinfo --focus workload/bookinfo/reviews-v1 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarget(cmd, root, o, (*navigate.Builder).FullGraph)
		},
	}
	o.bind(cmd)
	return cmd
}

func newNodeGraphCmd(root *rootOptions) *cobra.Command {
	o := &targetOptions{}
	cmd := &cobra.Command{
		Use:   "node-graph",
		Short: "Print the node graph target for the focused resource",
		Example: `  minigraph node-graph --focus app/bookinfo/reviews:v2 --duration 1h
  minigraph node-graph --focus aggregate/bookinfo/request_operation=Top -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarget(cmd, root, o, (*navigate.Builder).NodeGraph)
		},
	}
	o.bind(cmd)
	return cmd
}

func runTarget(cmd *cobra.Command, root *rootOptions, o *targetOptions, build func(*navigate.Builder, graph.FetchParams) (navigate.Target, error)) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd.OutOrStdout(), root.output)
	if err != nil {
		return err
	}
	params, err := o.params(cfg)
	if err != nil {
		return err
	}

	t, err := build(o.builder(cfg), params)
	if err != nil {
		return err
	}
	if o.dispatch {
		if err := dispatchTarget(cmd.Context(), cfg, t); err != nil {
			return err
		}
	}
	return p.Target(t)
}
