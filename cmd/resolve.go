package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

type resolveOptions struct {
	cluster        string
	box            string
	inaccessible   bool
	serviceEntry   bool
	display        string
	displayCluster string
	multiCluster   bool
	dispatch       bool
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	o := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve KIND/NAMESPACE/NAME",
		Short: "Resolve a tap on a graph node into a details target",
		Long: `Resolve computes what tapping a node on the card would do. The displayed
resource defaults to the configured focus and can be overridden with
--display. Taps on the displayed resource, inaccessible namespaces and
service entries are ignored.`,
		Example: `  minigraph resolve service/bookinfo/reviews
  minigraph resolve workload/bookinfo/reviews-v1 --cluster east --multi-cluster
  minigraph resolve box/bookinfo/reviews --box app -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runResolve(cmd, root, o, cfg, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.cluster, "cluster", "", "cluster the tapped node belongs to")
	f.StringVar(&o.box, "box", "", "box grouping for box nodes: app, cluster, namespace")
	f.BoolVar(&o.inaccessible, "inaccessible", false, "the node is in an inaccessible namespace")
	f.BoolVar(&o.serviceEntry, "service-entry", false, "the node is a service entry")
	f.StringVar(&o.display, "display", "", "displayed resource as KIND/NAMESPACE/NAME (default: configured focus)")
	f.StringVar(&o.displayCluster, "display-cluster", "", "cluster of the displayed resource")
	f.BoolVar(&o.multiCluster, "multi-cluster", false, "qualify targets with the node's cluster")
	f.BoolVar(&o.dispatch, "dispatch", false, "deliver the target to the host (embedded) or history")
	return cmd
}

func runResolve(cmd *cobra.Command, root *rootOptions, o *resolveOptions, cfg *config.Config, arg string) error {
	p, err := newPrinter(cmd.OutOrStdout(), root.output)
	if err != nil {
		return err
	}

	tapped, err := parseRef(arg)
	if err != nil {
		return err
	}
	node, err := tapped.node(o.cluster, graph.BoxType(o.box))
	if err != nil {
		return err
	}
	node.IsInaccessible = o.inaccessible
	node.IsServiceEntry = o.serviceEntry

	display := cfg.FetchParams().Node
	if o.display != "" {
		r, err := parseRef(o.display)
		if err != nil {
			return fmt.Errorf("--display: %w", err)
		}
		if display, err = r.params(o.displayCluster); err != nil {
			return fmt.Errorf("--display: %w", err)
		}
	}

	settings := cfg.NavigateSettings()
	if o.multiCluster {
		settings.MultiCluster = true
	}
	builder := navigate.NewBuilder(settings)

	tap := graph.NodeTap(node)
	ctx := graph.DisplayContextOf(display)
	res := resolution{Category: graph.Classify(tap)}
	target, ok := builder.FromTap(ctx, tap)
	if !ok {
		res.Reason = ignoreReason(ctx, tap)
		return p.Resolution(res)
	}
	view := viewOf(target)
	res.Navigate, res.Target = true, &view

	if o.dispatch {
		if err := dispatchTarget(cmd.Context(), cfg, target); err != nil {
			return err
		}
	}
	return p.Resolution(res)
}

// ignoreReason explains why FromTap declined a node tap.
func ignoreReason(display *graph.DisplayContext, tap graph.TapEvent) string {
	switch {
	case tap.IsInaccessible:
		return "namespace is inaccessible"
	case tap.IsServiceEntry:
		return "service entries have no details page"
	case graph.SameResource(display, tap):
		return "already displaying this resource"
	default:
		return "element has no resource name"
	}
}

// dispatchTarget delivers t the way the card would. The websocket
// transport needs a running hub, which only tui and serve provide.
func dispatchTarget(ctx context.Context, cfg *config.Config, t navigate.Target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Host.Embedded && cfg.Host.Transport == "websocket" {
		return fmt.Errorf("--dispatch over websocket needs a running hub; use 'minigraph serve' and POST /api/v1/navigate")
	}
	history := &dispatch.History{}
	d := newDispatcher(cfg, history, nil, nil, nil)
	if err := d.Dispatch(ctx, t); err != nil {
		return err
	}
	return nil
}
