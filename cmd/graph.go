package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/collectors"
	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

type graphOptions struct {
	targetOptions
	status bool
	watch  bool
}

func newGraphCmd(root *rootOptions) *cobra.Command {
	o := &graphOptions{}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Collect the focused graph and print its elements",
		Long: `Graph runs the configured collector once and prints the decorated nodes
and edges the card would show. With --watch it keeps collecting on the
collector's interval until interrupted.`,
		Example: `  minigraph graph
  minigraph graph --focus service/bookinfo/reviews -o yaml
  minigraph graph --watch --status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runGraph(cmd, root, o, cfg)
		},
	}
	o.bindFocus(cmd)
	cmd.Flags().BoolVar(&o.status, "status", false, "print collector status after each collection")
	cmd.Flags().BoolVarP(&o.watch, "watch", "w", false, "keep collecting until interrupted")
	return cmd
}

func runGraph(cmd *cobra.Command, root *rootOptions, o *graphOptions, cfg *config.Config) error {
	p, err := newPrinter(cmd.OutOrStdout(), root.output)
	if err != nil {
		return err
	}
	params, err := o.params(cfg)
	if err != nil {
		return err
	}
	reg, name, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signalContext(parent)
	defer stop()

	updates := make(chan collectors.Update, collectors.DefaultUpdateBufferSize)
	runner := collectors.NewRunner(reg, func() graph.FetchParams { return params }, updates)

	if !o.watch {
		elems, err := runner.RunOnce(ctx, name)
		if err != nil {
			return fmt.Errorf("collect %s: %w", name, err)
		}
		if err := p.Elements(elems); err != nil {
			return err
		}
		if o.status {
			return p.Collectors(reg.AllStatus())
		}
		return nil
	}

	if err := runner.Start(ctx); err != nil {
		return err
	}
	defer runner.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case u := <-updates:
			if u.Error != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", badColor.Sprint("✗"), u.Source, u.Error)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), dimColor.Sprint(u.Timestamp.Format("15:04:05")))
				if err := p.Elements(u.Elements); err != nil {
					return err
				}
			}
			if o.status {
				if err := p.Collectors(reg.AllStatus()); err != nil {
					return err
				}
			}
		}
	}
}
