package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/minigraph/pkg/app"
	"gitlab.com/tinyland/lab/minigraph/pkg/config"
	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/metrics"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
	"gitlab.com/tinyland/lab/minigraph/pkg/server"
	"gitlab.com/tinyland/lab/minigraph/pkg/widgets"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	var embedded bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive mini graph card",
		Long: `Tui shows the focused graph as a selectable card. Enter opens the selected
element's details page, m opens the graph actions menu and t picks the time
range. Navigations are recorded in the history panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("embedded") {
				cfg.Host.Embedded = embedded
			}
			return runTUI(cmd.Context(), root, cfg)
		},
	}
	cmd.Flags().BoolVar(&embedded, "embedded", false, "post navigations to the host frame instead of the local history")
	return cmd
}

func runTUI(parent context.Context, root *rootOptions, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// The terminal belongs to bubbletea; logs go to the file only.
	logFile, err := openLogFile(cfg.General.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := root.newLogger(cfg, logFile)

	m := metrics.New()
	src, _, err := newSource(cfg, logger, m)
	if err != nil {
		return err
	}

	var hub *host.Hub
	if cfg.Host.Embedded && cfg.Host.Transport == "websocket" {
		hub = host.NewHub(logger)
		srv := server.New(server.Options{
			Settings: cfg.NavigateSettings(),
			Source:   src,
			Hub:      hub,
			Metrics:  m,
			Logger:   logger,
		})
		go func() {
			if err := srv.Run(ctx, cfg.Server.Listen); err != nil {
				logger.Error("hub server stopped", "error", err)
			}
		}()
	}

	history := &dispatch.History{}
	dispatcher := newDispatcher(cfg, history, hub, logger, m)

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	zones := zone.New()
	card := widgets.NewMiniGraph(widgets.MiniGraphOptions{
		Context:    ctx,
		Source:     src,
		Builder:    navigate.NewBuilder(cfg.NavigateSettings()),
		Dispatcher: dispatcher,
		Zones:      zones,
		Location:   cfg.Location(),
		Observer:   m,
		OnEdgeTap: func(e graph.EdgeData) {
			logger.Info("edge tapped", "source", e.Source, "target", e.Target, "protocol", e.Protocol)
		},
		Wizard: serviceWizard(ctx, src, dispatcher, cfg.NavigateSettings(), send),
		Logger: logger,
	})
	defer card.Close()

	model := app.NewAppModel(&app.Config{
		RefreshInterval: time.Second,
		Title:           "minigraph",
		Zones:           zones,
	}, card, widgets.NewHistoryWidget(widgets.DefaultHistoryLimit))

	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if path := root.resolvedConfigPath(); path != "" {
		w := config.NewWatcher(path, logger, func(next *config.Config) {
			send(app.SettingsEvent{Settings: next.NavigateSettings()})
		})
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// wizardActions are the service wizards the host page can open.
var wizardActions = []struct {
	label string
	name  string
}{
	{"Request Routing", "request_routing"},
	{"Fault Injection", "fault_injection"},
	{"Traffic Shifting", "traffic_shifting"},
	{"Request Timeouts", "request_timeouts"},
}

// serviceWizard offers the service wizards when the card is focused on a
// service. Actions are reported as loading until the first graph arrives.
// Each action posts the service details page with a wizard parameter; the
// post runs off the event loop and its outcome is sent back as a
// NavigationEvent.
func serviceWizard(ctx context.Context, src *datasource.Source, d *dispatch.Dispatcher, settings navigate.Settings, send func(tea.Msg)) widgets.WizardFunc {
	builder := navigate.NewBuilder(settings)
	return func() ([]widgets.WizardAction, bool) {
		node := src.FetchParameters().Node
		if node == nil || node.NodeType != graph.NodeTypeService {
			return nil, true
		}
		if src.GraphData() == nil {
			return nil, false
		}

		details, ok := builder.FromTap(nil, graph.TapEvent{
			Element:   graph.ElementNode,
			NodeType:  graph.NodeTypeService,
			Cluster:   node.Cluster,
			Namespace: node.Namespace.Name,
			Resource:  node.Resource(),
		})
		if !ok {
			return nil, true
		}

		actions := make([]widgets.WizardAction, 0, len(wizardActions))
		for _, wa := range wizardActions {
			t := details
			t.Query = append(navigate.Query(nil), details.Query...)
			t.Query.Add("wizard", wa.name)
			actions = append(actions, widgets.WizardAction{
				Label: wa.label,
				Run: func() {
					go func() {
						err := d.DispatchURL(ctx, t.URL())
						send(app.NavigationEvent{Kind: "wizard", URL: t.URL(), Err: err, Time: time.Now()})
					}()
				},
			})
		}
		return actions, true
	}
}
