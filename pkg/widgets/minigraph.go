package widgets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/minigraph/pkg/app"
	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/dispatch"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
	"gitlab.com/tinyland/lab/minigraph/pkg/session"
)

// SourceGraph is the DataUpdateEvent source used for graph fetches.
const SourceGraph = "graph"

// DefaultDurations are the ranges offered by the time picker.
var DefaultDurations = []time.Duration{
	time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
	7 * 24 * time.Hour,
}

// TapObserver is notified of every node tap resolution.
type TapObserver interface {
	ObserveTap(category graph.NodeType, navigated bool)
}

// WizardAction is a host-provided action offered in embedded mode.
type WizardAction struct {
	Label string
	Run   func()
}

// WizardFunc returns the wizard actions for the displayed service. loaded
// is false while the service details are still being fetched.
type WizardFunc func() (actions []WizardAction, loaded bool)

// MiniGraphOptions wires the card to its collaborators. Source is required.
type MiniGraphOptions struct {
	Context    context.Context
	Source     *datasource.Source
	Builder    *navigate.Builder
	Dispatcher *dispatch.Dispatcher
	Zones      *zone.Manager
	Location   *time.Location
	Observer   TapObserver
	OnEdgeTap  func(graph.EdgeData)
	Wizard     WizardFunc
	Durations  []time.Duration
	Logger     *slog.Logger
}

type miniGraphKeys struct {
	Up         key.Binding
	Down       key.Binding
	Tap        key.Binding
	Menu       key.Binding
	TimePicker key.Binding
	Refresh    key.Binding
	Close      key.Binding
}

func defaultMiniGraphKeys() miniGraphKeys {
	return miniGraphKeys{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select previous")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select next")),
		Tap:        key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open")),
		Menu:       key.NewBinding(key.WithKeys("m", "."), key.WithHelp("m", "graph actions")),
		TimePicker: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "time range")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close / unselect")),
	}
}

type rowKind int

const (
	rowNode rowKind = iota
	rowEdge
)

type row struct {
	kind  rowKind
	node  graph.NodeData
	edge  graph.EdgeData
	depth int
}

type menuItem struct {
	label    string
	disabled bool
	run      func() tea.Cmd
}

// MiniGraphWidget is the mini graph card: a selectable list of the graph's
// elements with an action menu and a time-range picker. Selecting an
// element navigates to its details page.
type MiniGraphWidget struct {
	ctx        context.Context
	source     *datasource.Source
	session    *session.State
	builder    *navigate.Builder
	dispatcher *dispatch.Dispatcher
	zones      *zone.Manager
	zonePrefix string
	loc        *time.Location
	observer   TapObserver
	onEdgeTap  func(graph.EdgeData)
	wizard     WizardFunc
	durations  []time.Duration
	logger     *slog.Logger

	keys    miniGraphKeys
	spinner spinner.Model

	rows         []row
	cursor       int
	menuCursor   int
	pickerCursor int
	lastFetch    time.Time
	now          func() time.Time
}

// NewMiniGraph creates the card and subscribes it to the data source.
func NewMiniGraph(opts MiniGraphOptions) *MiniGraphWidget {
	w := &MiniGraphWidget{
		ctx:        opts.Context,
		source:     opts.Source,
		builder:    opts.Builder,
		dispatcher: opts.Dispatcher,
		zones:      opts.Zones,
		loc:        opts.Location,
		observer:   opts.Observer,
		onEdgeTap:  opts.OnEdgeTap,
		wizard:     opts.Wizard,
		durations:  opts.Durations,
		logger:     opts.Logger,
		keys:       defaultMiniGraphKeys(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		cursor:     -1,
		now:        time.Now,
	}
	if w.ctx == nil {
		w.ctx = context.Background()
	}
	if w.builder == nil {
		w.builder = navigate.NewBuilder(navigate.DefaultSettings())
	}
	if w.dispatcher == nil {
		w.dispatcher = &dispatch.Dispatcher{Router: &dispatch.History{}}
	}
	if w.loc == nil {
		w.loc = time.UTC
	}
	if len(w.durations) == 0 {
		w.durations = DefaultDurations
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.zones != nil {
		w.zonePrefix = w.zones.NewPrefix()
	}

	w.session = session.New()
	w.session.OnRefresh = func(session.Snapshot) { w.rebuildRows() }
	w.session.Activate(w.source)
	return w
}

// ID returns "minigraph".
func (w *MiniGraphWidget) ID() string { return "minigraph" }

// Title returns "Graph".
func (w *MiniGraphWidget) Title() string { return "Graph" }

// MinSize returns the minimum dimensions required by the widget.
func (w *MiniGraphWidget) MinSize() (int, int) { return 30, 6 }

// Session exposes the display state.
func (w *MiniGraphWidget) Session() *session.State { return w.session }

// Close unsubscribes from the data source. In-flight fetches still land on
// the source but no longer reach the card.
func (w *MiniGraphWidget) Close() { w.session.Deactivate() }

// Init starts the first fetch and the loading spinner.
func (w *MiniGraphWidget) Init() tea.Cmd {
	return tea.Batch(w.Refresh(), w.spinner.Tick)
}

// Refresh returns a command that fetches off the event loop. The result
// comes back as a DataUpdateEvent and is applied in Update.
func (w *MiniGraphWidget) Refresh() tea.Cmd {
	w.lastFetch = w.now()
	src, ctx := w.source, w.ctx
	return app.DataFetchCmd(SourceGraph, func() (interface{}, error) {
		return src.Fetch(ctx), nil
	})
}

// Update handles messages directed at this widget.
func (w *MiniGraphWidget) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case app.DataUpdateEvent:
		if msg.Source != SourceGraph {
			return nil
		}
		if r, ok := msg.Data.(datasource.Result); ok {
			w.source.Apply(r)
		}
		return nil
	case app.TickEvent:
		return w.maybeRefresh(msg.Time)
	case app.SettingsEvent:
		w.builder = navigate.NewBuilder(msg.Settings)
		return nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return cmd
	case tea.MouseMsg:
		return w.handleMouse(msg)
	}
	return nil
}

func (w *MiniGraphWidget) maybeRefresh(now time.Time) tea.Cmd {
	interval := w.builder.Settings().RefreshInterval
	if interval <= 0 || w.source.IsLoading() {
		return nil
	}
	if now.Sub(w.lastFetch) < interval {
		return nil
	}
	return w.Refresh()
}

// HandleKey processes key events when the widget has focus.
func (w *MiniGraphWidget) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case w.session.MenuOpen:
		return w.handleMenuKey(msg)
	case w.session.TimePickerOpen:
		return w.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, w.keys.Up):
		w.moveCursor(-1)
	case key.Matches(msg, w.keys.Down):
		w.moveCursor(1)
	case key.Matches(msg, w.keys.Tap):
		if w.cursor >= 0 && w.cursor < len(w.rows) {
			return w.tapRow(w.cursor)
		}
	case key.Matches(msg, w.keys.Menu):
		w.ToggleMenu()
	case key.Matches(msg, w.keys.TimePicker):
		w.ToggleTimePicker()
	case key.Matches(msg, w.keys.Refresh):
		return w.Refresh()
	case key.Matches(msg, w.keys.Close):
		w.cursor = -1
	}
	return nil
}

func (w *MiniGraphWidget) handleMenuKey(msg tea.KeyMsg) tea.Cmd {
	items := w.menuItems()
	switch {
	case key.Matches(msg, w.keys.Up):
		if w.menuCursor > 0 {
			w.menuCursor--
		}
	case key.Matches(msg, w.keys.Down):
		if w.menuCursor < len(items)-1 {
			w.menuCursor++
		}
	case key.Matches(msg, w.keys.Tap):
		return w.selectMenu(w.menuCursor)
	case key.Matches(msg, w.keys.Close), key.Matches(msg, w.keys.Menu):
		w.session.CloseMenu()
	}
	return nil
}

func (w *MiniGraphWidget) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, w.keys.Up):
		if w.pickerCursor > 0 {
			w.pickerCursor--
		}
	case key.Matches(msg, w.keys.Down):
		if w.pickerCursor < len(w.durations)-1 {
			w.pickerCursor++
		}
	case key.Matches(msg, w.keys.Tap):
		return w.SelectDuration(w.durations[w.pickerCursor])
	case key.Matches(msg, w.keys.Close), key.Matches(msg, w.keys.TimePicker):
		w.session.CloseTimePicker()
	}
	return nil
}

// KeyBindings lists the card's bindings for the help overlay.
func (w *MiniGraphWidget) KeyBindings() []key.Binding {
	k := w.keys
	return []key.Binding{k.Up, k.Down, k.Tap, k.Menu, k.TimePicker, k.Refresh, k.Close}
}

// ---------- Actions ----------

// ToggleMenu opens or closes the graph actions menu.
func (w *MiniGraphWidget) ToggleMenu() {
	w.session.ToggleMenu()
	w.menuCursor = 0
}

// ToggleTimePicker opens or closes the time-range picker. The picker is a
// standalone-only control; an embedding host owns the time range.
func (w *MiniGraphWidget) ToggleTimePicker() {
	if w.dispatcher.Embedded {
		return
	}
	w.session.ToggleTimePicker()
	w.pickerCursor = 0
	current := w.source.FetchParameters().Duration
	for i, d := range w.durations {
		if d == current {
			w.pickerCursor = i
		}
	}
}

// SelectDuration changes the fetch duration, closes the picker and
// refetches.
func (w *MiniGraphWidget) SelectDuration(d time.Duration) tea.Cmd {
	w.source.SetDuration(d)
	w.session.CloseTimePicker()
	w.logger.Debug("graph duration changed", "duration", d)
	return w.Refresh()
}

// ShowFullGraph navigates to the namespace graph focused on the card's node.
func (w *MiniGraphWidget) ShowFullGraph() tea.Cmd {
	w.session.CloseMenu()
	t, err := w.builder.FullGraph(w.source.FetchParameters())
	if err != nil {
		w.logger.Error("cannot build full graph target", "error", err)
		return app.StatusCmd(err.Error(), true)
	}
	return w.dispatchCmd(t)
}

// ShowNodeGraph navigates to the node graph of the card's node.
func (w *MiniGraphWidget) ShowNodeGraph() tea.Cmd {
	w.session.CloseMenu()
	t, err := w.builder.NodeGraph(w.source.FetchParameters())
	if err != nil {
		w.logger.Error("cannot build node graph target", "error", err)
		return app.StatusCmd(err.Error(), true)
	}
	return w.dispatchCmd(t)
}

// Tap resolves a tapped element. Edge taps go to the edge callback; node
// taps that resolve to a target clear the selection and dispatch.
func (w *MiniGraphWidget) Tap(tap graph.TapEvent) tea.Cmd {
	if tap.Element == graph.ElementEdge {
		if w.onEdgeTap != nil && tap.Edge != nil {
			w.onEdgeTap(*tap.Edge)
		}
		return nil
	}

	display := graph.DisplayContextOf(w.source.FetchParameters().Node)
	t, ok := w.builder.FromTap(display, tap)
	if w.observer != nil {
		w.observer.ObserveTap(graph.Classify(tap), ok)
	}
	if !ok {
		return nil
	}
	w.cursor = -1
	return w.dispatchCmd(t)
}

func (w *MiniGraphWidget) tapRow(i int) tea.Cmd {
	r := w.rows[i]
	if r.kind == rowEdge {
		return w.Tap(graph.EdgeTap(r.edge))
	}
	return w.Tap(graph.NodeTap(r.node))
}

func (w *MiniGraphWidget) dispatchCmd(t navigate.Target) tea.Cmd {
	d, ctx := w.dispatcher, w.ctx
	return func() tea.Msg {
		err := d.Dispatch(ctx, t)
		return app.NavigationEvent{Kind: t.Kind.String(), URL: t.URL(), Err: err, Time: time.Now()}
	}
}

func (w *MiniGraphWidget) menuItems() []menuItem {
	noFocus := w.source.FetchParameters().Node == nil
	items := []menuItem{{label: "Show full graph", disabled: noFocus, run: w.ShowFullGraph}}

	if !w.dispatcher.Embedded {
		return append(items, menuItem{label: "Show node graph", disabled: noFocus, run: w.ShowNodeGraph})
	}
	if w.wizard == nil {
		return items
	}
	actions, loaded := w.wizard()
	if !loaded {
		return append(items, menuItem{label: "Loading actions…", disabled: true})
	}
	for _, a := range actions {
		a := a
		items = append(items, menuItem{label: a.Label, run: func() tea.Cmd {
			w.dispatcher.WizardAction(w.session.CloseMenu, a.Run)
			return nil
		}})
	}
	return items
}

func (w *MiniGraphWidget) selectMenu(i int) tea.Cmd {
	items := w.menuItems()
	if i < 0 || i >= len(items) || items[i].disabled || items[i].run == nil {
		return nil
	}
	return items[i].run()
}

// MenuLabels returns the labels of the current menu items; disabled items
// are wrapped in parentheses.
func (w *MiniGraphWidget) MenuLabels() []string {
	items := w.menuItems()
	labels := make([]string, 0, len(items))
	for _, it := range items {
		if it.disabled {
			labels = append(labels, "("+it.label+")")
			continue
		}
		labels = append(labels, it.label)
	}
	return labels
}

// ---------- Selection ----------

// Cursor returns the selected row, or -1 when nothing is selected.
func (w *MiniGraphWidget) Cursor() int { return w.cursor }

// Select moves the selection to row i.
func (w *MiniGraphWidget) Select(i int) {
	if i >= -1 && i < len(w.rows) {
		w.cursor = i
	}
}

// RowCount returns the number of selectable rows.
func (w *MiniGraphWidget) RowCount() int { return len(w.rows) }

func (w *MiniGraphWidget) moveCursor(delta int) {
	if len(w.rows) == 0 {
		w.cursor = -1
		return
	}
	next := w.cursor + delta
	if w.cursor < 0 {
		next = 0
		if delta < 0 {
			next = len(w.rows) - 1
		}
	}
	w.cursor = max(0, min(next, len(w.rows)-1))
}

// rebuildRows lays the snapshot out as a list: boxes followed by their
// children, then edges.
func (w *MiniGraphWidget) rebuildRows() {
	elems := w.session.Snapshot().Elements
	w.rows = w.rows[:0]
	if elems != nil {
		present := make(map[string]bool, len(elems.Nodes))
		for _, n := range elems.Nodes {
			present[n.ID] = true
		}
		children := make(map[string][]graph.NodeData)
		var roots []graph.NodeData
		for _, n := range elems.Nodes {
			if n.Parent != "" && present[n.Parent] && n.Parent != n.ID {
				children[n.Parent] = append(children[n.Parent], n)
				continue
			}
			roots = append(roots, n)
		}
		seen := make(map[string]bool, len(elems.Nodes))
		var walk func(n graph.NodeData, depth int)
		walk = func(n graph.NodeData, depth int) {
			if seen[n.ID] {
				return
			}
			seen[n.ID] = true
			w.rows = append(w.rows, row{kind: rowNode, node: n, depth: depth})
			for _, c := range children[n.ID] {
				walk(c, depth+1)
			}
		}
		for _, n := range roots {
			walk(n, 0)
		}
		for _, e := range elems.Edges {
			w.rows = append(w.rows, row{kind: rowEdge, edge: e})
		}
	}
	if w.cursor >= len(w.rows) {
		w.cursor = -1
	}
}

// ---------- Rendering ----------

// View renders the widget content into the given area dimensions.
func (w *MiniGraphWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	header := w.renderHeader(width)
	if height == 1 {
		return header
	}

	var body []string
	keep := 0
	switch {
	case w.session.MenuOpen:
		body = w.renderMenu()
		keep = w.menuCursor
	case w.session.TimePickerOpen:
		body = w.renderPicker()
		keep = w.pickerCursor
	default:
		body = w.renderStatus()
		offset := len(body)
		body = append(body, w.renderRows()...)
		if w.cursor >= 0 {
			keep = offset + w.cursor
		}
	}
	return header + "\n" + fitToArea(body, width, height-1, keep)
}

func (w *MiniGraphWidget) renderHeader(width int) string {
	title := accentStyle.Render(w.session.Header(w.loc))

	var controls []string
	if !w.dispatcher.Embedded {
		dur := "⏱ " + formatDuration(w.source.FetchParameters().Duration)
		controls = append(controls, w.mark("time", dur))
	}
	controls = append(controls, w.mark("menu", "⋮"))
	right := strings.Join(controls, "  ")

	gap := width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return fitLine(title, width)
	}
	return title + strings.Repeat(" ", gap) + right
}

func (w *MiniGraphWidget) renderStatus() []string {
	snap := w.session.Snapshot()
	// Loading is read live: it flips when a fetch starts, before any event.
	loading := w.source.IsLoading()
	var lines []string
	if loading {
		lines = append(lines, w.spinner.View()+" Loading graph…")
	}
	if snap.IsError {
		lines = append(lines, errorStyle.Render("⚠ "+snap.ErrorMessage))
	}
	if snap.Elements.Empty() && !loading && !snap.IsError {
		lines = append(lines, dimStyle.Render("No graph data"))
	}
	return lines
}

func (w *MiniGraphWidget) renderRows() []string {
	snap := w.session.Snapshot()
	display := graph.DisplayContextOf(snap.Params.Node)
	labels := make(map[string]string)
	if snap.Elements != nil {
		for _, n := range snap.Elements.Nodes {
			labels[n.ID] = n.Label()
		}
	}

	lines := make([]string, 0, len(w.rows))
	for i, r := range w.rows {
		var line string
		if r.kind == rowEdge {
			line = "  " + edgeLabel(r.edge, labels)
		} else {
			line = strings.Repeat("  ", r.depth) + nodeLine(r.node, display)
		}
		if i == w.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, w.mark(fmt.Sprintf("row-%d", i), line))
	}
	return lines
}

func (w *MiniGraphWidget) renderMenu() []string {
	items := w.menuItems()
	lines := []string{dimStyle.Render("Graph actions")}
	for i, it := range items {
		label := it.label
		if it.disabled {
			label = dimStyle.Render(label)
		}
		prefix := "  "
		if i == w.menuCursor {
			prefix = "▸ "
			label = selectedStyle.Render(label)
		}
		lines = append(lines, w.mark(fmt.Sprintf("item-%d", i), prefix+label))
	}
	return lines
}

func (w *MiniGraphWidget) renderPicker() []string {
	current := w.source.FetchParameters().Duration
	lines := []string{dimStyle.Render("Time range")}
	for i, d := range w.durations {
		label := "Last " + formatDuration(d)
		if d == current {
			label += " ✓"
		}
		prefix := "  "
		if i == w.pickerCursor {
			prefix = "▸ "
			label = selectedStyle.Render(label)
		}
		lines = append(lines, w.mark(fmt.Sprintf("dur-%d", i), prefix+label))
	}
	return lines
}

func nodeLine(n graph.NodeData, display *graph.DisplayContext) string {
	line := nodeIcon(graph.ClassifyNode(n)) + " " + n.Label()
	if display != nil && graph.SameResource(display, graph.NodeTap(n)) {
		line += " ●"
	}
	var tags []string
	if n.Namespace != "" {
		tags = append(tags, n.Namespace)
	}
	if n.Cluster != "" {
		tags = append(tags, n.Cluster)
	}
	switch {
	case n.IsInaccessible:
		tags = append(tags, "inaccessible")
	case n.IsServiceEntry:
		tags = append(tags, "external")
	case n.IsIdle:
		tags = append(tags, "idle")
	}
	if len(tags) > 0 {
		line += " " + dimStyle.Render(strings.Join(tags, " · "))
	}
	return line
}

func edgeLabel(e graph.EdgeData, labels map[string]string) string {
	src, tgt := labels[e.Source], labels[e.Target]
	if src == "" {
		src = e.Source
	}
	if tgt == "" {
		tgt = e.Target
	}
	line := src + " → " + tgt
	var extra []string
	if e.Protocol != "" {
		extra = append(extra, e.Protocol)
	}
	if e.Rate != "" {
		extra = append(extra, e.Rate)
	}
	if len(extra) > 0 {
		line += " " + dimStyle.Render(strings.Join(extra, " "))
	}
	return line
}

func nodeIcon(nt graph.NodeType) string {
	switch nt {
	case graph.NodeTypeApp:
		return "□"
	case graph.NodeTypeService:
		return "△"
	case graph.NodeTypeWorkload:
		return "○"
	case graph.NodeTypeAggregate:
		return "◇"
	default:
		return "▢"
	}
}

// formatDuration renders a duration in its largest whole unit.
func formatDuration(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d <= 0:
		return "-"
	case d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return d.String()
	}
}

// ---------- Mouse ----------

func (w *MiniGraphWidget) mark(id, s string) string {
	if w.zones == nil {
		return s
	}
	return w.zones.Mark(w.zonePrefix+id, s)
}

func (w *MiniGraphWidget) hit(id string, msg tea.MouseMsg) bool {
	if w.zones == nil {
		return false
	}
	z := w.zones.Get(w.zonePrefix + id)
	return z != nil && z.InBounds(msg)
}

func (w *MiniGraphWidget) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if w.zones == nil || msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	switch {
	case w.hit("menu", msg):
		w.ToggleMenu()
		return nil
	case w.hit("time", msg):
		w.ToggleTimePicker()
		return nil
	}

	if w.session.MenuOpen {
		for i := range w.menuItems() {
			if w.hit(fmt.Sprintf("item-%d", i), msg) {
				w.menuCursor = i
				return w.selectMenu(i)
			}
		}
		return nil
	}
	if w.session.TimePickerOpen {
		for i, d := range w.durations {
			if w.hit(fmt.Sprintf("dur-%d", i), msg) {
				return w.SelectDuration(d)
			}
		}
		return nil
	}
	for i := range w.rows {
		if w.hit(fmt.Sprintf("row-%d", i), msg) {
			w.cursor = i
			return w.tapRow(i)
		}
	}
	return nil
}
