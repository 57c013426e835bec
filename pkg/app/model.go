package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// Widget is implemented by everything the root model can host.
type Widget interface {
	ID() string
	Title() string
	MinSize() (width, height int)
	Update(msg tea.Msg) tea.Cmd
	HandleKey(key tea.KeyMsg) tea.Cmd
	View(width, height int) string
}

// Initializer is implemented by widgets that need to start commands when
// the program starts.
type Initializer interface {
	Init() tea.Cmd
}

// KeyHinter is implemented by widgets that contribute bindings to the help
// overlay.
type KeyHinter interface {
	KeyBindings() []key.Binding
}

// Config configures the root model.
type Config struct {
	// RefreshInterval is the tick period that drives widget refresh checks.
	RefreshInterval time.Duration
	Title           string
	// Zones, when set, is used to make widget frames clickable. Widgets
	// that mark zones must share the same manager.
	Zones *zone.Manager
}

// DefaultConfig returns the root model defaults.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Second,
		Title:           "minigraph",
	}
}

type globalKeys struct {
	Quit     key.Binding
	Help     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Expand   key.Binding
	Collapse key.Binding
}

func defaultGlobalKeys() globalKeys {
	return globalKeys{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next widget")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev widget")),
		Expand:   key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "zoom widget")),
		Collapse: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unzoom")),
	}
}

func (k globalKeys) bindings() []key.Binding {
	return []key.Binding{k.Quit, k.Help, k.Next, k.Prev, k.Expand, k.Collapse}
}

// AppModel is the root bubbletea model.
type AppModel struct {
	cfg   Config
	keys  globalKeys
	help  help.Model
	zones *zone.Manager

	widgets        map[string]Widget
	widgetOrder    []string
	focusedWidget  string
	expandedWidget string

	width       int
	height      int
	layoutDirty bool
	helpVisible bool
	quitting    bool

	dataStore map[string]interface{}

	status      string
	statusError bool
}

// NewAppModel creates the root model. Focus starts on the first widget.
func NewAppModel(cfg *Config, widgets ...Widget) AppModel {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
		if c.RefreshInterval <= 0 {
			c.RefreshInterval = DefaultConfig().RefreshInterval
		}
	}

	m := AppModel{
		cfg:         c,
		keys:        defaultGlobalKeys(),
		help:        help.New(),
		zones:       c.Zones,
		widgets:     make(map[string]Widget, len(widgets)),
		layoutDirty: true,
		dataStore:   make(map[string]interface{}),
	}
	for _, w := range widgets {
		if w == nil {
			continue
		}
		if _, dup := m.widgets[w.ID()]; dup {
			continue
		}
		m.widgets[w.ID()] = w
		m.widgetOrder = append(m.widgetOrder, w.ID())
	}
	if len(m.widgetOrder) > 0 {
		m.focusedWidget = m.widgetOrder[0]
	}
	return m
}

// Init starts the ticker and every widget's initial commands.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(m.cfg.RefreshInterval)}
	for _, id := range m.widgetOrder {
		if in, ok := m.widgets[id].(Initializer); ok {
			cmds = append(cmds, in.Init())
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layoutDirty = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.focusAt(msg)
		}
		return m, m.broadcast(msg)

	case WidgetFocusEvent:
		m.FocusWidget(msg.WidgetID)
		return m, nil

	case WidgetExpandEvent:
		m.FocusWidget(msg.WidgetID)
		m.ToggleExpand()
		return m, nil

	case DataUpdateEvent:
		if msg.Err == nil {
			m.dataStore[msg.Source] = msg.Data
		}
		return m, m.broadcast(msg)

	case TickEvent:
		return m, tea.Batch(TickCmd(m.cfg.RefreshInterval), m.broadcast(msg))

	case StatusEvent:
		m.status = msg.Text
		m.statusError = msg.IsError
		return m, nil

	case NavigationEvent:
		if msg.Err != nil {
			m.status = "navigation failed: " + msg.Err.Error()
			m.statusError = true
		} else {
			m.status = "→ " + msg.URL
			m.statusError = false
		}
		return m, m.broadcast(msg)
	}

	return m, m.broadcast(msg)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.CycleFocusForward()
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.CycleFocusBackward()
		return m, nil
	case key.Matches(msg, m.keys.Expand):
		m.ToggleExpand()
		return m, nil
	case key.Matches(msg, m.keys.Collapse) && (m.expandedWidget != "" || m.helpVisible):
		m.expandedWidget = ""
		m.helpVisible = false
		return m, nil
	}

	if w, ok := m.widgets[m.focusedWidget]; ok {
		return m, w.HandleKey(msg)
	}
	return m, nil
}

// broadcast forwards msg to every widget and batches their commands.
func (m AppModel) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.widgetOrder {
		if cmd := m.widgets[id].Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	bodyHeight := m.height - 1
	var body string
	switch {
	case m.helpVisible:
		body = m.renderHelp(m.width, bodyHeight)
	case m.expandedWidget != "":
		body = m.renderWidget(m.expandedWidget, m.width, bodyHeight)
	default:
		body = m.renderStack(m.width, bodyHeight)
	}

	out := lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar(m.width))
	if m.zones != nil {
		out = m.zones.Scan(out)
	}
	return out
}

// renderStack splits the height evenly between widgets, giving any
// remainder to the first one.
func (m AppModel) renderStack(width, height int) string {
	n := len(m.widgetOrder)
	if n == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dimStyle.Render("no widgets"))
	}
	each := height / n
	extra := height - each*n
	parts := make([]string, 0, n)
	for i, id := range m.widgetOrder {
		h := each
		if i == 0 {
			h += extra
		}
		parts = append(parts, m.renderWidget(id, width, h))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m AppModel) renderWidget(id string, width, height int) string {
	w, ok := m.widgets[id]
	if !ok || width < 4 || height < 3 {
		return ""
	}

	border := frameStyle
	if id == m.focusedWidget {
		border = frameFocusStyle
	}
	innerW, innerH := width-2, height-3
	content := ""
	if innerH > 0 {
		content = w.View(innerW, innerH)
	}
	title := titleStyle.Render(w.Title())
	framed := border.Width(innerW).Height(innerH + 1).Render(title + "\n" + content)
	if m.zones != nil {
		framed = m.zones.Mark(widgetZoneID(id), framed)
	}
	return framed
}

func (m AppModel) renderHelp(width, height int) string {
	groups := [][]key.Binding{m.keys.bindings()}
	for _, id := range m.widgetOrder {
		if kh, ok := m.widgets[id].(KeyHinter); ok {
			groups = append(groups, kh.KeyBindings())
		}
	}
	content := titleStyle.Render("Keys") + "\n\n" + m.help.FullHelpView(groups)
	return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 1).Render(content)
}

func (m AppModel) renderStatusBar(width int) string {
	left := m.cfg.Title
	if m.focusedWidget != "" {
		left += " · " + m.widgets[m.focusedWidget].Title()
	}
	msg := m.status
	style := statusStyle
	if m.statusError {
		style = statusErrorStyle
	}
	right := m.help.ShortHelpView([]key.Binding{m.keys.Help, m.keys.Quit})

	gap := width - lipgloss.Width(left) - lipgloss.Width(msg) - lipgloss.Width(right) - 4
	if gap < 1 {
		msg = ""
		gap = width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	}
	if gap < 1 {
		gap = 1
	}
	line := " " + left + "  " + msg + strings.Repeat(" ", gap) + right + " "
	return style.MaxWidth(width).Render(line)
}

// Width returns the terminal width.
func (m AppModel) Width() int { return m.width }

// Height returns the terminal height.
func (m AppModel) Height() int { return m.height }

// LayoutDirty reports whether the terminal was resized since the last
// render.
func (m AppModel) LayoutDirty() bool { return m.layoutDirty }

// FocusedWidgetID returns the focused widget's id.
func (m AppModel) FocusedWidgetID() string { return m.focusedWidget }

// ExpandedWidgetID returns the zoomed widget's id, or "".
func (m AppModel) ExpandedWidgetID() string { return m.expandedWidget }

// HelpVisible reports whether the help overlay is shown.
func (m AppModel) HelpVisible() bool { return m.helpVisible }

// Quitting reports whether quit was requested.
func (m AppModel) Quitting() bool { return m.quitting }

// DataStore returns the last successful data per source.
func (m AppModel) DataStore() map[string]interface{} { return m.dataStore }

// Status returns the status bar message and whether it is an error.
func (m AppModel) Status() (string, bool) { return m.status, m.statusError }
