package widgets

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/minigraph/pkg/app"
)

// DefaultHistoryLimit bounds how many navigations the panel keeps.
const DefaultHistoryLimit = 100

// HistoryWidget lists the navigations dispatched by the card, newest
// first. In standalone mode these are the router pushes; embedded, they are
// the messages posted to the host.
type HistoryWidget struct {
	entries []app.NavigationEvent
	limit   int
	offset  int

	up   key.Binding
	down key.Binding
}

// NewHistoryWidget creates an empty history panel.
func NewHistoryWidget(limit int) *HistoryWidget {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryWidget{
		limit: limit,
		up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll history")),
		down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll history")),
	}
}

// ID returns "history".
func (w *HistoryWidget) ID() string { return "history" }

// Title returns "Navigation".
func (w *HistoryWidget) Title() string { return "Navigation" }

// MinSize returns the minimum dimensions required by the widget.
func (w *HistoryWidget) MinSize() (int, int) { return 20, 3 }

// Entries returns the recorded navigations, oldest first.
func (w *HistoryWidget) Entries() []app.NavigationEvent {
	return append([]app.NavigationEvent(nil), w.entries...)
}

// Update records NavigationEvents.
func (w *HistoryWidget) Update(msg tea.Msg) tea.Cmd {
	ev, ok := msg.(app.NavigationEvent)
	if !ok {
		return nil
	}
	w.entries = append(w.entries, ev)
	if len(w.entries) > w.limit {
		w.entries = w.entries[len(w.entries)-w.limit:]
	}
	w.offset = 0
	return nil
}

// HandleKey scrolls the list.
func (w *HistoryWidget) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, w.up):
		if w.offset > 0 {
			w.offset--
		}
	case key.Matches(msg, w.down):
		if w.offset < len(w.entries)-1 {
			w.offset++
		}
	}
	return nil
}

// KeyBindings lists the panel's bindings for the help overlay.
func (w *HistoryWidget) KeyBindings() []key.Binding {
	return []key.Binding{w.up, w.down}
}

// View renders the widget content into the given area dimensions.
func (w *HistoryWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if len(w.entries) == 0 {
		return centerText(dimStyle.Render("No navigation yet"), width, height)
	}

	lines := make([]string, 0, len(w.entries))
	for i := len(w.entries) - 1; i >= 0; i-- {
		ev := w.entries[i]
		stamp := dimStyle.Render(ev.Time.Format("15:04:05"))
		kind := accentStyle.Render(ev.Kind)
		var b strings.Builder
		b.WriteString(stamp + " " + kind + " ")
		if ev.Err != nil {
			b.WriteString(errorStyle.Render("✗ " + ev.Err.Error()))
		} else {
			b.WriteString(ev.URL)
		}
		lines = append(lines, b.String())
	}
	if w.offset < len(lines) {
		lines = lines[w.offset:]
	}
	return fitToArea(lines, width, height, 0)
}
