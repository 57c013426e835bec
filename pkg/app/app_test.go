package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

// stubWidget records what the root model forwards to it.
type stubWidget struct {
	id, title string
	keys      []string
	msgs      []tea.Msg
	inits     int
}

func newStub(id, title string) *stubWidget { return &stubWidget{id: id, title: title} }

func (w *stubWidget) ID() string { return w.id }
func (w *stubWidget) Title() string { return w.title }
func (w *stubWidget) MinSize() (int, int) { return 10, 3 }
func (w *stubWidget) Update(msg tea.Msg) tea.Cmd {
	w.msgs = append(w.msgs, msg)
	return nil
}
func (w *stubWidget) HandleKey(k tea.KeyMsg) tea.Cmd {
	w.keys = append(w.keys, k.String())
	return nil
}
func (w *stubWidget) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return w.title + " body"
}
func (w *stubWidget) Init() tea.Cmd {
	w.inits++
	return func() tea.Msg { return nil }
}
func (w *stubWidget) KeyBindings() []key.Binding {
	return []key.Binding{key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stub action"))}
}

// helper to create a model with 3 stub widgets for testing.
func newTestModel() (AppModel, []*stubWidget) {
	ws := []*stubWidget{newStub("card", "Graph"), newStub("history", "History"), newStub("log", "Log")}
	return NewAppModel(nil, ws[0], ws[1], ws[2]), ws
}

// helper to send a message through Update and return the updated model.
func update(m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(AppModel), cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestInitRunsWidgetInit(t *testing.T) {
	m, ws := newTestModel()
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init() returned nil, expected a batch with the tick command")
	}
	for _, w := range ws {
		if w.inits != 1 {
			t.Errorf("widget %q: expected Init once, got %d", w.id, w.inits)
		}
	}
}

func TestWindowSizeMsgUpdatesDimensions(t *testing.T) {
	m, _ := newTestModel()
	m.layoutDirty = false
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if m.Width() != 120 || m.Height() != 40 {
		t.Errorf("expected 120x40, got %dx%d", m.Width(), m.Height())
	}
	if !m.LayoutDirty() {
		t.Error("expected layoutDirty=true after WindowSizeMsg")
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m, _ := newTestModel()

	if m.FocusedWidgetID() != "card" {
		t.Fatalf("expected initial focus on 'card', got %q", m.FocusedWidgetID())
	}

	want := []string{"history", "log", "card"}
	for i, id := range want {
		m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
		if m.FocusedWidgetID() != id {
			t.Errorf("after Tab %d, expected focus on %q, got %q", i+1, id, m.FocusedWidgetID())
		}
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.FocusedWidgetID() != "log" {
		t.Errorf("after Shift+Tab from 'card', expected 'log', got %q", m.FocusedWidgetID())
	}
}

func TestKeysReachFocusedWidgetOnly(t *testing.T) {
	m, ws := newTestModel()

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(m, runeKey('j'))

	if len(ws[0].keys) != 1 || ws[0].keys[0] != "enter" {
		t.Errorf("card: expected [enter], got %v", ws[0].keys)
	}
	if len(ws[1].keys) != 1 || ws[1].keys[0] != "j" {
		t.Errorf("history: expected [j], got %v", ws[1].keys)
	}
	if len(ws[2].keys) != 0 {
		t.Errorf("log: expected no keys, got %v", ws[2].keys)
	}
}

func TestZoomAndEscape(t *testing.T) {
	m, ws := newTestModel()

	m, _ = update(m, runeKey('z'))
	if m.ExpandedWidgetID() != "card" {
		t.Fatalf("after z, expected expanded='card', got %q", m.ExpandedWidgetID())
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.ExpandedWidgetID() != "" {
		t.Errorf("after Esc, expected no expanded widget, got %q", m.ExpandedWidgetID())
	}
	if len(ws[0].keys) != 0 {
		t.Errorf("Esc that collapses must not reach the widget, got %v", ws[0].keys)
	}

	// With nothing zoomed, Esc belongs to the widget (e.g. to close a menu).
	_, _ = update(m, tea.KeyMsg{Type: tea.KeyEscape})
	if len(ws[0].keys) != 1 || ws[0].keys[0] != "esc" {
		t.Errorf("expected esc forwarded to widget, got %v", ws[0].keys)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyCtrlC}} {
		m, _ := newTestModel()
		m, cmd := update(m, msg)
		if !m.Quitting() {
			t.Errorf("%s: expected quitting", msg.String())
		}
		if cmd == nil {
			t.Errorf("%s: expected quit command", msg.String())
		}
		if m.View() != "" {
			t.Errorf("%s: expected empty view when quitting", msg.String())
		}
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 30})

	m, _ = update(m, runeKey('?'))
	if !m.HelpVisible() {
		t.Fatal("expected help visible")
	}
	if !strings.Contains(m.View(), "stub action") {
		t.Error("help overlay should list widget key bindings")
	}

	m, _ = update(m, runeKey('?'))
	if m.HelpVisible() {
		t.Error("expected help hidden after second ?")
	}
}

func TestDataUpdateEventBroadcastAndStore(t *testing.T) {
	m, ws := newTestModel()

	m, _ = update(m, DataUpdateEvent{Source: "graph", Data: 42, Timestamp: time.Now()})
	m, _ = update(m, DataUpdateEvent{Source: "broken", Err: errors.New("boom")})

	if m.DataStore()["graph"] != 42 {
		t.Errorf("expected graph=42, got %v", m.DataStore()["graph"])
	}
	if _, ok := m.DataStore()["broken"]; ok {
		t.Error("failed updates must not be stored")
	}
	for _, w := range ws {
		if len(w.msgs) != 2 {
			t.Errorf("widget %q: expected 2 broadcast messages, got %d", w.id, len(w.msgs))
		}
	}
}

func TestTickEventReturnsTickCmd(t *testing.T) {
	m, _ := newTestModel()
	_, cmd := update(m, TickEvent{Time: time.Now()})
	if cmd == nil {
		t.Error("expected TickEvent to return a new tick command")
	}
}

func TestNavigationEventSetsStatus(t *testing.T) {
	m, _ := newTestModel()

	m, _ = update(m, NavigationEvent{Kind: "details", URL: "/namespaces/ns1/services/svc1"})
	text, isErr := m.Status()
	if isErr || !strings.Contains(text, "/namespaces/ns1/services/svc1") {
		t.Errorf("unexpected status %q (error=%v)", text, isErr)
	}

	m, _ = update(m, NavigationEvent{Kind: "details", Err: errors.New("no host")})
	text, isErr = m.Status()
	if !isErr || !strings.Contains(text, "no host") {
		t.Errorf("unexpected status %q (error=%v)", text, isErr)
	}
}

func TestStatusEvent(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(m, StatusEvent{Text: "config reloaded"})
	if text, _ := m.Status(); text != "config reloaded" {
		t.Errorf("expected status 'config reloaded', got %q", text)
	}
}

func TestSettingsEventReachesWidgets(t *testing.T) {
	m, ws := newTestModel()
	_, _ = update(m, SettingsEvent{Settings: navigate.DefaultSettings()})
	if _, ok := ws[0].msgs[0].(SettingsEvent); !ok {
		t.Errorf("expected SettingsEvent forwarded, got %T", ws[0].msgs[0])
	}
}

func TestViewBeforeResize(t *testing.T) {
	m, _ := newTestModel()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("expected 'Initializing...', got %q", got)
	}
}

func TestViewRendersWidgets(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 30})

	out := m.View()
	for _, want := range []string{"Graph body", "History body", "Log body", "minigraph"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestExpandedWidgetRendersAlone(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = update(m, WidgetExpandEvent{WidgetID: "history"})

	out := m.View()
	if !strings.Contains(out, "History body") || strings.Contains(out, "Graph body") {
		t.Error("expected only the expanded widget to render")
	}
}

func TestFocusWidgetByID(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(m, WidgetFocusEvent{WidgetID: "log"})
	if m.FocusedWidgetID() != "log" {
		t.Errorf("expected focus on 'log', got %q", m.FocusedWidgetID())
	}
	m.FocusWidget("nonexistent")
	if m.FocusedWidgetID() != "log" {
		t.Errorf("expected focus unchanged at 'log', got %q", m.FocusedWidgetID())
	}
}

func TestNewAppModelWithNoWidgets(t *testing.T) {
	m := NewAppModel(nil)

	if m.FocusedWidgetID() != "" {
		t.Errorf("expected no focused widget with empty model, got %q", m.FocusedWidgetID())
	}

	// Should not panic.
	m.CycleFocusForward()
	m.CycleFocusBackward()
	m.ToggleExpand()
	m, _ = update(m, tea.WindowSizeMsg{Width: 40, Height: 10})
	if m.View() == "" {
		t.Error("expected a view even without widgets")
	}
}

func TestDuplicateWidgetIDsIgnored(t *testing.T) {
	m := NewAppModel(nil, newStub("a", "A"), newStub("a", "A2"))
	m.CycleFocusForward()
	if m.FocusedWidgetID() != "a" {
		t.Errorf("expected single widget 'a', got focus %q", m.FocusedWidgetID())
	}
}

func TestDataFetchCmd(t *testing.T) {
	cmd := DataFetchCmd("test", func() (interface{}, error) {
		return "hello", nil
	})

	ev, ok := cmd().(DataUpdateEvent)
	if !ok {
		t.Fatal("expected DataUpdateEvent")
	}
	if ev.Source != "test" || ev.Data != "hello" || ev.Err != nil {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestDataFetchCmdWithError(t *testing.T) {
	cmd := DataFetchCmd("failing", func() (interface{}, error) {
		return "partial", errors.New("boom")
	})

	ev := cmd().(DataUpdateEvent)
	if ev.Err == nil {
		t.Error("expected error in DataUpdateEvent")
	}
	if ev.Data != nil {
		t.Error("expected nil data when fetch fails")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RefreshInterval <= 0 {
		t.Error("expected positive RefreshInterval in DefaultConfig")
	}
}
