// Package session keeps the transient state of one mini graph card: its
// menu and time picker flags and the graph snapshot it renders. The
// snapshot is refreshed from the data source's fetch events while the
// session is active.
package session

import (
	"gitlab.com/tinyland/lab/minigraph/pkg/datasource"
	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// Source is the view of the data source a session needs.
type Source interface {
	GraphData() *graph.Elements
	IsLoading() bool
	ErrorMessage() string
	IsError() bool
	FetchParameters() graph.FetchParams
	GraphTimestamp() int64
	GraphDuration() int64
	On(event datasource.Event, h datasource.Handler) datasource.ListenerID
	RemoveListener(event datasource.Event, id datasource.ListenerID)
}

// Snapshot is what the card renders. It is replaced wholesale on every
// refresh.
type Snapshot struct {
	Elements     *graph.Elements
	IsLoading    bool
	IsError      bool
	ErrorMessage string
	Params       graph.FetchParams
	Timestamp    int64
}

// State is owned by a single event loop and is not safe for concurrent use.
type State struct {
	MenuOpen       bool
	TimePickerOpen bool

	// OnRefresh, when set, runs after every snapshot replacement.
	OnRefresh func(Snapshot)

	source    Source
	snapshot  Snapshot
	successID datasource.ListenerID
	errorID   datasource.ListenerID
	active    bool
	refreshes int
}

// New returns an inactive session.
func New() *State {
	return &State{}
}

// Activate subscribes one refresh handler to both fetch events and takes an
// initial snapshot. Activating an active session moves it to src.
func (s *State) Activate(src Source) {
	if s.active {
		s.Deactivate()
	}
	s.source = src
	s.successID = src.On(datasource.EventFetchSuccess, s.refresh)
	s.errorID = src.On(datasource.EventFetchError, s.refresh)
	s.active = true
	s.refresh()
}

// Deactivate removes both subscriptions. Fetches already in flight are
// left alone; when they complete the session no longer hears about them.
func (s *State) Deactivate() {
	if !s.active {
		return
	}
	s.source.RemoveListener(datasource.EventFetchSuccess, s.successID)
	s.source.RemoveListener(datasource.EventFetchError, s.errorID)
	s.active = false
}

// Active reports whether the session is subscribed.
func (s *State) Active() bool {
	return s.active
}

// Snapshot returns the current snapshot.
func (s *State) Snapshot() Snapshot {
	return s.snapshot
}

// Refreshes returns how many times the snapshot has been replaced.
func (s *State) Refreshes() int {
	return s.refreshes
}

func (s *State) refresh() {
	src := s.source
	s.snapshot = Snapshot{
		Elements:     src.GraphData(),
		IsLoading:    src.IsLoading(),
		IsError:      src.IsError(),
		ErrorMessage: src.ErrorMessage(),
		Params:       src.FetchParameters(),
		Timestamp:    src.GraphTimestamp(),
	}
	s.refreshes++
	if s.OnRefresh != nil {
		s.OnRefresh(s.snapshot)
	}
}

// ToggleMenu opens or closes the action menu. Opening it closes the time
// picker.
func (s *State) ToggleMenu() {
	s.MenuOpen = !s.MenuOpen
	if s.MenuOpen {
		s.TimePickerOpen = false
	}
}

// CloseMenu closes the action menu.
func (s *State) CloseMenu() {
	s.MenuOpen = false
}

// ToggleTimePicker opens or closes the time range picker. Opening it closes
// the menu.
func (s *State) ToggleTimePicker() {
	s.TimePickerOpen = !s.TimePickerOpen
	if s.TimePickerOpen {
		s.MenuOpen = false
	}
}

// CloseTimePicker closes the time range picker.
func (s *State) CloseTimePicker() {
	s.TimePickerOpen = false
}

// Window derives the time window from the snapshot timestamp and the
// source's current duration.
func (s *State) Window() (TimeWindow, bool) {
	var duration int64
	if s.source != nil {
		duration = s.source.GraphDuration()
	}
	return WindowFor(s.snapshot.Timestamp, duration)
}
