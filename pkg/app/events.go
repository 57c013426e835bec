// Package app provides the Bubbletea root model that hosts the mini graph
// card. It defines the event types exchanged between commands and widgets,
// the widget interface, focus navigation, and the status bar.
//
// This package is designed against bubbletea v1.3.x but architected so that
// migrating to v2 requires only import-path changes and minor API adjustments.
package app

import (
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

// DataUpdateEvent carries the result of a fetch command back into the
// bubbletea update loop. Receivers type-assert Data based on Source.
type DataUpdateEvent struct {
	Source    string      // Collector or data source name (e.g., "graph")
	Data      interface{} // Type-asserted by the receiver
	Err       error       // Non-nil if the fetch failed
	Timestamp time.Time
}

// TickEvent is sent periodically by the render ticker. Widgets use it to
// decide when to refetch.
type TickEvent struct {
	Time time.Time
}

// WidgetFocusEvent requests that focus move to a specific widget.
type WidgetFocusEvent struct {
	WidgetID string
}

// WidgetExpandEvent toggles a widget between normal and fullscreen mode.
type WidgetExpandEvent struct {
	WidgetID string
}

// NavigationEvent reports the outcome of a dispatched navigation.
type NavigationEvent struct {
	Kind string
	URL  string
	Err  error
	Time time.Time
}

// SettingsEvent delivers replacement UI settings, typically from the config
// file watcher.
type SettingsEvent struct {
	Settings navigate.Settings
}

// StatusEvent sets the status bar message.
type StatusEvent struct {
	Text    string
	IsError bool
}
