// Package dispatch delivers navigation targets. A card running inside a
// host page posts the target's URL to the host; a standalone card pushes
// it onto its own router.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.com/tinyland/lab/minigraph/pkg/host"
	"gitlab.com/tinyland/lab/minigraph/pkg/navigate"
)

var (
	// ErrNoRouter is returned when a standalone dispatch has no router.
	ErrNoRouter = errors.New("dispatch: no router configured")
	// ErrNoHost is returned when an embedded dispatch has no host channel.
	ErrNoHost = errors.New("dispatch: no host channel configured")
)

// Router performs local navigation with push semantics.
type Router interface {
	Push(url string) error
}

// HostChannel posts messages to the page framing the card.
type HostChannel interface {
	Send(ctx context.Context, msg host.Message) error
}

// Mode names where a dispatch went.
type Mode string

const (
	ModeHost   Mode = "host"
	ModeRouter Mode = "router"
)

// Observer is notified after every dispatch attempt.
type Observer interface {
	ObserveDispatch(mode Mode, kind string, err error)
}

// Dispatcher routes a target to the host or the local router depending on
// whether the card is embedded.
type Dispatcher struct {
	Router   Router
	Host     HostChannel
	Embedded bool
	Logger   *slog.Logger
	Observer Observer
}

// Dispatch delivers a computed target.
func (d *Dispatcher) Dispatch(ctx context.Context, t navigate.Target) error {
	return d.deliver(ctx, t.Kind.String(), t.URL())
}

// DispatchURL delivers a raw URL, used by the host command and HTTP API.
func (d *Dispatcher) DispatchURL(ctx context.Context, url string) error {
	return d.deliver(ctx, "url", url)
}

// WizardAction closes the menu and then runs action. It is used for the
// host-provided actions offered in embedded mode.
func (d *Dispatcher) WizardAction(closeMenu func(), action func()) {
	if closeMenu != nil {
		closeMenu()
	}
	if action != nil {
		action()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, kind, url string) error {
	mode := ModeRouter
	if d.Embedded {
		mode = ModeHost
	}

	var err error
	switch mode {
	case ModeHost:
		if d.Host == nil {
			err = ErrNoHost
			break
		}
		msg := host.Navigate(url)
		if sendErr := d.Host.Send(ctx, msg); sendErr != nil {
			err = fmt.Errorf("post %s to host: %w", msg.ID, sendErr)
		}
	default:
		if d.Router == nil {
			err = ErrNoRouter
			break
		}
		if pushErr := d.Router.Push(url); pushErr != nil {
			err = fmt.Errorf("push %s: %w", url, pushErr)
		}
	}

	if d.Observer != nil {
		d.Observer.ObserveDispatch(mode, kind, err)
	}
	if err != nil {
		d.logger().Error("dispatch failed", "mode", mode, "kind", kind, "url", url, "error", err)
		return err
	}
	d.logger().Info("navigated", "mode", mode, "kind", kind, "url", url)
	return nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// History is an in-memory Router. Each push appends an entry.
type History struct {
	mu      sync.RWMutex
	entries []string

	// OnPush, when set, is called with every pushed URL.
	OnPush func(url string)
}

// Push appends url to the history.
func (h *History) Push(url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	h.mu.Lock()
	h.entries = append(h.entries, url)
	cb := h.OnPush
	h.mu.Unlock()
	if cb != nil {
		cb(url)
	}
	return nil
}

// Current returns the most recent entry, or "".
func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
