// Package host carries navigation requests from an embedded card to the
// page that frames it. Two transports are provided: a line-based protocol
// over a Unix domain socket and a websocket hub.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned when sending on a channel that has been shut down.
var ErrClosed = errors.New("host: channel closed")

// Kind identifies the purpose of a host message.
type Kind string

const (
	// KindNavigate asks the host page to navigate to URL.
	KindNavigate Kind = "navigate"
	// KindPing checks that the host is listening.
	KindPing Kind = "ping"
)

// Message is a request posted to the host page.
type Message struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	URL  string    `json:"url,omitempty"`
	Sent time.Time `json:"sent"`
}

// Navigate builds a navigate message with a fresh id.
func Navigate(url string) Message {
	return Message{
		ID:   uuid.NewString(),
		Kind: KindNavigate,
		URL:  url,
		Sent: time.Now().UTC(),
	}
}

// Validate checks that the message is well formed.
func (m Message) Validate() error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return fmt.Errorf("invalid message id %q: %w", m.ID, err)
	}
	switch m.Kind {
	case KindNavigate:
		if m.URL == "" {
			return errors.New("navigate message without url")
		}
	case KindPing:
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	return nil
}

// Handler receives messages delivered to the host.
type Handler interface {
	HandleMessage(msg Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msg Message) error

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg Message) error {
	return f(msg)
}

// Ack is the reply to a delivered message.
type Ack struct {
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func encodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
