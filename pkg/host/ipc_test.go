package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// recorder collects delivered messages.
type recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recorder) HandleMessage(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) received() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// shortSocketPath keeps the path under the unix socket length limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "mg")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "host.sock")
}

func startServer(t *testing.T, h Handler) (*IPCServer, *IPCClient) {
	t.Helper()
	path := shortSocketPath(t)
	srv := NewIPCServer(path, h, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewIPCClient(path)
}

func TestIPCNavigate(t *testing.T) {
	rec := &recorder{}
	_, client := startServer(t, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := Navigate("/namespaces/ns1/services/svc1")
	if err := client.Send(ctx, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := rec.received()
	if len(got) != 1 {
		t.Fatalf("received %d messages, want 1", len(got))
	}
	if got[0].ID != msg.ID {
		t.Errorf("id = %q, want %q", got[0].ID, msg.ID)
	}
	if got[0].URL != "/namespaces/ns1/services/svc1" {
		t.Errorf("url = %q", got[0].URL)
	}
	if got[0].Kind != KindNavigate {
		t.Errorf("kind = %q, want navigate", got[0].Kind)
	}
}

func TestIPCPing(t *testing.T) {
	_, client := startServer(t, &recorder{})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestIPCHandlerError(t *testing.T) {
	rec := &recorder{err: errors.New("frame unavailable")}
	_, client := startServer(t, rec)

	err := client.Send(context.Background(), Navigate("/graph/namespaces"))
	if err == nil {
		t.Fatal("expected error from rejecting handler")
	}
}

func TestIPCRejectsInvalidMessage(t *testing.T) {
	rec := &recorder{}
	_, client := startServer(t, rec)

	err := client.Send(context.Background(), Message{ID: "not-a-uuid", Kind: KindNavigate, URL: "/x"})
	if err == nil {
		t.Fatal("expected error for invalid id")
	}
	if n := len(rec.received()); n != 0 {
		t.Errorf("handler called %d times for invalid message", n)
	}
}

func TestIPCClientNoServer(t *testing.T) {
	client := NewIPCClient(shortSocketPath(t))
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestIPCStopRemovesSocket(t *testing.T) {
	srv, _ := startServer(t, &recorder{})
	srv.Stop()
	srv.Stop()
	if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
		t.Errorf("socket still exists after Stop: %v", err)
	}
}

func TestParseIPCCommand(t *testing.T) {
	tests := []struct {
		line        string
		wantCmd     string
		wantPayload string
	}{
		{line: "", wantCmd: "", wantPayload: ""},
		{line: "ping", wantCmd: "PING", wantPayload: ""},
		{line: `NAVIGATE {"id":"x"}`, wantCmd: "NAVIGATE", wantPayload: `{"id":"x"}`},
		{line: "  navigate   {}  ", wantCmd: "NAVIGATE", wantPayload: "{}"},
	}
	for _, tt := range tests {
		cmd, payload := parseIPCCommand(tt.line)
		if cmd != tt.wantCmd || payload != tt.wantPayload {
			t.Errorf("parseIPCCommand(%q) = (%q, %q), want (%q, %q)", tt.line, cmd, payload, tt.wantCmd, tt.wantPayload)
		}
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "navigate", msg: Navigate("/x"), wantErr: false},
		{name: "ping", msg: Message{ID: Navigate("").ID, Kind: KindPing}, wantErr: false},
		{name: "navigate without url", msg: Navigate(""), wantErr: true},
		{name: "bad id", msg: Message{ID: "x", Kind: KindNavigate, URL: "/x"}, wantErr: true},
		{name: "unknown kind", msg: Message{ID: Navigate("").ID, Kind: "resize"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
