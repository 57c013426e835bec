package host

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// IPCServer listens on a Unix domain socket for navigation requests from
// embedded cards and hands them to a Handler.
//
// Protocol:
//   - Client sends a single line: COMMAND [payload]
//   - Server responds with a JSON Ack line.
//   - Supported commands: PING, NAVIGATE {message json}
type IPCServer struct {
	socketPath string
	handler    Handler
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// deliver messages to handler.
func NewIPCServer(socketPath string, handler Handler, logger *slog.Logger) *IPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &IPCServer{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections. The socket file is created with
// mode 0600 and any stale socket at the path is removed first.
func (s *IPCServer) Start() error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("host ipc listening", "socket", s.socketPath)
	return nil
}

// Stop closes the listener, waits for active connections to finish, and
// removes the socket file. It is safe to call more than once.
func (s *IPCServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

// SocketPath returns the path the server listens on.
func (s *IPCServer) SocketPath() string {
	return s.socketPath
}

func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn reads one command line, dispatches it, and writes the ack.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	ack := s.dispatch(line)
	data, err := encodeLine(ack)
	if err != nil {
		return
	}
	conn.Write(data)
}

func (s *IPCServer) dispatch(line string) Ack {
	cmd, payload := parseIPCCommand(line)

	switch cmd {
	case "PING":
		return Ack{OK: true}
	case "NAVIGATE":
		var msg Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return Ack{Error: fmt.Sprintf("decode message: %v", err)}
		}
		if err := msg.Validate(); err != nil {
			return Ack{ID: msg.ID, Error: err.Error()}
		}
		if err := s.handler.HandleMessage(msg); err != nil {
			s.logger.Warn("host handler failed", "id", msg.ID, "error", err)
			return Ack{ID: msg.ID, Error: err.Error()}
		}
		s.logger.Debug("host navigate", "id", msg.ID, "url", msg.URL)
		return Ack{ID: msg.ID, OK: true}
	default:
		return Ack{Error: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// parseIPCCommand splits a line into the upper-cased command and the rest
// of the line.
//
//	PING                      -> cmd="PING", payload=""
//	NAVIGATE {"id":"..."}     -> cmd="NAVIGATE", payload=`{"id":"..."}`
func parseIPCCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	cmd, payload, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), strings.TrimSpace(payload)
}

// IPCClient sends messages to a host listening on a Unix socket. Each call
// opens a new connection.
type IPCClient struct {
	socketPath string
}

// NewIPCClient creates a client for the host at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath}
}

// Send delivers msg and waits for the host's ack.
func (c *IPCClient) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	ack, err := c.roundTrip(ctx, "NAVIGATE "+string(payload))
	if err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("host rejected message %s: %s", msg.ID, ack.Error)
	}
	return nil
}

// Ping checks that a host is listening.
func (c *IPCClient) Ping(ctx context.Context) error {
	ack, err := c.roundTrip(ctx, "PING")
	if err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("ping: %s", ack.Error)
	}
	return nil
}

func (c *IPCClient) roundTrip(ctx context.Context, line string) (Ack, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Ack{}, fmt.Errorf("connect to host: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return Ack{}, fmt.Errorf("write command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Ack{}, fmt.Errorf("read ack: %w", err)
		}
		return Ack{}, fmt.Errorf("empty response from host")
	}

	var ack Ack
	if err := json.Unmarshal(scanner.Bytes(), &ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}
