package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrNoListeners is returned by Hub.Send when no host frame is connected.
var ErrNoListeners = errors.New("host: no connected host frames")

// wsConn serializes writes to a websocket connection.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub fans navigation messages out to every connected host frame. Host
// frames connect through ServeHTTP.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	conns  map[*wsConn]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[*wsConn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the peer goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{conn: conn}
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	defer h.unregister(c)

	h.logger.Debug("host frame connected", "remote", r.RemoteAddr)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	// Host frames only send acks; they are read to keep the connection
	// alive and to notice when the peer leaves.
	for {
		var ack Ack
		if err := conn.ReadJSON(&ack); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("host frame read failed", "error", err)
			}
			return
		}
		if !ack.OK {
			h.logger.Warn("host frame rejected message", "id", ack.ID, "error", ack.Error)
		}
	}
}

// Send broadcasts msg to all connected host frames. It fails when the hub
// is closed or nobody is listening.
func (h *Hub) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNoListeners
	}

	var errs []error
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			errs = append(errs, err)
			h.unregister(c)
			c.conn.Close()
		}
	}
	if len(errs) == len(targets) {
		return fmt.Errorf("deliver message %s: %w", msg.ID, errors.Join(errs...))
	}
	return nil
}

// Len returns the number of connected host frames.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every host frame. Later sends return ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := h.conns
	h.conns = make(map[*wsConn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.conn.Close()
	}
}

func (h *Hub) register(c *wsConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Listen connects to a hub as a host frame and delivers every received
// message to handler, acking each one. It returns when ctx is done or the
// connection drops.
func Listen(ctx context.Context, url string, handler Handler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	c := &wsConn{conn: conn}

	stop := context.AfterFunc(ctx, func() {
		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		conn.Close()
	})
	defer stop()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrClosed
			}
			return fmt.Errorf("read message: %w", err)
		}

		ack := Ack{ID: msg.ID, OK: true}
		if err := msg.Validate(); err != nil {
			ack = Ack{ID: msg.ID, Error: err.Error()}
		} else if err := handler.HandleMessage(msg); err != nil {
			ack = Ack{ID: msg.ID, Error: err.Error()}
		}
		if err := c.writeJSON(ack); err != nil {
			return fmt.Errorf("write ack: %w", err)
		}
	}
}
