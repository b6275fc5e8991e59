package ws

import (
	"context"
	"encoding/json"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport abstracts the underlying socket so the hub is testable without
// a live websocket.
type Transport interface {
	WriteJSON(ctx context.Context, v any) error
	// Close terminates the connection; a non-empty reason signals a
	// policy-level termination rather than a normal closure.
	Close(reason string) error
}

// Conn is one accepted connection bound to a session identity. Writes are
// serialized; the read loop lives in the server.
type Conn struct {
	sessionID string
	tr        Transport
	hub       *Hub
	emit      EmitFunc

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *Conn) SessionID() string { return c.sessionID }

// Join adds the connection to a room on its local hub.
func (c *Conn) Join(roomID string) { c.hub.joinRoom(c, roomID) }

// Emit sends one event through the interceptor chain.
func (c *Conn) Emit(ctx context.Context, event string, payload any) error {
	return c.emit(ctx, c, event, payload)
}

// Disconnect removes the connection from the hub and closes the socket.
func (c *Conn) Disconnect(reason string) {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		_ = c.tr.Close(reason)
	})
}

func (c *Conn) write(ctx context.Context, event string, payload any) error {
	env := Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = raw
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.tr.WriteJSON(ctx, env)
}

// nhooyrTransport adapts a live websocket connection.
type nhooyrTransport struct {
	conn *websocket.Conn
}

func newNhooyrTransport(conn *websocket.Conn) *nhooyrTransport {
	return &nhooyrTransport{conn: conn}
}

func (t *nhooyrTransport) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, t.conn, v)
}

func (t *nhooyrTransport) Close(reason string) error {
	if reason == "" {
		return t.conn.Close(websocket.StatusNormalClosure, "")
	}
	return t.conn.Close(websocket.StatusPolicyViolation, reason)
}
