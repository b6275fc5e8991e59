package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessrooms/internal/bus"
	"chessrooms/internal/obslog"
	"chessrooms/internal/room"
)

// SubjectRelay carries broadcasts between server instances. Every instance
// publishes its room and session traffic here and replays what other
// instances published, so two players split across instances still share a
// room.
const SubjectRelay = "ws.relay"

const (
	relayScopeRoom    = "room"
	relayScopeSession = "session"

	relayKindStatic = "static"
	relayKindChat   = "chat"
)

type relayEnvelope struct {
	Origin string          `json:"origin"`
	Scope  string          `json:"scope"`
	Target string          `json:"target"`
	Except string          `json:"except,omitempty"`
	Event  string          `json:"event"`
	Kind   string          `json:"kind"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// rawStatic replays an already-projected payload from another instance.
type rawStatic struct {
	data json.RawMessage
}

func (p rawStatic) For(string) any {
	if len(p.data) == 0 {
		return nil
	}
	return p.data
}

// Hub tracks local connections and their room membership, delivers
// broadcasts locally, and relays them over the bus for other instances.
// It implements the coordinator's broadcaster.
type Hub struct {
	instanceID   string
	bus          bus.Bus
	interceptors []Interceptor

	mu       sync.RWMutex
	rooms    map[string]map[*Conn]struct{}
	sessions map[string]map[*Conn]struct{}
	joined   map[*Conn]map[string]struct{}

	relay bus.Subscription
	wg    sync.WaitGroup
}

func NewHub(b bus.Bus, interceptors ...Interceptor) *Hub {
	return &Hub{
		instanceID:   uuid.NewString(),
		bus:          b,
		interceptors: interceptors,
		rooms:        make(map[string]map[*Conn]struct{}),
		sessions:     make(map[string]map[*Conn]struct{}),
		joined:       make(map[*Conn]map[string]struct{}),
	}
}

// Adopt registers a transport under a session identity and returns the
// connection ready to emit.
func (h *Hub) Adopt(tr Transport, sessionID string) *Conn {
	c := &Conn{sessionID: sessionID, tr: tr, hub: h}
	c.emit = chainEmit(func(ctx context.Context, c *Conn, event string, payload any) error {
		return c.write(ctx, event, payload)
	}, h.interceptors...)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*Conn]struct{})
	}
	h.sessions[sessionID][c] = struct{}{}
	h.joined[c] = make(map[string]struct{})
	return c
}

func (h *Hub) joinRoom(c *Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.joined[c]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Conn]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	h.joined[c][roomID] = struct{}{}
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.joined[c] {
		delete(h.rooms[roomID], c)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.joined, c)
	if set := h.sessions[c.sessionID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
}

// Run subscribes to the relay subject and starts replaying remote
// broadcasts locally.
func (h *Hub) Run(ctx context.Context) error {
	sub, err := h.bus.Subscribe(ctx, SubjectRelay)
	if err != nil {
		return err
	}
	h.relay = sub
	h.wg.Add(1)
	go h.consumeRelay()
	return nil
}

func (h *Hub) consumeRelay() {
	defer h.wg.Done()
	for raw := range h.relay.C() {
		var env relayEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			obslog.L().Warn("relay_malformed", zap.Error(err))
			continue
		}
		if env.Origin == h.instanceID {
			continue
		}
		p, err := relayPayload(env)
		if err != nil {
			obslog.L().Warn("relay_malformed",
				zap.String("event", env.Event),
				zap.Error(err),
			)
			continue
		}
		switch env.Scope {
		case relayScopeRoom:
			h.deliverRoom(context.Background(), env.Target, env.Except, env.Event, p)
		case relayScopeSession:
			h.deliverSession(context.Background(), env.Target, env.Event, p)
		}
	}
}

func relayPayload(env relayEnvelope) (room.Payload, error) {
	if env.Kind == relayKindChat {
		var chat room.ChatPayload
		if err := json.Unmarshal(env.Data, &chat); err != nil {
			return nil, err
		}
		return chat, nil
	}
	return rawStatic{data: env.Data}, nil
}

// Stop drains the relay subscription and waits for the replay loop.
func (h *Hub) Stop() error {
	if h.relay == nil {
		return nil
	}
	err := h.relay.Stop()
	h.wg.Wait()
	return err
}

// ToRoom emits to every local member of the room and relays for the rest.
func (h *Hub) ToRoom(ctx context.Context, roomID, event string, p room.Payload) {
	h.deliverRoom(ctx, roomID, "", event, p)
	h.relayOut(ctx, relayEnvelope{Scope: relayScopeRoom, Target: roomID, Event: event}, p)
}

// ToRoomExcept is ToRoom minus one session, typically the actor.
func (h *Hub) ToRoomExcept(ctx context.Context, roomID, exceptSessionID, event string, p room.Payload) {
	h.deliverRoom(ctx, roomID, exceptSessionID, event, p)
	h.relayOut(ctx, relayEnvelope{
		Scope:  relayScopeRoom,
		Target: roomID,
		Except: exceptSessionID,
		Event:  event,
	}, p)
}

// ToSession emits to every connection of one session, wherever it lives.
func (h *Hub) ToSession(ctx context.Context, sessionID, event string, p room.Payload) {
	h.deliverSession(ctx, sessionID, event, p)
	h.relayOut(ctx, relayEnvelope{Scope: relayScopeSession, Target: sessionID, Event: event}, p)
}

func (h *Hub) deliverRoom(ctx context.Context, roomID, exceptSessionID, event string, p room.Payload) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if exceptSessionID != "" && c.sessionID == exceptSessionID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		// Emit failures surface in the interceptor chain; one slow or dead
		// socket never blocks the rest of the room.
		_ = c.Emit(ctx, event, p.For(c.sessionID))
	}
}

func (h *Hub) deliverSession(ctx context.Context, sessionID, event string, p room.Payload) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		_ = c.Emit(ctx, event, p.For(c.sessionID))
	}
}

func (h *Hub) relayOut(ctx context.Context, env relayEnvelope, p room.Payload) {
	env.Origin = h.instanceID
	switch v := p.(type) {
	case room.ChatPayload:
		env.Kind = relayKindChat
		raw, err := json.Marshal(v)
		if err != nil {
			obslog.L().Error("relay_encode_error", zap.String("event", env.Event), zap.Error(err))
			return
		}
		env.Data = raw
	default:
		env.Kind = relayKindStatic
		// Viewer-independent payloads project identically everywhere.
		if body := p.For(""); body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				obslog.L().Error("relay_encode_error", zap.String("event", env.Event), zap.Error(err))
				return
			}
			env.Data = raw
		}
	}
	raw, err := json.Marshal(env)
	if err != nil {
		obslog.L().Error("relay_encode_error", zap.String("event", env.Event), zap.Error(err))
		return
	}
	if err := h.bus.Publish(ctx, SubjectRelay, raw); err != nil {
		obslog.L().Error("relay_publish_error", zap.String("event", env.Event), zap.Error(err))
	}
}
