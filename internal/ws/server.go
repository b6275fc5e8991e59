package ws

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chessrooms/internal/msgcat"
	"chessrooms/internal/obslog"
	"chessrooms/internal/reqerr"
	"chessrooms/internal/room"
)

// Server terminates websockets and dispatches envelope events into the
// coordinator. One read loop per connection; all replies flow back through
// the hub.
type Server struct {
	hub   *Hub
	coord *room.Coordinator
}

func NewServer(hub *Hub, coord *room.Coordinator) *Server {
	return &Server{hub: hub, coord: coord}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	ctx := r.Context()

	sid, err := s.coord.BindIdentity(ctx, r.URL.Query().Get("sessionId"))
	if err != nil {
		obslog.L().Error("session_bind_error", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "session binding failed")
		return
	}

	c := s.hub.Adopt(newNhooyrTransport(conn), sid)
	if err := c.Emit(ctx, room.EventConnected, room.ConnectedPayload{SessionID: sid}); err != nil {
		c.Disconnect("")
		return
	}

	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			// Normal disconnect path as far as the server is concerned.
			c.Disconnect("")
			return
		}
		if err := s.dispatch(r, c, env); err != nil {
			s.fail(r, c, env.Event, err)
			return
		}
	}
}

func (s *Server) dispatch(r *http.Request, c *Conn, env Envelope) error {
	ctx := r.Context()
	switch env.Event {
	case room.EventEnterGameRoom:
		var p room.EnterGameRoomPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.EnterRoom(ctx, c, p)
	case room.EventNewGamePosition:
		var p room.NewGamePositionPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.NewGamePosition(ctx, c, p)
	case room.EventSurrender:
		var p room.SurrenderPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.Surrender(ctx, c, p)
	case room.EventUndoAsk:
		var p room.UndoAskPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.UndoAsk(ctx, c, p)
	case room.EventUndoAnswer:
		var p room.UndoAnswerPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.UndoAnswer(ctx, c, p)
	case room.EventNewChatMessage:
		var p room.NewChatMessagePayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.coord.NewChatMessage(ctx, c, p)
	default:
		return reqerr.Validation(reqerr.CodeWebsocket, reqerr.ErrorObject{
			Message:   msgcat.Get("error.unknown_event"),
			FieldPath: "event",
		})
	}
}

// fail emits the structured error and terminates the connection. Every
// coordinator error is fatal to the connection; clients reconnect with
// their session id and resume.
func (s *Server) fail(r *http.Request, c *Conn, event string, err error) {
	rerr := reqerr.From(err)
	obslog.L().Warn("ws_request_error",
		zap.String("event", event),
		zap.String("session_id", c.SessionID()),
		zap.String("subcode", string(rerr.Subcode)),
		zap.Error(err),
	)
	_ = c.Emit(r.Context(), room.EventError, rerr)
	c.Disconnect("request failed")
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return reqerr.Validation(reqerr.CodeWebsocket, reqerr.ErrorObject{Message: "missing payload"})
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return reqerr.Validation(reqerr.CodeWebsocket, reqerr.ErrorObject{Message: err.Error()})
	}
	return nil
}
