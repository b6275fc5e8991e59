// Package room is the coordination engine: it binds connections to session
// identities, pairs identities into games, serializes mutations through the
// game store and fans results out to whoever should see them.
package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessrooms/internal/game"
	"chessrooms/internal/msgcat"
	"chessrooms/internal/obslog"
	"chessrooms/internal/oracle"
	"chessrooms/internal/reqerr"
	"chessrooms/internal/store"
)

// Client is one live connection, bound to a session identity.
type Client interface {
	SessionID() string
	Join(roomID string)
	Emit(ctx context.Context, event string, payload any) error
	// Disconnect hard-terminates the connection. Used for unauthorized
	// room access; not an error path the client can recover from.
	Disconnect(reason string)
}

// Broadcaster delivers events across every coordinator instance sharing the
// room namespace. Payloads are re-projected per recipient.
type Broadcaster interface {
	ToRoom(ctx context.Context, roomID, event string, p Payload)
	ToRoomExcept(ctx context.Context, roomID, exceptSessionID, event string, p Payload)
	ToSession(ctx context.Context, sessionID, event string, p Payload)
}

// MoveRequestor asks an external worker for the agent side's next move.
type MoveRequestor interface {
	RequestMove(ctx context.Context, gameID string, gameType game.Type, ratingParameter int, moves []string) error
}

// Archiver persists finished games. Best effort; failures are logged, never
// surfaced to clients.
type Archiver interface {
	SaveResult(ctx context.Context, roomID string, rec *game.Record, result, method string) error
}

type Coordinator struct {
	games     store.GameStore
	sessions  store.SessionStore
	cast      Broadcaster
	requestor MoveRequestor
	archive   Archiver
	validate  *validator.Validate
}

func NewCoordinator(games store.GameStore, sessions store.SessionStore, cast Broadcaster) *Coordinator {
	return &Coordinator{
		games:    games,
		sessions: sessions,
		cast:     cast,
		validate: validator.New(),
	}
}

// AttachMoveRequestor wires the agent bridge for non-human games.
func (c *Coordinator) AttachMoveRequestor(r MoveRequestor) { c.requestor = r }

// AttachArchive wires the optional finished-game archive.
func (c *Coordinator) AttachArchive(a Archiver) { c.archive = a }

// BindIdentity resolves the session for a connecting client. A presented id
// that still exists is reused so state survives reconnects; anything else
// gets a fresh opaque id. Never fails with a client-visible error.
func (c *Coordinator) BindIdentity(ctx context.Context, presented string) (string, error) {
	if presented != "" {
		ok, err := c.sessions.Exists(ctx, presented)
		if err != nil {
			return "", err
		}
		if ok {
			if err := c.sessions.Save(ctx, presented); err != nil {
				return "", err
			}
			return presented, nil
		}
	}
	sid := uuid.NewString()
	if err := c.sessions.Save(ctx, sid); err != nil {
		return "", err
	}
	obslog.L().Info("session_bind", zap.String("session_id", sid), zap.Bool("reused", false))
	return sid, nil
}

// EnterRoom resolves room membership: create, rejoin, seat the second
// human, or hard-reject.
func (c *Coordinator) EnterRoom(ctx context.Context, client Client, p EnterGameRoomPayload) error {
	if err := c.check(p); err != nil {
		return err
	}
	sid := client.SessionID()
	client.Join(p.GameID)

	rec, err := c.games.Find(ctx, p.GameID)
	if err != nil {
		return err
	}

	if rec == nil {
		rec = &game.Record{
			FirstSessionID:  sid,
			GameType:        game.Type(p.GameType),
			RatingParameter: p.RatingParameter,
			Moves:           []string{},
			GamePositionFEN: oracle.InitialFEN(),
			ChatMessages:    []game.ChatMessage{},
		}
		if err := c.games.Save(ctx, p.GameID, rec); err != nil {
			return err
		}
		obslog.L().Info("room_create",
			zap.String("game_id", p.GameID),
			zap.String("game_type", p.GameType),
			zap.String("session_id", sid),
		)
		return client.Emit(ctx, EventEnterGameRoom, game.PruneView(sid, rec, game.SideWhite))
	}

	if side, ok := rec.Seated(sid); ok {
		// Replay defends against snapshot drift left by a concurrent
		// writer; the transcript is the authority.
		pos, err := oracle.Replay(rec.Moves)
		if err != nil {
			return fmt.Errorf("replay %s: %w", p.GameID, err)
		}
		if pos.FEN() != rec.GamePositionFEN {
			rec.GamePositionFEN = pos.FEN()
			if err := c.games.Save(ctx, p.GameID, rec); err != nil {
				return err
			}
		}
		return client.Emit(ctx, EventEnterGameRoom, game.PruneView(sid, rec, side))
	}

	if rec.GameType == game.TypeHuman && rec.SecondSessionID == "" {
		rec.SecondSessionID = sid
		if err := c.games.Save(ctx, p.GameID, rec); err != nil {
			return err
		}
		obslog.L().Info("room_pair",
			zap.String("game_id", p.GameID),
			zap.String("session_id", sid),
		)
		if err := client.Emit(ctx, EventEnterGameRoom, game.PruneView(sid, rec, game.SideBlack)); err != nil {
			return err
		}
		c.cast.ToSession(ctx, rec.FirstSessionID, EventEnterGameRoom,
			Static{V: game.PruneView(rec.FirstSessionID, rec, game.SideWhite)})
		return nil
	}

	// Room is full or the caller tried to join somebody else's agent game.
	// That is an attempt to access another identity's private game, so the
	// connection is terminated rather than handed a recoverable error.
	obslog.L().Warn("room_reject",
		zap.String("game_id", p.GameID),
		zap.String("session_id", sid),
	)
	client.Disconnect("unauthorized game access")
	return nil
}

// NewChatMessage appends to the room chat and fans the message out with
// viewer-relative ownership flags.
func (c *Coordinator) NewChatMessage(ctx context.Context, client Client, p NewChatMessagePayload) error {
	if err := c.check(p); err != nil {
		return err
	}
	rec, err := c.games.Find(ctx, p.GameID)
	if err != nil {
		return err
	}
	if rec == nil {
		return reqerr.NotFound(msgcat.Get("error.chat_not_found"))
	}

	sid := client.SessionID()
	msg := game.ChatMessage{ID: uuid.NewString(), FromSessionID: sid, Content: p.NewChatMessage}
	rec.ChatMessages = append(rec.ChatMessages, msg)
	if err := c.games.Save(ctx, p.GameID, rec); err != nil {
		return err
	}

	c.cast.ToRoomExcept(ctx, p.GameID, sid, EventNewChatMessage,
		ChatPayload{ID: msg.ID, FromSessionID: sid, Content: msg.Content})
	return client.Emit(ctx, EventNewChatMessage,
		game.ChatMessageView{ID: msg.ID, IsYour: true, Content: msg.Content})
}

// Surrender concedes the game: the board resets and the counterpart wins.
func (c *Coordinator) Surrender(ctx context.Context, client Client, p SurrenderPayload) error {
	if err := c.check(p); err != nil {
		return err
	}
	rec, err := c.games.Find(ctx, p.GameID)
	if err != nil {
		return err
	}
	if rec == nil {
		return reqerr.NotFound(msgcat.Get("error.game_not_found"))
	}
	if rec.GameType == game.TypeHuman && rec.SecondSessionID == "" {
		return reqerr.Conflict(msgcat.Get("error.opponent_missing"))
	}

	sid := client.SessionID()
	side, _ := rec.Seated(sid)
	final := *rec
	rec.Moves = []string{}
	rec.GamePositionFEN = oracle.InitialFEN()
	rec.UndoPending = false
	if err := c.games.Save(ctx, p.GameID, rec); err != nil {
		return err
	}
	obslog.L().Info("room_surrender",
		zap.String("game_id", p.GameID),
		zap.String("session_id", sid),
	)

	c.cast.ToRoomExcept(ctx, p.GameID, sid, EventVictory, Static{})
	_ = client.Emit(ctx, EventDefeat, nil)
	c.archiveResult(ctx, p.GameID, &final, string(opposite(side)), "resignation")
	c.cast.ToRoom(ctx, p.GameID, EventNewGamePosition,
		Static{V: PositionPayload{GamePositionFEN: rec.GamePositionFEN}})
	return nil
}

// UndoAsk starts the undo negotiation. Human games broadcast the ask and
// wait; agent games grant immediately since there is nobody to ask.
func (c *Coordinator) UndoAsk(ctx context.Context, client Client, p UndoAskPayload) error {
	if err := c.check(p); err != nil {
		return err
	}
	rec, err := c.games.Find(ctx, p.GameID)
	if err != nil {
		return err
	}
	if rec == nil {
		return reqerr.NotFound(msgcat.Get("error.game_not_found"))
	}
	if len(rec.Moves) == 0 {
		return nil
	}

	if rec.GameType == game.TypeHuman {
		rec.UndoPending = true
		if err := c.games.Save(ctx, p.GameID, rec); err != nil {
			return err
		}
		// No timeout: an unanswered ask stays pending until answered or
		// the record expires.
		c.cast.ToRoomExcept(ctx, p.GameID, client.SessionID(), EventUndoAsk, Static{})
		return nil
	}

	res, err := oracle.Undo(rec.Moves)
	if err != nil {
		return err
	}
	rec.Moves = res.Moves
	rec.GamePositionFEN = res.FEN
	if err := c.games.Save(ctx, p.GameID, rec); err != nil {
		return err
	}
	return client.Emit(ctx, EventNewGamePosition, PositionPayload{GamePositionFEN: res.FEN})
}

// UndoAnswer resolves a pending ask. Without one it is a no-op.
func (c *Coordinator) UndoAnswer(ctx context.Context, client Client, p UndoAnswerPayload) error {
	if err := c.check(p); err != nil {
		return err
	}
	rec, err := c.games.Find(ctx, p.GameID)
	if err != nil {
		return err
	}
	if rec == nil {
		return reqerr.NotFound(msgcat.Get("error.game_not_found"))
	}
	if !rec.UndoPending {
		return nil
	}

	rec.UndoPending = false
	if !p.Answer || len(rec.Moves) == 0 {
		return c.games.Save(ctx, p.GameID, rec)
	}

	res, err := oracle.Undo(rec.Moves)
	if err != nil {
		return err
	}
	rec.Moves = res.Moves
	rec.GamePositionFEN = res.FEN
	if err := c.games.Save(ctx, p.GameID, rec); err != nil {
		return err
	}
	c.cast.ToRoom(ctx, p.GameID, EventNewGamePosition,
		Static{V: PositionPayload{GamePositionFEN: res.FEN}})
	return nil
}

func (c *Coordinator) check(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		objs := make([]reqerr.ErrorObject, 0, len(verrs))
		for _, fe := range verrs {
			objs = append(objs, reqerr.ErrorObject{
				Message:   fmt.Sprintf("failed %q constraint", fe.Tag()),
				FieldPath: fe.Field(),
			})
		}
		return reqerr.Validation(reqerr.CodeWebsocket, objs...)
	}
	return reqerr.Validation(reqerr.CodeWebsocket)
}

func (c *Coordinator) archiveResult(ctx context.Context, roomID string, rec *game.Record, result, method string) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveResult(ctx, roomID, rec, result, method); err != nil {
		obslog.L().Error("archive_error",
			zap.String("game_id", roomID),
			zap.String("result", result),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("archive_result",
		zap.String("game_id", roomID),
		zap.String("result", result),
		zap.String("method", method),
	)
}

func opposite(s game.Side) game.Side {
	if s == game.SideWhite {
		return game.SideBlack
	}
	return game.SideWhite
}
