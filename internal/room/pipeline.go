package room

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"chessrooms/internal/game"
	"chessrooms/internal/msgcat"
	"chessrooms/internal/obslog"
	"chessrooms/internal/oracle"
	"chessrooms/internal/reqerr"
)

// NewGamePosition applies a player-submitted move. The stored snapshot is
// never trusted for legality: the transcript is replayed first, so a write
// that raced another instance still lands on a legal position.
func (c *Coordinator) NewGamePosition(ctx context.Context, client Client, p NewGamePositionPayload) error {
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

	res, err := oracle.Apply(rec.Moves, p.From, p.To)
	if err != nil {
		if errors.Is(err, oracle.ErrInvalidMove) {
			// No mutation, no broadcast.
			return reqerr.InvalidMove(msgcat.Get("error.invalid_move"))
		}
		return fmt.Errorf("apply %s: %w", p.GameID, err)
	}

	sid := client.SessionID()
	side, _ := rec.Seated(sid)
	rec.Moves = res.Moves
	rec.GamePositionFEN = res.FEN
	rec.UndoPending = false
	if p.RatingParameter != 0 {
		rec.RatingParameter = p.RatingParameter
	}

	switch {
	case res.Checkmate:
		// The record keeps the mate position so post-game review shows
		// the actual finish.
		c.cast.ToRoomExcept(ctx, p.GameID, sid, EventDefeat, Static{})
		_ = client.Emit(ctx, EventVictory, nil)
		c.archiveResult(ctx, p.GameID, rec, string(side), "checkmate")
	case res.Draw:
		c.cast.ToRoom(ctx, p.GameID, EventDraw, Static{})
		c.archiveResult(ctx, p.GameID, rec, "draw", "draw")
	}

	if err := c.games.Save(ctx, p.GameID, rec); err != nil {
		return err
	}
	obslog.L().Info("room_move",
		zap.String("game_id", p.GameID),
		zap.String("session_id", sid),
		zap.String("move", res.Moves[len(res.Moves)-1]),
		zap.Int("ply", len(res.Moves)),
	)

	terminal := res.Checkmate || res.Draw
	if rec.GameType.Agent() && len(rec.Moves) > 0 && !terminal && c.requestor != nil {
		// Fire and forget: the human side is never blocked on the worker.
		if err := c.requestor.RequestMove(ctx, p.GameID, rec.GameType, rec.RatingParameter, rec.Moves); err != nil {
			obslog.L().Error("agent_request_error",
				zap.String("game_id", p.GameID),
				zap.Error(err),
			)
		}
	}

	pos := PositionPayload{GamePositionFEN: res.FEN}
	c.cast.ToRoom(ctx, p.GameID, EventNewGamePosition, Static{V: pos})
	// Redundant self-emit: the mover may not be room-joined yet on every
	// transport.
	_ = client.Emit(ctx, EventNewGamePosition, pos)
	return nil
}

// ApplyAgentTranscript re-enters the apply/notify path with a transcript
// computed by a trusted worker. No legality replay is needed, but the
// transcript is still replayed once to derive the snapshot and the terminal
// state for broadcasting.
func (c *Coordinator) ApplyAgentTranscript(ctx context.Context, roomID string, moves []string) error {
	rec, err := c.games.Find(ctx, roomID)
	if err != nil {
		return err
	}
	if rec == nil {
		return reqerr.NotFound(msgcat.Get("error.game_not_found"))
	}

	pos, err := oracle.Replay(moves)
	if err != nil {
		return fmt.Errorf("agent transcript for %s: %w", roomID, err)
	}

	rec.Moves = moves
	rec.GamePositionFEN = pos.FEN()

	switch {
	case pos.Checkmate():
		// The agent has no connection; everyone seated in the room is on
		// the losing side of its mate.
		c.cast.ToRoom(ctx, roomID, EventDefeat, Static{})
		c.archiveResult(ctx, roomID, rec, string(lastMoverSide(moves)), "checkmate")
	case pos.Draw():
		c.cast.ToRoom(ctx, roomID, EventDraw, Static{})
		c.archiveResult(ctx, roomID, rec, "draw", "draw")
	}

	if err := c.games.Save(ctx, roomID, rec); err != nil {
		return err
	}
	obslog.L().Info("agent_move",
		zap.String("game_id", roomID),
		zap.Int("ply", len(moves)),
	)

	c.cast.ToRoom(ctx, roomID, EventNewGamePosition,
		Static{V: PositionPayload{GamePositionFEN: rec.GamePositionFEN}})
	return nil
}

// lastMoverSide derives who played the final ply from transcript parity.
func lastMoverSide(moves []string) game.Side {
	if len(moves)%2 == 1 {
		return game.SideWhite
	}
	return game.SideBlack
}
