// Package oracle wraps the chess rules engine as stateless functions over a
// UCI move transcript. Callers never hold a live game object: every
// operation replays the transcript from the start position, which keeps
// concurrent coordinator instances honest about what the current position
// actually is.
package oracle

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// ErrInvalidMove marks a move the rules engine rejected for the replayed
// position. Wrapped errors carry the offending move.
var ErrInvalidMove = errors.New("invalid move")

// Position is an immutable snapshot produced by Replay.
type Position struct {
	game  *nchess.Game
	moves []string
}

// Result is the outcome of a successful mutation (Apply or Undo).
type Result struct {
	Moves     []string
	FEN       string
	Checkmate bool
	Draw      bool
}

// InitialFEN returns the standard start position.
func InitialFEN() string {
	return nchess.NewGame().FEN()
}

// Replay reconstructs a position by applying every transcript move from the
// start position. A transcript that does not replay cleanly is corrupt.
func Replay(moves []string) (*Position, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, raw := range moves {
		uci := strings.ToLower(strings.TrimSpace(raw))
		mv, err := notation.Decode(game.Position(), uci)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", raw, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", raw, err)
		}
	}
	return &Position{game: game, moves: append([]string(nil), moves...)}, nil
}

func (p *Position) FEN() string   { return p.game.FEN() }
func (p *Position) PlyCount() int { return len(p.moves) }
func (p *Position) Checkmate() bool {
	o := p.game.Outcome()
	return o == nchess.WhiteWon || o == nchess.BlackWon
}
func (p *Position) Draw() bool { return p.game.Outcome() == nchess.Draw }

// Apply replays the transcript and plays from→to on top of it. Ambiguous
// pawn promotions default to a queen; there is no underpromotion surface.
func Apply(moves []string, from, to string) (*Result, error) {
	pos, err := Replay(moves)
	if err != nil {
		return nil, err
	}

	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to))
	notation := nchess.UCINotation{}
	play := func(candidate string) error {
		mv, err := notation.Decode(pos.game.Position(), candidate)
		if err != nil {
			return err
		}
		return pos.game.Move(mv, nil)
	}
	if err := play(uci); err != nil {
		// A bare from+to on a promoting pawn decodes fine but is not in the
		// legal move set; retry as a queen promotion before giving up.
		if err := play(uci + "q"); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMove, uci)
		}
		uci += "q"
	}

	next := append(append([]string(nil), moves...), uci)
	return resultFrom(pos.game, next), nil
}

// Undo pops exactly one ply by replaying all but the last transcript move.
func Undo(moves []string) (*Result, error) {
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: nothing to undo", ErrInvalidMove)
	}
	next := append([]string(nil), moves[:len(moves)-1]...)
	pos, err := Replay(next)
	if err != nil {
		return nil, err
	}
	return resultFrom(pos.game, next), nil
}

// SANLine renders the transcript in algebraic notation, for PGN export.
func SANLine(moves []string) ([]string, error) {
	game := nchess.NewGame()
	uciNotation := nchess.UCINotation{}
	sanNotation := nchess.AlgebraicNotation{}
	out := make([]string, 0, len(moves))
	for _, raw := range moves {
		pos := game.Position()
		mv, err := uciNotation.Decode(pos, strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", raw, err)
		}
		san := sanNotation.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", raw, err)
		}
		out = append(out, san)
	}
	return out, nil
}

func resultFrom(game *nchess.Game, moves []string) *Result {
	res := &Result{Moves: moves, FEN: game.FEN()}
	switch game.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		res.Checkmate = true
	case nchess.Draw:
		res.Draw = true
	}
	return res
}
