// Package agent bridges the coordinator to the out-of-process move workers
// over the message bus. Requests fan out on per-game-type subjects so each
// worker kind scales independently; results come back on one shared
// subject.
package agent

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"chessrooms/internal/bus"
	"chessrooms/internal/game"
	"chessrooms/internal/obslog"
)

const (
	// SubjectCalculatePrefix is completed with the game type, e.g.
	// "agent.calculateMove.neuralNetwork".
	SubjectCalculatePrefix = "agent.calculateMove."
	// SubjectMoveCalculated carries worker results for every game type.
	SubjectMoveCalculated = "agent.moveCalculated"
)

// CalculateRequest asks a worker for the agent side's next move.
type CalculateRequest struct {
	GameID          string    `json:"gameId"`
	GameType        game.Type `json:"gameType"`
	RatingParameter int       `json:"ratingParameter,omitempty"`
	Moves           []string  `json:"moves"`
}

// CalculatedResult is the worker's reply: the full transcript including the
// move it chose.
type CalculatedResult struct {
	GameID string   `json:"gameId"`
	Moves  []string `json:"moves"`
}

// Pipeline is the re-entry point into the move pipeline's apply/notify
// path.
type Pipeline interface {
	ApplyAgentTranscript(ctx context.Context, roomID string, moves []string) error
}

type Bridge struct {
	bus  bus.Bus
	pipe Pipeline
	sub  bus.Subscription
	wg   sync.WaitGroup
}

func NewBridge(b bus.Bus, pipe Pipeline) *Bridge {
	return &Bridge{bus: b, pipe: pipe}
}

// RequestMove publishes a calculate request. Fire and forget: nobody waits
// for the worker.
func (b *Bridge) RequestMove(ctx context.Context, gameID string, gameType game.Type, ratingParameter int, moves []string) error {
	raw, err := json.Marshal(CalculateRequest{
		GameID:          gameID,
		GameType:        gameType,
		RatingParameter: ratingParameter,
		Moves:           moves,
	})
	if err != nil {
		return err
	}
	return b.bus.Publish(ctx, SubjectCalculatePrefix+string(gameType), raw)
}

// Run starts the result consumer loop. Malformed or stale payloads are
// logged and dropped; no connection owns these failures, so nothing is
// disconnected and nothing is retried.
func (b *Bridge) Run(ctx context.Context) error {
	sub, err := b.bus.Subscribe(ctx, SubjectMoveCalculated)
	if err != nil {
		return err
	}
	b.sub = sub
	b.wg.Add(1)
	go b.consume()
	return nil
}

func (b *Bridge) consume() {
	defer b.wg.Done()
	for raw := range b.sub.C() {
		var res CalculatedResult
		if err := json.Unmarshal(raw, &res); err != nil || res.GameID == "" || len(res.Moves) == 0 {
			obslog.L().Warn("agent_result_malformed", zap.ByteString("payload", raw))
			continue
		}
		if err := b.pipe.ApplyAgentTranscript(context.Background(), res.GameID, res.Moves); err != nil {
			obslog.L().Error("agent_result_dropped",
				zap.String("game_id", res.GameID),
				zap.Error(err),
			)
		}
	}
}

// Stop drains the subscription and waits for the consumer to exit.
func (b *Bridge) Stop() error {
	if b.sub == nil {
		return nil
	}
	err := b.sub.Stop()
	b.wg.Wait()
	return err
}
