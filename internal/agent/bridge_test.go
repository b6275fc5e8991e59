package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chessrooms/internal/bus"
	"chessrooms/internal/game"
)

type fakePipeline struct {
	mu    sync.Mutex
	calls []CalculatedResult
}

func (f *fakePipeline) ApplyAgentTranscript(_ context.Context, roomID string, moves []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, CalculatedResult{GameID: roomID, Moves: moves})
	return nil
}

func (f *fakePipeline) snapshot() []CalculatedResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CalculatedResult(nil), f.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never met")
}

func TestRequestMoveSubjectPerGameType(t *testing.T) {
	b := bus.NewMemory()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, SubjectCalculatePrefix+"neuralNetwork")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, SubjectCalculatePrefix+"stockfishEvaluation")
	require.NoError(t, err)

	bridge := NewBridge(b, &fakePipeline{})
	require.NoError(t, bridge.RequestMove(ctx, "room-1", game.TypeNeural, 1500, []string{"e2e4"}))

	select {
	case raw := <-sub.C():
		var req CalculateRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		require.Equal(t, "room-1", req.GameID)
		require.Equal(t, game.TypeNeural, req.GameType)
		require.Equal(t, 1500, req.RatingParameter)
		require.Equal(t, []string{"e2e4"}, req.Moves)
	case <-time.After(2 * time.Second):
		t.Fatalf("no request published")
	}

	select {
	case <-other.C():
		t.Fatalf("request leaked to the wrong game type subject")
	default:
	}
}

func TestConsumerAppliesResults(t *testing.T) {
	b := bus.NewMemory()
	pipe := &fakePipeline{}
	bridge := NewBridge(b, pipe)
	require.NoError(t, bridge.Run(context.Background()))
	defer func() { _ = bridge.Stop() }()

	raw, err := json.Marshal(CalculatedResult{GameID: "room-1", Moves: []string{"e2e4", "e7e5"}})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), SubjectMoveCalculated, raw))

	waitFor(t, func() bool { return len(pipe.snapshot()) == 1 })
	got := pipe.snapshot()[0]
	require.Equal(t, "room-1", got.GameID)
	require.Equal(t, []string{"e2e4", "e7e5"}, got.Moves)
}

func TestConsumerDropsMalformedPayloads(t *testing.T) {
	b := bus.NewMemory()
	pipe := &fakePipeline{}
	bridge := NewBridge(b, pipe)
	require.NoError(t, bridge.Run(context.Background()))
	defer func() { _ = bridge.Stop() }()

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, SubjectMoveCalculated, []byte("not json")))
	require.NoError(t, b.Publish(ctx, SubjectMoveCalculated, []byte(`{"gameId":"","moves":[]}`)))

	// A valid message after the junk proves the loop survived.
	raw, _ := json.Marshal(CalculatedResult{GameID: "ok", Moves: []string{"e2e4"}})
	require.NoError(t, b.Publish(ctx, SubjectMoveCalculated, raw))

	waitFor(t, func() bool { return len(pipe.snapshot()) == 1 })
	require.Equal(t, "ok", pipe.snapshot()[0].GameID)
}

func TestStopDrains(t *testing.T) {
	b := bus.NewMemory()
	bridge := NewBridge(b, &fakePipeline{})
	require.NoError(t, bridge.Run(context.Background()))
	require.NoError(t, bridge.Stop())
	// Idempotent.
	require.NoError(t, bridge.Stop())
}
