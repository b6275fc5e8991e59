package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chessrooms/internal/game"
	"chessrooms/internal/oracle"
	"chessrooms/internal/reqerr"
	"chessrooms/internal/store"
)

type emitRec struct {
	event   string
	payload any
}

type fakeClient struct {
	sid          string
	joined       []string
	emits        []emitRec
	disconnected bool
}

func (f *fakeClient) SessionID() string { return f.sid }
func (f *fakeClient) Join(roomID string) {
	f.joined = append(f.joined, roomID)
}
func (f *fakeClient) Emit(_ context.Context, event string, payload any) error {
	f.emits = append(f.emits, emitRec{event: event, payload: payload})
	return nil
}
func (f *fakeClient) Disconnect(string) { f.disconnected = true }

type castCall struct {
	kind    string // room, roomExcept, session
	target  string
	except  string
	event   string
	payload Payload
}

type fakeCast struct {
	calls []castCall
}

func (f *fakeCast) ToRoom(_ context.Context, roomID, event string, p Payload) {
	f.calls = append(f.calls, castCall{kind: "room", target: roomID, event: event, payload: p})
}
func (f *fakeCast) ToRoomExcept(_ context.Context, roomID, except, event string, p Payload) {
	f.calls = append(f.calls, castCall{kind: "roomExcept", target: roomID, except: except, event: event, payload: p})
}
func (f *fakeCast) ToSession(_ context.Context, sessionID, event string, p Payload) {
	f.calls = append(f.calls, castCall{kind: "session", target: sessionID, event: event, payload: p})
}

func (f *fakeCast) events() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.event)
	}
	return out
}

type moveReq struct {
	gameID string
	typ    game.Type
	rating int
	moves  []string
}

type fakeRequestor struct {
	reqs []moveReq
}

func (f *fakeRequestor) RequestMove(_ context.Context, gameID string, gameType game.Type, rating int, moves []string) error {
	f.reqs = append(f.reqs, moveReq{gameID: gameID, typ: gameType, rating: rating, moves: append([]string(nil), moves...)})
	return nil
}

type archived struct {
	roomID string
	rec    game.Record
	result string
	method string
}

type fakeArchiver struct {
	saved []archived
}

func (f *fakeArchiver) SaveResult(_ context.Context, roomID string, rec *game.Record, result, method string) error {
	f.saved = append(f.saved, archived{roomID: roomID, rec: *rec, result: result, method: method})
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, store.GameStore, *fakeCast) {
	t.Helper()
	games := store.NewMemoryGames(time.Hour)
	sessions := store.NewMemorySessions(time.Hour)
	cast := &fakeCast{}
	return NewCoordinator(games, sessions, cast), games, cast
}

func subcode(t *testing.T, err error) reqerr.Subcode {
	t.Helper()
	require.Error(t, err)
	return reqerr.From(err).Subcode
}

func TestBindIdentityReusesLiveSession(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.BindIdentity(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again, err := c.BindIdentity(ctx, first)
	require.NoError(t, err)
	require.Equal(t, first, again)

	fresh, err := c.BindIdentity(ctx, "never-seen")
	require.NoError(t, err)
	require.NotEqual(t, "never-seen", fresh)
}

func TestEnterRoomCreatesAsWhite(t *testing.T) {
	c, games, _ := newTestCoordinator(t)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}

	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	require.Equal(t, []string{"room-1"}, cl.joined)
	require.Len(t, cl.emits, 1)
	require.Equal(t, EventEnterGameRoom, cl.emits[0].event)
	view := cl.emits[0].payload.(game.View)
	require.Equal(t, game.SideWhite, view.Side)
	require.True(t, view.IsOpponentMissing)
	require.Equal(t, oracle.InitialFEN(), view.GamePositionFEN)

	rec, err := games.Find(ctx, "room-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "alice", rec.FirstSessionID)
	require.Empty(t, rec.Moves)
}

func TestEnterRoomRejoinKeepsSide(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}

	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork"}))
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork"}))

	require.Len(t, cl.emits, 2)
	for _, e := range cl.emits {
		require.Equal(t, game.SideWhite, e.payload.(game.View).Side)
	}
	require.False(t, cl.disconnected)
}

func TestEnterRoomSeatsSecondHuman(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}

	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	view := bob.emits[0].payload.(game.View)
	require.Equal(t, game.SideBlack, view.Side)
	require.False(t, view.IsOpponentMissing)

	// The creator learns the seat filled through a session-targeted rebroadcast.
	require.Len(t, cast.calls, 1)
	require.Equal(t, "session", cast.calls[0].kind)
	require.Equal(t, "alice", cast.calls[0].target)
	require.Equal(t, EventEnterGameRoom, cast.calls[0].event)

	rec, err := games.Find(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, "bob", rec.SecondSessionID)
}

func TestEnterRoomRejectsThirdSession(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.EnterRoom(ctx, &fakeClient{sid: "alice"}, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, &fakeClient{sid: "bob"}, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	eve := &fakeClient{sid: "eve"}
	require.NoError(t, c.EnterRoom(ctx, eve, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.True(t, eve.disconnected)
	require.Empty(t, eve.emits)
}

func TestEnterRoomRejectsStrangerInAgentGame(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.EnterRoom(ctx, &fakeClient{sid: "alice"}, EnterGameRoomPayload{GameID: "room-1", GameType: "stockfishEvaluation"}))

	eve := &fakeClient{sid: "eve"}
	require.NoError(t, c.EnterRoom(ctx, eve, EnterGameRoomPayload{GameID: "room-1", GameType: "stockfishEvaluation"}))
	require.True(t, eve.disconnected)
}

func TestEnterRoomValidatesGameType(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	err := c.EnterRoom(context.Background(), &fakeClient{sid: "alice"},
		EnterGameRoomPayload{GameID: "room-1", GameType: "checkers"})
	require.Equal(t, reqerr.SubcodeValidation, subcode(t, err))
}

func TestNewGamePositionUnknownRoom(t *testing.T) {
	c, _, cast := newTestCoordinator(t)
	err := c.NewGamePosition(context.Background(), &fakeClient{sid: "alice"},
		NewGamePositionPayload{GameID: "nope", From: "e2", To: "e4"})
	require.Equal(t, reqerr.SubcodeNotFound, subcode(t, err))
	require.Empty(t, cast.calls)
}

func TestNewGamePositionRejectsIllegalMove(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	cast.calls = nil

	err := c.NewGamePosition(ctx, cl, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e5"})
	require.Equal(t, reqerr.SubcodeInvalidMove, subcode(t, err))
	require.Empty(t, cast.calls)

	rec, _ := games.Find(ctx, "room-1")
	require.Empty(t, rec.Moves)
	require.Equal(t, oracle.InitialFEN(), rec.GamePositionFEN)
}

func TestNewGamePositionBroadcastsAndRequestsAgentMove(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	req := &fakeRequestor{}
	c.AttachMoveRequestor(req)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork", RatingParameter: 1800}))
	cast.calls = nil
	cl.emits = nil

	require.NoError(t, c.NewGamePosition(ctx, cl, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))

	rec, _ := games.Find(ctx, "room-1")
	require.Equal(t, []string{"e2e4"}, rec.Moves)
	require.NotEqual(t, oracle.InitialFEN(), rec.GamePositionFEN)

	require.Len(t, req.reqs, 1)
	require.Equal(t, "room-1", req.reqs[0].gameID)
	require.Equal(t, game.TypeNeural, req.reqs[0].typ)
	require.Equal(t, 1800, req.reqs[0].rating)
	require.Equal(t, []string{"e2e4"}, req.reqs[0].moves)

	require.Equal(t, []string{EventNewGamePosition}, cast.events())
	require.Len(t, cl.emits, 1)
	require.Equal(t, EventNewGamePosition, cl.emits[0].event)
}

func TestNewGamePositionTerminalSkipsAgentRequest(t *testing.T) {
	c, games, _ := newTestCoordinator(t)
	req := &fakeRequestor{}
	c.AttachMoveRequestor(req)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork"}))

	rec, _ := games.Find(ctx, "room-1")
	rec.Moves = []string{"f2f3", "e7e5", "g2g4"}
	require.NoError(t, games.Save(ctx, "room-1", rec))

	require.NoError(t, c.NewGamePosition(ctx, cl, NewGamePositionPayload{GameID: "room-1", From: "d8", To: "h4"}))

	// The game is over; there is no next move to ask the worker for.
	require.Empty(t, req.reqs)
}

func TestNewGamePositionCheckmate(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	arch := &fakeArchiver{}
	c.AttachArchive(arch)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	plays := []struct {
		cl       *fakeClient
		from, to string
	}{
		{alice, "f2", "f3"},
		{bob, "e7", "e5"},
		{alice, "g2", "g4"},
	}
	for _, m := range plays {
		require.NoError(t, c.NewGamePosition(ctx, m.cl, NewGamePositionPayload{GameID: "room-1", From: m.from, To: m.to}))
	}
	cast.calls = nil
	bob.emits = nil

	require.NoError(t, c.NewGamePosition(ctx, bob, NewGamePositionPayload{GameID: "room-1", From: "d8", To: "h4"}))

	require.Equal(t, []string{EventDefeat, EventNewGamePosition}, cast.events())
	require.Equal(t, "bob", cast.calls[0].except)
	require.Equal(t, EventVictory, bob.emits[0].event)

	// The mate position stays on the record for review.
	rec, _ := games.Find(ctx, "room-1")
	require.Len(t, rec.Moves, 4)
	require.Equal(t, "d8h4", rec.Moves[3])

	require.Len(t, arch.saved, 1)
	require.Equal(t, "black", arch.saved[0].result)
	require.Equal(t, "checkmate", arch.saved[0].method)
}

func TestNewChatMessageFansOutWithOwnership(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	cast.calls = nil
	alice.emits = nil

	require.NoError(t, c.NewChatMessage(ctx, alice, NewChatMessagePayload{GameID: "room-1", NewChatMessage: "gl hf"}))

	require.Len(t, cast.calls, 1)
	require.Equal(t, "roomExcept", cast.calls[0].kind)
	require.Equal(t, "alice", cast.calls[0].except)
	chat := cast.calls[0].payload.(ChatPayload)
	require.Equal(t, "gl hf", chat.Content)
	peerView := chat.For("bob").(game.ChatMessageView)
	require.False(t, peerView.IsYour)

	self := alice.emits[0].payload.(game.ChatMessageView)
	require.True(t, self.IsYour)
	require.Equal(t, "gl hf", self.Content)

	rec, _ := games.Find(ctx, "room-1")
	require.Len(t, rec.ChatMessages, 1)
	require.Equal(t, "alice", rec.ChatMessages[0].FromSessionID)
}

func TestNewChatMessageUnknownRoom(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	err := c.NewChatMessage(context.Background(), &fakeClient{sid: "alice"},
		NewChatMessagePayload{GameID: "nope", NewChatMessage: "hi"})
	require.Equal(t, reqerr.SubcodeNotFound, subcode(t, err))
}

func TestSurrenderConflictsBeforePairing(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	err := c.Surrender(ctx, alice, SurrenderPayload{GameID: "room-1"})
	require.Equal(t, reqerr.SubcodeConflict, subcode(t, err))
}

func TestSurrenderResetsBoardAndArchives(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	arch := &fakeArchiver{}
	c.AttachArchive(arch)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.NewGamePosition(ctx, alice, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))
	cast.calls = nil
	alice.emits = nil

	require.NoError(t, c.Surrender(ctx, alice, SurrenderPayload{GameID: "room-1"}))

	require.Equal(t, []string{EventVictory, EventNewGamePosition}, cast.events())
	require.Equal(t, "alice", cast.calls[0].except)
	require.Equal(t, EventDefeat, alice.emits[0].event)

	rec, _ := games.Find(ctx, "room-1")
	require.Empty(t, rec.Moves)
	require.Equal(t, oracle.InitialFEN(), rec.GamePositionFEN)

	// The archive sees the position as it stood at resignation.
	require.Len(t, arch.saved, 1)
	require.Equal(t, "black", arch.saved[0].result)
	require.Equal(t, "resignation", arch.saved[0].method)
	require.Equal(t, []string{"e2e4"}, arch.saved[0].rec.Moves)
}

func TestUndoAskHumanSetsPending(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	// No moves yet: silently ignored.
	require.NoError(t, c.UndoAsk(ctx, alice, UndoAskPayload{GameID: "room-1"}))
	rec, _ := games.Find(ctx, "room-1")
	require.False(t, rec.UndoPending)

	require.NoError(t, c.NewGamePosition(ctx, alice, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))
	cast.calls = nil
	require.NoError(t, c.UndoAsk(ctx, alice, UndoAskPayload{GameID: "room-1"}))

	rec, _ = games.Find(ctx, "room-1")
	require.True(t, rec.UndoPending)
	require.Equal(t, []string{EventUndoAsk}, cast.events())
	require.Equal(t, "alice", cast.calls[0].except)
}

func TestUndoAskAgentPopsImmediately(t *testing.T) {
	c, games, _ := newTestCoordinator(t)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "stockfishEngineStrength"}))
	require.NoError(t, c.NewGamePosition(ctx, cl, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))
	cl.emits = nil

	require.NoError(t, c.UndoAsk(ctx, cl, UndoAskPayload{GameID: "room-1"}))

	rec, _ := games.Find(ctx, "room-1")
	require.Empty(t, rec.Moves)
	require.Equal(t, oracle.InitialFEN(), rec.GamePositionFEN)
	require.Equal(t, EventNewGamePosition, cl.emits[0].event)
}

func TestUndoAnswerResolvesPending(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.NewGamePosition(ctx, alice, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))

	// Answer with nothing pending: no-op.
	require.NoError(t, c.UndoAnswer(ctx, bob, UndoAnswerPayload{GameID: "room-1", Answer: true}))
	rec, _ := games.Find(ctx, "room-1")
	require.Equal(t, []string{"e2e4"}, rec.Moves)

	// Rejected ask clears the flag, keeps the move, broadcasts nothing.
	require.NoError(t, c.UndoAsk(ctx, alice, UndoAskPayload{GameID: "room-1"}))
	cast.calls = nil
	require.NoError(t, c.UndoAnswer(ctx, bob, UndoAnswerPayload{GameID: "room-1", Answer: false}))
	rec, _ = games.Find(ctx, "room-1")
	require.False(t, rec.UndoPending)
	require.Equal(t, []string{"e2e4"}, rec.Moves)
	require.Empty(t, cast.calls)

	// Accepted ask pops the ply and rebroadcasts the position.
	require.NoError(t, c.UndoAsk(ctx, alice, UndoAskPayload{GameID: "room-1"}))
	cast.calls = nil
	require.NoError(t, c.UndoAnswer(ctx, bob, UndoAnswerPayload{GameID: "room-1", Answer: true}))
	rec, _ = games.Find(ctx, "room-1")
	require.Empty(t, rec.Moves)
	require.Equal(t, []string{EventNewGamePosition}, cast.events())
}

func TestUndoAnswerAcceptWithEmptyTranscript(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))

	// A pending flag with nothing to pop, as another instance could leave
	// behind. Accepting clears the flag and broadcasts nothing.
	rec, _ := games.Find(ctx, "room-1")
	rec.UndoPending = true
	require.NoError(t, games.Save(ctx, "room-1", rec))
	cast.calls = nil

	require.NoError(t, c.UndoAnswer(ctx, bob, UndoAnswerPayload{GameID: "room-1", Answer: true}))

	rec, _ = games.Find(ctx, "room-1")
	require.False(t, rec.UndoPending)
	require.Empty(t, rec.Moves)
	require.Empty(t, cast.calls)
}

func TestMoveClearsPendingUndo(t *testing.T) {
	c, games, _ := newTestCoordinator(t)
	ctx := context.Background()
	alice := &fakeClient{sid: "alice"}
	bob := &fakeClient{sid: "bob"}
	require.NoError(t, c.EnterRoom(ctx, alice, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.EnterRoom(ctx, bob, EnterGameRoomPayload{GameID: "room-1", GameType: "human"}))
	require.NoError(t, c.NewGamePosition(ctx, alice, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))
	require.NoError(t, c.UndoAsk(ctx, alice, UndoAskPayload{GameID: "room-1"}))

	require.NoError(t, c.NewGamePosition(ctx, bob, NewGamePositionPayload{GameID: "room-1", From: "e7", To: "e5"}))
	rec, _ := games.Find(ctx, "room-1")
	require.False(t, rec.UndoPending)
}

func TestApplyAgentTranscript(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork"}))
	require.NoError(t, c.NewGamePosition(ctx, cl, NewGamePositionPayload{GameID: "room-1", From: "e2", To: "e4"}))
	cast.calls = nil

	require.NoError(t, c.ApplyAgentTranscript(ctx, "room-1", []string{"e2e4", "e7e5"}))

	rec, _ := games.Find(ctx, "room-1")
	require.Equal(t, []string{"e2e4", "e7e5"}, rec.Moves)
	require.Equal(t, []string{EventNewGamePosition}, cast.events())
}

func TestApplyAgentTranscriptCheckmate(t *testing.T) {
	c, games, cast := newTestCoordinator(t)
	arch := &fakeArchiver{}
	c.AttachArchive(arch)
	ctx := context.Background()
	cl := &fakeClient{sid: "alice"}
	require.NoError(t, c.EnterRoom(ctx, cl, EnterGameRoomPayload{GameID: "room-1", GameType: "neuralNetwork"}))
	rec, _ := games.Find(ctx, "room-1")
	rec.Moves = []string{"f2f3", "e7e5", "g2g4"}
	require.NoError(t, games.Save(ctx, "room-1", rec))
	cast.calls = nil

	require.NoError(t, c.ApplyAgentTranscript(ctx, "room-1", []string{"f2f3", "e7e5", "g2g4", "d8h4"}))

	// The agent mated the room; the humans hear defeat.
	require.Equal(t, []string{EventDefeat, EventNewGamePosition}, cast.events())
	require.Equal(t, "room", cast.calls[0].kind)
	require.Len(t, arch.saved, 1)
	require.Equal(t, "black", arch.saved[0].result)
	require.Equal(t, "checkmate", arch.saved[0].method)
}

func TestApplyAgentTranscriptUnknownRoom(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	err := c.ApplyAgentTranscript(context.Background(), "nope", []string{"e2e4"})
	require.Equal(t, reqerr.SubcodeNotFound, subcode(t, err))
}
