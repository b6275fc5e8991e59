// Package game defines the persisted game record and its per-viewer
// projections.
package game

// Type enumerates the supported opponent kinds. Everything except human is
// an agent game: the second seat stays virtual and moves arrive from an
// out-of-process worker over the bus.
type Type string

const (
	TypeHuman          Type = "human"
	TypeEngineStrength Type = "stockfishEngineStrength"
	TypeEvaluation     Type = "stockfishEvaluation"
	TypeNeural         Type = "neuralNetwork"
)

func (t Type) Valid() bool {
	switch t {
	case TypeHuman, TypeEngineStrength, TypeEvaluation, TypeNeural:
		return true
	}
	return false
}

// Agent reports whether moves for the second side come from a worker.
func (t Type) Agent() bool { return t.Valid() && t != TypeHuman }

// Side identifies a seat in the room.
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// ChatMessage is append-only; messages are never edited or removed.
type ChatMessage struct {
	ID            string `json:"id"`
	FromSessionID string `json:"fromSessionId"`
	Content       string `json:"content"`
}

// Record is the authoritative game state, one per room. Moves is the UCI
// transcript and is replay-authoritative; GamePositionFEN is a derived
// snapshot and is only ever written together with Moves from the same
// oracle replay.
type Record struct {
	FirstSessionID  string        `json:"firstSessionId"`
	SecondSessionID string        `json:"secondSessionId,omitempty"`
	GameType        Type          `json:"gameType"`
	RatingParameter int           `json:"ratingParameter,omitempty"`
	Moves           []string      `json:"moves"`
	GamePositionFEN string        `json:"gamePositionFen"`
	ChatMessages    []ChatMessage `json:"chatMessages"`
	UndoPending     bool          `json:"undoPending,omitempty"`
}

// Seated resolves which side a session occupies, by exact identity equality
// only. The creator is always white.
func (r *Record) Seated(sessionID string) (Side, bool) {
	if sessionID == r.FirstSessionID {
		return SideWhite, true
	}
	if r.SecondSessionID != "" && sessionID == r.SecondSessionID {
		return SideBlack, true
	}
	return "", false
}
