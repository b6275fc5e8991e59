package room

// Event names shared by both directions of the wire. The names and payload
// field names are part of the client contract.
const (
	EventConnected       = "connected"
	EventEnterGameRoom   = "enterGameRoom"
	EventNewGamePosition = "newGamePosition"
	EventSurrender       = "surrender"
	EventUndoAsk         = "undoAsk"
	EventUndoAnswer      = "undoAnswer"
	EventNewChatMessage  = "newChatMessage"
	EventVictory         = "victory"
	EventDefeat          = "defeat"
	EventDraw            = "draw"
	EventError           = "error"
)

// Inbound payloads. Validation tags mirror the schemas the clients are
// written against; a failure terminates the connection.

type EnterGameRoomPayload struct {
	GameID   string `json:"gameId" validate:"required"`
	GameType string `json:"gameType" validate:"required,oneof=human stockfishEngineStrength stockfishEvaluation neuralNetwork"`
	// Optional opponent-strength tuning; agent games only.
	RatingParameter int `json:"ratingParameter,omitempty"`
}

type NewGamePositionPayload struct {
	GameID          string `json:"gameId" validate:"required"`
	From            string `json:"from" validate:"required,len=2"`
	To              string `json:"to" validate:"required,len=2"`
	RatingParameter int    `json:"ratingParameter,omitempty"`
}

type SurrenderPayload struct {
	GameID string `json:"gameId" validate:"required"`
}

type UndoAskPayload struct {
	GameID string `json:"gameId" validate:"required"`
}

type UndoAnswerPayload struct {
	GameID string `json:"gameId" validate:"required"`
	Answer bool   `json:"answer"`
}

type NewChatMessagePayload struct {
	GameID         string `json:"gameId" validate:"required"`
	NewChatMessage string `json:"newChatMessage" validate:"required"`
}

// Outbound payloads.

type ConnectedPayload struct {
	SessionID string `json:"sessionId"`
}

type PositionPayload struct {
	GamePositionFEN string `json:"gamePositionFen"`
}
