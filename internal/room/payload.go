package room

import "chessrooms/internal/game"

// Payload is a broadcastable event body. For is called once per recipient
// because some payloads (chat) are viewer-relative; static payloads ignore
// the viewer.
type Payload interface {
	For(viewerSessionID string) any
}

// Static wraps a payload that reads the same for every recipient.
type Static struct{ V any }

func (s Static) For(string) any { return s.V }

// ChatPayload resolves the isYour flag per viewer at delivery time. The
// sender's session id travels with the payload between coordinator
// instances but never reaches a client.
type ChatPayload struct {
	ID            string `json:"id"`
	FromSessionID string `json:"fromSessionId"`
	Content       string `json:"content"`
}

func (c ChatPayload) For(viewer string) any {
	return game.ChatMessageView{
		ID:      c.ID,
		IsYour:  viewer == c.FromSessionID,
		Content: c.Content,
	}
}
