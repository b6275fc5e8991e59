package game

import "github.com/samber/lo"

// ChatMessageView is the viewer-relative projection of a ChatMessage. The
// sender's identity is replaced by an ownership flag so session ids never
// leak to the counterpart.
type ChatMessageView struct {
	ID      string `json:"id"`
	IsYour  bool   `json:"isYour"`
	Content string `json:"content"`
}

// View is the pruned, per-viewer snapshot of a Record. The board is public;
// only chat ownership and the opponent's session id are viewer-sensitive.
type View struct {
	GamePositionFEN   string            `json:"gamePositionFen"`
	Side              Side              `json:"side"`
	IsOpponentMissing bool              `json:"isOpponentMissing"`
	ChatMessages      []ChatMessageView `json:"chatMessages"`
}

// PruneView projects a record for one viewer. Always recomputed per
// recipient; the isYour flags make cached views wrong for everyone else.
func PruneView(viewerSessionID string, r *Record, side Side) View {
	return View{
		GamePositionFEN:   r.GamePositionFEN,
		Side:              side,
		IsOpponentMissing: r.SecondSessionID == "",
		ChatMessages: lo.Map(r.ChatMessages, func(m ChatMessage, _ int) ChatMessageView {
			return ChatMessageView{
				ID:      m.ID,
				IsYour:  m.FromSessionID == viewerSessionID,
				Content: m.Content,
			}
		}),
	}
}
