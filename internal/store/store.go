// Package store persists session identities and game records. Both stores
// share one fixed TTL, refreshed on every write; expiry is the only way a
// record disappears besides an explicit clear.
//
// Two implementations exist behind the same interfaces: Redis for
// multi-instance deployments and an in-memory map for tests and
// single-instance runs. Swapping them is purely a wiring concern.
package store

import (
	"context"

	"chessrooms/internal/game"
)

// SessionStore tracks which session ids are currently valid. The value is
// mere existence; nothing else is stored.
type SessionStore interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Save records the session and refreshes its TTL.
	Save(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

// GameStore maps room ids to game records.
type GameStore interface {
	// Find returns nil without error when no record exists.
	Find(ctx context.Context, roomID string) (*game.Record, error)
	// Save writes the record and refreshes its TTL atomically.
	Save(ctx context.Context, roomID string, rec *game.Record) error
	Clear(ctx context.Context, roomID string) error
}

func gameKey(roomID string) string       { return "game:" + roomID }
func sessionKey(sessionID string) string { return "session:" + sessionID }
