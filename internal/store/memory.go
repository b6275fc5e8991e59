package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chessrooms/internal/game"
)

type memEntry struct {
	raw       []byte
	expiresAt time.Time
}

type memMap struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

func newMemMap(ttl time.Duration) *memMap {
	return &memMap{entries: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (m *memMap) get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		// Lazy eviction; no background janitor.
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.raw, true
}

func (m *memMap) set(key string, raw []byte) {
	m.mu.Lock()
	m.entries[key] = memEntry{raw: raw, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

func (m *memMap) del(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// MemoryGames is the in-process GameStore. Records round-trip through JSON
// so callers never share memory with the store, matching Redis semantics.
type MemoryGames struct{ m *memMap }

func NewMemoryGames(ttl time.Duration) *MemoryGames {
	return &MemoryGames{m: newMemMap(ttl)}
}

func (s *MemoryGames) Find(_ context.Context, roomID string) (*game.Record, error) {
	raw, ok := s.m.get(gameKey(roomID))
	if !ok {
		return nil, nil
	}
	var rec game.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MemoryGames) Save(_ context.Context, roomID string, rec *game.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.m.set(gameKey(roomID), raw)
	return nil
}

func (s *MemoryGames) Clear(_ context.Context, roomID string) error {
	s.m.del(gameKey(roomID))
	return nil
}

// MemorySessions is the in-process SessionStore.
type MemorySessions struct{ m *memMap }

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{m: newMemMap(ttl)}
}

func (s *MemorySessions) Exists(_ context.Context, sessionID string) (bool, error) {
	_, ok := s.m.get(sessionKey(sessionID))
	return ok, nil
}

func (s *MemorySessions) Save(_ context.Context, sessionID string) error {
	s.m.set(sessionKey(sessionID), []byte("1"))
	return nil
}

func (s *MemorySessions) Delete(_ context.Context, sessionID string) error {
	s.m.del(sessionKey(sessionID))
	return nil
}
