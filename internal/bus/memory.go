package bus

import (
	"context"
	"sync"
)

// Memory is the in-process Bus used by tests and single-instance runs.
// Subscribers with a full buffer lose messages, mirroring the at-most-once
// contract of the Redis fabric.
type Memory struct {
	mu   sync.RWMutex
	subs map[string][]*memorySub
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

func (b *Memory) Publish(_ context.Context, subject string, payload []byte) error {
	b.mu.RLock()
	targets := append([]*memorySub(nil), b.subs[subject]...)
	b.mu.RUnlock()

	msg := append([]byte(nil), payload...)
	for _, s := range targets {
		s.send(msg)
	}
	return nil
}

func (b *Memory) Subscribe(_ context.Context, subject string) (Subscription, error) {
	s := &memorySub{bus: b, subject: subject, out: make(chan []byte, 64)}
	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], s)
	b.mu.Unlock()
	return s, nil
}

type memorySub struct {
	bus     *Memory
	subject string
	once    sync.Once

	// mu orders sends against close: a publisher that raced Stop sees the
	// closed flag instead of a closed channel.
	mu     sync.Mutex
	out    chan []byte
	closed bool
}

func (s *memorySub) C() <-chan []byte { return s.out }

func (s *memorySub) send(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
	}
}

func (s *memorySub) Stop() error {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		list := b.subs[s.subject]
		for i, cur := range list {
			if cur == s {
				b.subs[s.subject] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
	})
	return nil
}
