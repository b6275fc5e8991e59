package bus

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis implements Bus over Redis pub/sub, the same fabric the stores
// already run on.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (b *Redis) Publish(ctx context.Context, subject string, payload []byte) error {
	return b.rdb.Publish(ctx, subject, payload).Err()
}

func (b *Redis) Subscribe(ctx context.Context, subject string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, subject)
	// Wait for the subscription confirmation so a Publish that follows this
	// call is guaranteed to be seen.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSub{ps: ps, out: make(chan []byte, 64)}
	sub.wg.Add(1)
	go sub.forward()
	return sub, nil
}

type redisSub struct {
	ps   *redis.PubSub
	out  chan []byte
	wg   sync.WaitGroup
	once sync.Once
}

func (s *redisSub) forward() {
	defer s.wg.Done()
	for msg := range s.ps.Channel() {
		select {
		case s.out <- []byte(msg.Payload):
		default:
			// Consumer is not keeping up; drop, matching at-most-once.
		}
	}
	close(s.out)
}

func (s *redisSub) C() <-chan []byte { return s.out }

func (s *redisSub) Stop() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}
