package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"chessrooms/internal/game"
)

// RedisGames stores game records as JSON values under "game:" keys.
type RedisGames struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGames(rdb *redis.Client, ttl time.Duration) *RedisGames {
	return &RedisGames{rdb: rdb, ttl: ttl}
}

func (s *RedisGames) Find(ctx context.Context, roomID string) (*game.Record, error) {
	raw, err := s.rdb.Get(ctx, gameKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec game.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisGames) Save(ctx context.Context, roomID string, rec *game.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, gameKey(roomID), raw, s.ttl).Err()
}

func (s *RedisGames) Clear(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, gameKey(roomID)).Err()
}

// RedisSessions stores session existence under "session:" keys.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func (s *RedisSessions) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisSessions) Save(ctx context.Context, sessionID string) error {
	return s.rdb.Set(ctx, sessionKey(sessionID), "1", s.ttl).Err()
}

func (s *RedisSessions) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
