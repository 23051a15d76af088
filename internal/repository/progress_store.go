package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"zenstudy-backend/internal/game"
)

const progressKeyPrefix = "game:"

// ProgressStore keeps game snapshots in Redis under "game:{key}" with a
// sliding TTL.
type ProgressStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProgressStore(rdb *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{rdb: rdb, ttl: ttl}
}

func (s *ProgressStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, progressKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrSnapshotNotFound
	}
	return data, err
}

func (s *ProgressStore) Set(ctx context.Context, key string, data []byte) error {
	return s.rdb.Set(ctx, progressKeyPrefix+key, data, s.ttl).Err()
}

func (s *ProgressStore) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, progressKeyPrefix+key).Err()
}
