package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/numbermill/squarehunt/pkg/errors"
	"github.com/numbermill/squarehunt/pkg/redis"
)

// RedisStore keeps checkpoints in redis so several hunter instances can
// share and hand off search state. Records never expire; the hunt deletes
// them once a search completes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

const keyPrefix = "squarehunt:checkpoint:"

func (s *RedisStore) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, 0); err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) read(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key)
	if redis.IsNilError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode checkpoint %s: %w", key, apperrors.ErrInvalidCheckpoint)
	}
	return true, nil
}

func (s *RedisStore) SaveEngine(ctx context.Context, state EngineState) error {
	state.SavedAt = time.Now().UTC()
	return s.write(ctx, state.Key(), state)
}

func (s *RedisStore) LoadEngine(ctx context.Context, magic uint64, power int, mode string) (EngineState, bool, error) {
	var state EngineState
	ok, err := s.read(ctx, EngineKey(magic, power, mode), &state)
	return state, ok, err
}

func (s *RedisStore) DeleteEngine(ctx context.Context, magic uint64, power int, mode string) error {
	return s.client.Del(ctx, keyPrefix+EngineKey(magic, power, mode))
}

func (s *RedisStore) SaveRange(ctx context.Context, state RangeState) error {
	state.SavedAt = time.Now().UTC()
	return s.write(ctx, state.Key(), state)
}

func (s *RedisStore) LoadRange(ctx context.Context, from, to uint64) (RangeState, bool, error) {
	var state RangeState
	ok, err := s.read(ctx, RangeKey(from, to), &state)
	return state, ok, err
}

func (s *RedisStore) DeleteRange(ctx context.Context, from, to uint64) error {
	return s.client.Del(ctx, keyPrefix+RangeKey(from, to))
}
