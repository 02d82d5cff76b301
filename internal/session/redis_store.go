package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// RedisStore keeps each session as a JSON value with a Redis TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, cs model.CheckoutSession, ttl time.Duration) error {
	b, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return s.rdb.SetEx(ctx, keyPrefix+cs.Token, b, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, token string) (*model.CheckoutSession, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cs model.CheckoutSession
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}
