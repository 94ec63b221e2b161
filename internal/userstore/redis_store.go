package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/clay/amphora-auth/internal/auth"
)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*auth.User, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: get %s: %w", key, err)
	}

	var u auth.User
	if err := json.Unmarshal(val, &u); err != nil {
		return nil, fmt.Errorf("userstore: decode %s: %w", key, err)
	}
	return &u, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, user *auth.User) error {
	if user == nil {
		return fmt.Errorf("userstore: nil user for %s", key)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("userstore: encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, 0).Err()
}
