// Package cache holds short-lived operator capability tokens.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "operator_token:"

var ErrTokenNotFound = errors.New("token not found")

// RedisStore keeps tokens in redis so they survive restarts and are shared
// between instances. Expiry is left to redis.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With().Str("component", "RedisTokenStore").Logger(),
	}
}

func (s *RedisStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	s.logger.Debug().Dur("ttl", ttl).Msg("storing operator token")
	return s.client.Set(ctx, keyPrefix+token, userID, ttl).Err()
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}
