package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vitrine/pkg/sentinel"
)

const redisKeyPrefix = "vitrine:session:"

// RedisStore persists session tokens in Redis with a TTL matching the token
// expiry, so expired tokens disappear without a reaper.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Token, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return Token{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("get session token: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, fmt.Errorf("decode session token: %w", err)
	}
	return tok, nil
}

func (s *RedisStore) Put(ctx context.Context, token Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode session token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session token: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}
