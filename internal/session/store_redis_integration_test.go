//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vitrine/internal/session"
	"vitrine/pkg/sentinel"
	"vitrine/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	tok := session.Token{
		ID:        "tok-1",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	s.Require().NoError(s.store.Put(ctx, tok))

	got, err := s.store.Get(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(tok.ID, got.ID)
	s.True(tok.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *RedisStoreSuite) TestGetUnknownToken() {
	_, err := s.store.Get(context.Background(), "never-stored")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestKeyExpiresWithToken() {
	ctx := context.Background()
	now := time.Now()
	tok := session.Token{
		ID:        "short-lived",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Second),
	}

	s.Require().NoError(s.store.Put(ctx, tok))

	s.Require().Eventually(func() bool {
		_, err := s.store.Get(ctx, "short-lived")
		return err != nil
	}, 5*time.Second, 200*time.Millisecond, "redis TTL reaps the key at token expiry")
}

func (s *RedisStoreSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()
	now := time.Now()
	tok := session.Token{ID: "tok-del", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	s.Require().NoError(s.store.Put(ctx, tok))
	s.Require().NoError(s.store.Delete(ctx, "tok-del"))
	s.Require().NoError(s.store.Delete(ctx, "tok-del"))

	_, err := s.store.Get(ctx, "tok-del")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
