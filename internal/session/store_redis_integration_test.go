//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/session"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSessionStoreSuite) newSession() *session.Session {
	now := time.Now().UTC()
	return &session.Session{
		Token:       uuid.NewString(),
		UserID:      id.UserID(uuid.New()),
		Email:       "amira@tunis.tn",
		DisplayName: "Amira Ben Salah",
		Role:        models.RoleCitizen,
		CreatedAt:   now,
		LastSeen:    now,
	}
}

func (s *RedisSessionStoreSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	store := session.NewRedisStore(s.redis.Client, time.Minute)

	sess := s.newSession()
	s.Require().NoError(store.Save(ctx, sess))

	got, err := store.Find(ctx, sess.Token)
	s.Require().NoError(err)
	s.Equal(sess.UserID, got.UserID)
	s.Equal(sess.Email, got.Email)
	s.Equal(models.RoleCitizen, got.Role)
}

func (s *RedisSessionStoreSuite) TestUnknownTokenIsNotFound() {
	store := session.NewRedisStore(s.redis.Client, time.Minute)

	_, err := store.Find(context.Background(), "no-such-token")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionStoreSuite) TestIdleTimeoutExpiresKey() {
	ctx := context.Background()
	store := session.NewRedisStore(s.redis.Client, 500*time.Millisecond)

	sess := s.newSession()
	s.Require().NoError(store.Save(ctx, sess))

	_, err := store.Find(ctx, sess.Token)
	s.Require().NoError(err)

	time.Sleep(700 * time.Millisecond)

	_, err = store.Find(ctx, sess.Token)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Re-saving a session resets the key TTL, so activity keeps a session alive
// past the raw idle window.
func (s *RedisSessionStoreSuite) TestSaveResetsIdleClock() {
	ctx := context.Background()
	store := session.NewRedisStore(s.redis.Client, time.Second)

	sess := s.newSession()
	s.Require().NoError(store.Save(ctx, sess))

	for range 3 {
		time.Sleep(600 * time.Millisecond)
		got, err := store.Find(ctx, sess.Token)
		s.Require().NoError(err)
		got.LastSeen = time.Now().UTC()
		s.Require().NoError(store.Save(ctx, got))
	}

	got, err := store.Find(ctx, sess.Token)
	s.Require().NoError(err)
	s.True(got.LastSeen.After(sess.LastSeen))
}

func (s *RedisSessionStoreSuite) TestDeleteIsImmediate() {
	ctx := context.Background()
	store := session.NewRedisStore(s.redis.Client, time.Minute)

	sess := s.newSession()
	s.Require().NoError(store.Save(ctx, sess))
	s.Require().NoError(store.Delete(ctx, sess.Token))

	_, err := store.Find(ctx, sess.Token)
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Deleting an absent token is not an error.
	s.NoError(store.Delete(ctx, sess.Token))
}
