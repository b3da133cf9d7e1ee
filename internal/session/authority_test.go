package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/identity/password"
	userstore "streetwatch/internal/identity/store/user"
	"streetwatch/internal/session/token"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

type AuthoritySuite struct {
	suite.Suite
	users     *userstore.InMemoryUserStore
	hasher    *password.Bcrypt
	clock     time.Time
	sessions  *InMemoryStore
	authority *Authority
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

func (s *AuthoritySuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.hasher = password.NewBcrypt()
	s.clock = time.Now()
	s.sessions = NewInMemoryStore(30*time.Minute, WithClock(func() time.Time { return s.clock }))
	tokens := token.NewService("test-key", "streetwatch", 24*time.Hour)
	s.authority = NewAuthority(s.users, s.hasher, s.sessions, tokens)
}

func (s *AuthoritySuite) seedUser(email string, verified, active bool, role models.Role) *models.User {
	hash, err := s.hasher.Hash("secret1")
	s.Require().NoError(err)
	u := &models.User{
		Email:         email,
		FirstName:     "Lina",
		LastName:      "Gharbi",
		PasswordHash:  hash,
		Role:          role,
		Active:        active,
		EmailVerified: verified,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u
}

func (s *AuthoritySuite) TestAuthenticate() {
	ctx := context.Background()

	s.Run("unverified email is a distinct failure", func() {
		s.seedUser("unverified@x.com", false, true, models.RoleCitizen)
		_, err := s.authority.Authenticate(ctx, "unverified@x.com", "secret1")
		s.Require().Error(err)
		s.Equal("email not verified", dErrors.Message(err))
	})

	s.Run("inactive account is a distinct failure", func() {
		s.seedUser("inactive@x.com", true, false, models.RoleCitizen)
		_, err := s.authority.Authenticate(ctx, "inactive@x.com", "secret1")
		s.Require().Error(err)
		s.Equal("account inactive", dErrors.Message(err))
	})

	s.Run("unknown email and wrong password are indistinguishable", func() {
		s.seedUser("real@x.com", true, true, models.RoleCitizen)
		_, errUnknown := s.authority.Authenticate(ctx, "ghost@x.com", "secret1")
		_, errWrong := s.authority.Authenticate(ctx, "real@x.com", "wrong")
		s.Equal(dErrors.Message(errUnknown), dErrors.Message(errWrong))
	})

	s.Run("success yields session and bearer credentials", func() {
		u := s.seedUser("ok@x.com", true, true, models.RoleAgent)
		res, err := s.authority.Authenticate(ctx, "ok@x.com", "secret1")
		s.Require().NoError(err)
		s.Equal(u.ID, res.Actor.UserID)
		s.Equal(models.RoleAgent, res.Actor.Role)
		s.NotEmpty(res.SessionToken)
		s.NotEmpty(res.BearerToken)
	})
}

func (s *AuthoritySuite) TestResolveActor() {
	ctx := context.Background()
	u := s.seedUser("resolve@x.com", true, true, models.RoleAdmin)
	res, err := s.authority.Authenticate(ctx, "resolve@x.com", "secret1")
	s.Require().NoError(err)

	s.Run("session resolves to actor", func() {
		actor, ok := s.authority.ResolveActor(ctx, res.SessionToken, "")
		s.Require().True(ok)
		s.Equal(u.ID, actor.UserID)
		s.Equal(models.RoleAdmin, actor.Role)
	})

	s.Run("bearer resolves without server-side state", func() {
		actor, ok := s.authority.ResolveActor(ctx, "", res.BearerToken)
		s.Require().True(ok)
		s.Equal(u.ID, actor.UserID)
	})

	s.Run("session takes precedence over bearer", func() {
		other := s.seedUser("other@x.com", true, true, models.RoleCitizen)
		otherRes, err := s.authority.Authenticate(ctx, "other@x.com", "secret1")
		s.Require().NoError(err)
		_ = other

		actor, ok := s.authority.ResolveActor(ctx, res.SessionToken, otherRes.BearerToken)
		s.Require().True(ok)
		s.Equal(u.ID, actor.UserID)
	})

	s.Run("neither credential means no actor, not a guest", func() {
		_, ok := s.authority.ResolveActor(ctx, "", "")
		s.False(ok)
		_, ok = s.authority.ResolveActor(ctx, "bogus", "bogus")
		s.False(ok)
	})
}

func (s *AuthoritySuite) TestSessionIdleTimeout() {
	ctx := context.Background()
	s.seedUser("idle@x.com", true, true, models.RoleCitizen)
	res, err := s.authority.Authenticate(ctx, "idle@x.com", "secret1")
	s.Require().NoError(err)

	s.Run("activity inside the window keeps the session alive", func() {
		s.clock = s.clock.Add(20 * time.Minute)
		touched := requestcontext.WithTime(ctx, s.clock)
		_, ok := s.authority.ResolveActor(touched, res.SessionToken, "")
		s.Require().True(ok)

		// Another 20 minutes is fine because the previous resolve touched it.
		s.clock = s.clock.Add(20 * time.Minute)
		_, ok = s.authority.ResolveActor(requestcontext.WithTime(ctx, s.clock), res.SessionToken, "")
		s.True(ok)
	})

	s.Run("expiry invalidates all derived authorization", func() {
		s.clock = s.clock.Add(31 * time.Minute)
		_, ok := s.authority.ResolveActor(ctx, res.SessionToken, "")
		s.False(ok)
	})
}

func (s *AuthoritySuite) TestLogout() {
	ctx := context.Background()
	s.seedUser("bye@x.com", true, true, models.RoleCitizen)
	res, err := s.authority.Authenticate(ctx, "bye@x.com", "secret1")
	s.Require().NoError(err)

	s.authority.Logout(ctx, res.SessionToken)
	_, ok := s.authority.ResolveActor(ctx, res.SessionToken, "")
	s.False(ok)
}
