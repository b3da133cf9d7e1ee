package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/identity/password"
	userstore "streetwatch/internal/identity/store/user"
	"streetwatch/internal/notify"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// captureNotifier records dispatched notifications so tests can assert on
// best-effort side effects without a real mailer.
type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureNotifier) Dispatch(n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureNotifier) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

func (c *captureNotifier) byKind(kind notify.Kind) []notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Notification
	for _, n := range c.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type IdentityServiceSuite struct {
	suite.Suite
	store    *userstore.InMemoryUserStore
	notifier *captureNotifier
	service  *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = userstore.NewInMemory()
	s.notifier = &captureNotifier{}
	s.service = New(s.store, password.NewBcrypt(), WithNotifier(s.notifier))
}

func (s *IdentityServiceSuite) register(email string) *models.User {
	u, err := s.service.Register(context.Background(), RegisterParams{
		Email:     email,
		FirstName: "Amira",
		LastName:  "Ben Salah",
		Password:  "secret1",
		Role:      models.RoleCitizen,
	})
	s.Require().NoError(err)
	return u
}

func (s *IdentityServiceSuite) TestRegister() {
	s.Run("creates active unverified user and queues verification", func() {
		u := s.register("a@x.com")
		s.True(u.Active)
		s.False(u.EmailVerified)
		s.NotEmpty(u.VerificationCode)
		s.NotNil(u.VerificationCodeExpiry)
		s.False(u.CanAuthenticate())

		sent := s.notifier.byKind(notify.KindVerification)
		s.Require().Len(sent, 1)
		s.Equal("a@x.com", sent[0].Recipient)
		s.Equal(u.VerificationCode, sent[0].Params["code"])
	})

	s.Run("duplicate email fails with conflict and creates no row", func() {
		s.register("dup@x.com")
		_, err := s.service.Register(context.Background(), RegisterParams{
			Email: "dup@x.com", Password: "secret1", Role: models.RoleCitizen,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("short password is rejected", func() {
		_, err := s.service.Register(context.Background(), RegisterParams{
			Email: "short@x.com", Password: "12345", Role: models.RoleCitizen,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IdentityServiceSuite) TestVerifyEmail() {
	s.Run("valid code verifies, clears code, sends welcome", func() {
		u := s.register("v@x.com")
		s.Require().NoError(s.service.VerifyEmail(context.Background(), u.VerificationCode))

		updated, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.True(updated.EmailVerified)
		s.Empty(updated.VerificationCode)
		s.Nil(updated.VerificationCodeExpiry)
		s.True(updated.CanAuthenticate())
		s.Len(s.notifier.byKind(notify.KindWelcome), 1)
	})

	s.Run("unknown code is invalid", func() {
		err := s.service.VerifyEmail(context.Background(), "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("expired code is rejected against wall clock", func() {
		u := s.register("expired@x.com")
		future := requestcontext.WithTime(context.Background(), time.Now().Add(25*time.Hour))
		err := s.service.VerifyEmail(future, u.VerificationCode)
		s.Require().Error(err)
		s.Contains(err.Error(), "expired")
	})
}

func (s *IdentityServiceSuite) TestResendVerification() {
	s.Run("old code is permanently invalid after resend", func() {
		u := s.register("resend@x.com")
		oldCode := u.VerificationCode

		s.Require().NoError(s.service.ResendVerification(context.Background(), u.Email))

		err := s.service.VerifyEmail(context.Background(), oldCode)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		updated, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.NoError(s.service.VerifyEmail(context.Background(), updated.VerificationCode))
	})

	s.Run("already verified conflicts", func() {
		u := s.register("done@x.com")
		s.Require().NoError(s.service.VerifyEmail(context.Background(), u.VerificationCode))
		err := s.service.ResendVerification(context.Background(), u.Email)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown email is not found", func() {
		err := s.service.ResendVerification(context.Background(), "ghost@x.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentityServiceSuite) TestPasswordReset() {
	s.Run("unknown email still reports success", func() {
		s.NoError(s.service.InitiatePasswordReset(context.Background(), "ghost@x.com"))
		s.Empty(s.notifier.byKind(notify.KindPasswordReset))
	})

	s.Run("reset flow end to end", func() {
		u := s.register("reset@x.com")
		s.Require().NoError(s.service.InitiatePasswordReset(context.Background(), u.Email))

		stored, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Require().NotEmpty(stored.ResetToken)
		s.True(s.service.ValidateResetToken(context.Background(), stored.ResetToken))

		s.Require().NoError(s.service.ResetPassword(context.Background(), stored.ResetToken, "newpass"))

		// Token is single-use.
		err = s.service.ResetPassword(context.Background(), stored.ResetToken, "another")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("short replacement password rejected, token survives", func() {
		u := s.register("shortreset@x.com")
		s.Require().NoError(s.service.InitiatePasswordReset(context.Background(), u.Email))
		stored, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)

		err = s.service.ResetPassword(context.Background(), stored.ResetToken, "12345")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.True(s.service.ValidateResetToken(context.Background(), stored.ResetToken))
	})
}

func (s *IdentityServiceSuite) TestCreateUserByAdmin() {
	s.Run("bypasses verification and delivers credentials", func() {
		u, err := s.service.CreateUserByAdmin(context.Background(), "agent@x.com", "secret1", models.RoleAgent, "", "")
		s.Require().NoError(err)
		s.True(u.Active)
		s.True(u.EmailVerified)
		s.True(u.CanAuthenticate())
		s.Equal("Agent", u.FirstName) // derived from the email local part

		sent := s.notifier.byKind(notify.KindCredentials)
		s.Require().Len(sent, 1)
		s.Equal("secret1", sent[0].Params["password"])
	})

	s.Run("duplicate email conflicts", func() {
		s.register("taken@x.com")
		_, err := s.service.CreateUserByAdmin(context.Background(), "taken@x.com", "secret1", models.RoleAgent, "A", "B")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestUpdateUser() {
	strPtr := func(v string) *string { return &v }
	rolePtr := func(r models.Role) *models.Role { return &r }

	s.Run("material change with notify dispatches update notice", func() {
		s.notifier.reset()
		u := s.register("upd@x.com")
		_, err := s.service.UpdateUser(context.Background(), u.ID, UpdateUserParams{
			Role:   rolePtr(models.RoleAgent),
			Notify: true,
		})
		s.Require().NoError(err)

		sent := s.notifier.byKind(notify.KindAccountUpdated)
		s.Require().Len(sent, 1)
		s.Contains(sent[0].Params["changes"], "role")
	})

	s.Run("immaterial change with notify stays silent", func() {
		s.notifier.reset()
		u := s.register("quiet@x.com")
		_, err := s.service.UpdateUser(context.Background(), u.ID, UpdateUserParams{
			FirstName: strPtr("Renamed"),
			Notify:    true,
		})
		s.Require().NoError(err)
		s.Empty(s.notifier.byKind(notify.KindAccountUpdated))
	})

	s.Run("email collision with another user conflicts", func() {
		a := s.register("one@x.com")
		s.register("two@x.com")
		_, err := s.service.UpdateUser(context.Background(), a.ID, UpdateUserParams{
			Email: strPtr("two@x.com"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestDeleteUser() {
	u := s.register("del@x.com")
	s.Require().NoError(s.service.DeleteUser(context.Background(), u.ID))
	err := s.service.DeleteUser(context.Background(), u.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
