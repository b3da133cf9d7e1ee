package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// RegisterParams carries self-registration input.
type RegisterParams struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      models.Role
}

// Register creates an active-but-unverified user and dispatches a
// verification notification. Registration succeeds even when dispatch fails.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	p.Email = strings.TrimSpace(p.Email)
	if p.Email == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if !p.Role.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown role")
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}

	now := requestcontext.Now(ctx)
	expiry := now.Add(verificationCodeTTL)
	user := &models.User{
		ID:                     id.UserID(uuid.New()),
		FirstName:              p.FirstName,
		LastName:               p.LastName,
		Email:                  p.Email,
		PasswordHash:           hash,
		Role:                   p.Role,
		Active:                 true,
		EmailVerified:          false,
		VerificationCode:       uuid.NewString(),
		VerificationCodeExpiry: &expiry,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateUserErr(err)
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "role", string(user.Role))

	s.notifier.Dispatch(notify.Notification{
		Kind:      notify.KindVerification,
		Recipient: user.Email,
		Params: map[string]string{
			"name": user.FullName(),
			"code": user.VerificationCode,
		},
	})

	return user, nil
}

// VerifyEmail consumes a verification code. The code is single-use: success
// clears it along with its expiry.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	user, err := s.users.FindByVerificationCode(ctx, code)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid verification code")
	}

	if user.VerificationCodeExpiry == nil || requestcontext.Now(ctx).After(*user.VerificationCodeExpiry) {
		return dErrors.New(dErrors.CodeValidation, "verification code has expired")
	}

	user.EmailVerified = true
	user.VerificationCode = ""
	user.VerificationCodeExpiry = nil
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return translateUserErr(err)
	}

	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID.String())

	s.notifier.Dispatch(notify.Notification{
		Kind:      notify.KindWelcome,
		Recipient: user.Email,
		Params:    map[string]string{"name": user.FullName()},
	})

	return nil
}

// ResendVerification regenerates the verification code with a fresh 24h
// expiry. The previous code becomes permanently invalid; there is no grace
// window.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return translateUserErr(err)
	}
	if user.EmailVerified {
		return dErrors.New(dErrors.CodeConflict, "email already verified")
	}

	now := requestcontext.Now(ctx)
	expiry := now.Add(verificationCodeTTL)
	user.VerificationCode = uuid.NewString()
	user.VerificationCodeExpiry = &expiry
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return translateUserErr(err)
	}

	s.notifier.Dispatch(notify.Notification{
		Kind:      notify.KindVerification,
		Recipient: user.Email,
		Params: map[string]string{
			"name": user.FullName(),
			"code": user.VerificationCode,
		},
	})

	return nil
}
