package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"streetwatch/internal/notify"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/requestcontext"
)

// InitiatePasswordReset issues a reset token and dispatches a reset
// notification. It reports success whether or not the email exists, so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) InitiatePasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}

	now := requestcontext.Now(ctx)
	expiry := now.Add(resetTokenTTL)
	user.ResetToken = uuid.NewString()
	user.ResetTokenExpiry = &expiry
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return translateUserErr(err)
	}

	s.notifier.Dispatch(notify.Notification{
		Kind:      notify.KindPasswordReset,
		Recipient: user.Email,
		Params: map[string]string{
			"name":  user.FullName(),
			"token": user.ResetToken,
		},
	})

	return nil
}

// ValidateResetToken reports whether a reset token exists and is unexpired.
func (s *Service) ValidateResetToken(ctx context.Context, token string) bool {
	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		return false
	}
	return user.ResetTokenExpiry != nil && requestcontext.Now(ctx).Before(*user.ResetTokenExpiry)
}

// ResetPassword consumes a reset token and replaces the credential. The
// token is invalidated whether or not it had remaining lifetime.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid reset token")
	}
	if user.ResetTokenExpiry == nil || requestcontext.Now(ctx).After(*user.ResetTokenExpiry) {
		return dErrors.New(dErrors.CodeValidation, "reset token has expired")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return translateUserErr(err)
	}

	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID.String())
	return nil
}
