package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/email"
	"streetwatch/pkg/requestcontext"
)

// CreateUserByAdmin creates an account that bypasses email verification
// entirely: it is active and verified from the first moment. Blank name
// parts are derived from the email local part.
func (s *Service) CreateUserByAdmin(ctx context.Context, emailAddr, plainPassword string, role models.Role, firstName, lastName string) (*models.User, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown role")
	}
	if err := validatePassword(plainPassword); err != nil {
		return nil, err
	}

	if firstName == "" && lastName == "" {
		firstName, lastName = email.DeriveNameParts(emailAddr)
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:            id.UserID(uuid.New()),
		FirstName:     firstName,
		LastName:      lastName,
		Email:         emailAddr,
		PasswordHash:  hash,
		Role:          role,
		Active:        true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateUserErr(err)
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "user created by admin", "user_id", user.ID.String(), "role", string(role))

	s.notifier.Dispatch(notify.Notification{
		Kind:      notify.KindCredentials,
		Recipient: user.Email,
		Params: map[string]string{
			"name":     user.FullName(),
			"email":    user.Email,
			"password": plainPassword,
		},
	})

	return user, nil
}

// UpdateUserParams carries the mutable administrative fields. Nil pointers
// leave the field untouched.
type UpdateUserParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *models.Role
	Password  *string
	Active    *bool
	Notify    bool
}

// UpdateUser applies administrative edits. A notification is dispatched only
// when Notify is requested and something material changed (email, password
// or role); dispatch failure never rolls back the update.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, p UpdateUserParams) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}

	var changes []string

	if p.Email != nil && *p.Email != user.Email {
		newEmail := strings.TrimSpace(*p.Email)
		if newEmail == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "email must not be empty")
		}
		if _, err := s.users.FindByEmail(ctx, newEmail); err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		}
		user.Email = newEmail
		changes = append(changes, "email")
	}

	if p.Password != nil {
		if err := validatePassword(*p.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*p.Password)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash credential")
		}
		user.PasswordHash = hash
		changes = append(changes, "password")
	}

	if p.Role != nil && *p.Role != user.Role {
		if !p.Role.Valid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown role")
		}
		user.Role = *p.Role
		changes = append(changes, "role")
	}

	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
	if p.Active != nil {
		user.Active = *p.Active
	}

	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateUserErr(err)
	}

	if p.Notify && len(changes) > 0 {
		s.notifier.Dispatch(notify.Notification{
			Kind:      notify.KindAccountUpdated,
			Recipient: user.Email,
			Params: map[string]string{
				"name":    user.FullName(),
				"changes": strings.Join(changes, ", "),
			},
		})
	}

	return user, nil
}

// DeleteUser removes the account permanently.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return translateUserErr(err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", userID.String())
	return nil
}

// UpdateProfile lets a signed-in user edit their own name and email. Blank
// fields are left untouched; a changed email must not collide.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, firstName, lastName, newEmail string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}

	if firstName != "" {
		user.FirstName = firstName
	}
	if lastName != "" {
		user.LastName = lastName
	}
	if newEmail != "" && newEmail != user.Email {
		if _, err := s.users.FindByEmail(ctx, newEmail); err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		}
		user.Email = newEmail
	}

	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateUserErr(err)
	}
	return user, nil
}
