// Package service implements the identity operations: registration, email
// verification, password reset and administrative user management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/identity/password"
	"streetwatch/internal/notify"
	"streetwatch/internal/platform/metrics"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,Notifier

// UserStore is the persistence port for user records.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationCode(ctx context.Context, code string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// Notifier is the fire-and-forget notification side-channel. Dispatch never
// blocks and never reports failure; a dropped or undeliverable notification
// must not fail the triggering operation.
type Notifier interface {
	Dispatch(n notify.Notification)
}

const (
	minPasswordLength   = 6
	verificationCodeTTL = 24 * time.Hour
	resetTokenTTL       = time.Hour
)

// Service orchestrates the user lifecycle.
type Service struct {
	users    UserStore
	hasher   password.Hasher
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(users UserStore, hasher password.Hasher, opts ...Option) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		notifier: noopNotifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(notify.Notification) {}

// GetByID loads a user.
func (s *Service) GetByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserErr(err)
	}
	return u, nil
}

// GetByEmail loads a user by exact email match.
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, translateUserErr(err)
	}
	return u, nil
}

// ListAgents returns all users with the AGENT role, for assignment pickers.
func (s *Service) ListAgents(ctx context.Context) ([]models.User, error) {
	agents, err := s.users.ListByRole(ctx, models.RoleAgent)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agents")
	}
	return agents, nil
}

func validatePassword(plain string) error {
	if len(plain) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

func translateUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "email already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}
}
