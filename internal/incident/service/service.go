// Package service implements the incident lifecycle: creation, the status
// transition engine, agent assignment, citizen feedback and the role-scoped
// query surface.
package service

import (
	"context"
	"errors"
	"log/slog"

	"streetwatch/internal/audit"
	identity "streetwatch/internal/identity/models"
	"streetwatch/internal/incident/models"
	"streetwatch/internal/location"
	"streetwatch/internal/notify"
	"streetwatch/internal/platform/metrics"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks IncidentStore,UserDirectory,Notifier,AuditTrail

// IncidentStore is the persistence port for incidents. Execute must run its
// callback atomically against the latest committed state of the incident.
type IncidentStore interface {
	Create(ctx context.Context, inc *models.Incident) error
	FindByID(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error)
	Execute(ctx context.Context, incidentID id.IncidentID, fn func(inc *models.Incident) error) (*models.Incident, error)
	Delete(ctx context.Context, incidentID id.IncidentID) error
	List(ctx context.Context, scope models.Scope, filters models.Filters, page models.PageRequest) (*models.Page, error)
	Count(ctx context.Context, scope models.Scope, filters models.Filters) (int64, error)
	Stats(ctx context.Context, scope models.Scope, filters models.Filters) (*models.Stats, error)
}

// UserDirectory is the slice of the identity store this service reads:
// validating assignees and resolving notification recipients.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

// Notifier is the fire-and-forget notification side-channel.
type Notifier interface {
	Dispatch(n notify.Notification)
}

// AuditTrail records lifecycle actions append-only and off the request
// path.
type AuditTrail interface {
	Emit(ctx context.Context, e audit.Event)
}

// Service orchestrates incident operations. Every method resolves the
// calling actor from the request context; an absent actor is always
// unauthorized, never a guest.
type Service struct {
	incidents IncidentStore
	users     UserDirectory
	locations *location.Registry
	notifier  Notifier
	auditor   AuditTrail
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

func WithAuditTrail(a AuditTrail) Option {
	return func(s *Service) { s.auditor = a }
}

func New(incidents IncidentStore, users UserDirectory, locations *location.Registry, opts ...Option) *Service {
	s := &Service{
		incidents: incidents,
		users:     users,
		locations: locations,
		notifier:  noopNotifier{},
		auditor:   noopAuditTrail{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one incident, subject to the caller's view scope: citizens
// see their own reports, agents their assignments, admins everything.
func (s *Service) Get(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}

	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, translateIncidentErr(err)
	}
	if !scopeFor(actor).Contains(inc) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view this incident")
	}
	return inc, nil
}

// scopeFor maps the actor's role to the mandatory query pre-filter.
func scopeFor(actor requestcontext.ActorContext) models.Scope {
	switch actor.Role {
	case identity.RoleAdmin:
		return models.ScopeForAll()
	case identity.RoleAgent:
		return models.ScopeForAgent(actor.UserID)
	default:
		return models.ScopeForCitizen(actor.UserID)
	}
}

func errNoActor() error {
	return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
}

func translateIncidentErr(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "incident not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "incident already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "incident store failure")
	}
}

// notifyUser resolves the recipient and dispatches best-effort. Lookup
// failures are logged and swallowed; a notification must never fail the
// operation that triggered it.
func (s *Service) notifyUser(ctx context.Context, userID id.UserID, kind notify.Kind, params map[string]string) {
	if userID.IsZero() {
		return
	}
	recipient, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve notification recipient",
			"user_id", userID.String(),
			"error", err,
		)
		return
	}
	s.notifier.Dispatch(notify.Notification{
		Kind:      kind,
		Recipient: recipient.Email,
		Params:    params,
	})
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(notify.Notification) {}

type noopAuditTrail struct{}

func (noopAuditTrail) Emit(context.Context, audit.Event) {}
