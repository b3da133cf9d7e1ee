// Package report renders a single incident into a citizen-facing document.
// Only the incident's reporter may request one.
package report

import (
	"context"
	"errors"
	"time"

	identity "streetwatch/internal/identity/models"
	"streetwatch/internal/incident/models"
	"streetwatch/internal/location"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/requestcontext"
)

// Format selects the output document type.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatPDF, FormatCSV:
		return Format(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "format must be pdf or csv")
	}
}

// ContentType returns the MIME type a transport should declare.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}

// Snapshot is the fully resolved view the renderers work from: id-based
// relations replaced with display strings.
type Snapshot struct {
	ID          string
	Title       string
	Description string
	Category    string
	Status      string
	Priority    string
	Reporter    string
	Agent       string
	Region      string
	SubRegion   string
	Feedback    string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// IncidentSource is the read slice of the incident store this package
// needs.
type IncidentSource interface {
	FindByID(ctx context.Context, incidentID id.IncidentID) (*models.Incident, error)
}

type UserSource interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

type LocationSource interface {
	FindByID(ctx context.Context, locationID id.LocationID) (*location.Location, error)
}

// Service resolves an incident into a snapshot and renders it.
type Service struct {
	incidents IncidentSource
	users     UserSource
	locations LocationSource
}

func NewService(incidents IncidentSource, users UserSource, locations LocationSource) *Service {
	return &Service{incidents: incidents, users: users, locations: locations}
}

// Render produces the document for the calling actor. Anyone but the
// reporter gets an authorization error, admins included; the report is a
// citizen-facing artifact.
func (s *Service) Render(ctx context.Context, incidentID id.IncidentID, format Format) ([]byte, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "incident not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "incident store failure")
	}
	if !inc.ReportedBy(actor.UserID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the reporter may export this incident")
	}

	snapshot := s.snapshot(ctx, inc, actor)
	if format == FormatCSV {
		return renderCSV(snapshot)
	}
	return renderPDF(snapshot)
}

func (s *Service) snapshot(ctx context.Context, inc *models.Incident, actor requestcontext.ActorContext) Snapshot {
	snap := Snapshot{
		ID:          inc.ID.String(),
		Title:       inc.Title,
		Description: inc.Description,
		Category:    string(inc.Category),
		Status:      string(inc.Status),
		Priority:    string(inc.Priority),
		Reporter:    actor.DisplayName,
		Feedback:    inc.CitizenFeedback,
		CreatedAt:   inc.CreatedAt,
		ResolvedAt:  inc.ResolvedAt,
	}
	if inc.Assigned() {
		if agent, err := s.users.FindByID(ctx, inc.AssignedAgentID); err == nil {
			snap.Agent = agent.FullName()
		}
	}
	if !inc.LocationID.IsZero() {
		if loc, err := s.locations.FindByID(ctx, inc.LocationID); err == nil {
			snap.Region = loc.Region
			snap.SubRegion = loc.SubRegion
		}
	}
	return snap
}
