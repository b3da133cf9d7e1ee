package service

import (
	"context"
	"strings"

	"streetwatch/internal/audit"
	"streetwatch/internal/incident/models"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// CreateParams carries everything a new report needs. Priority defaults to
// MEDIUM when blank; the status is always REPORTED and never caller-chosen.
type CreateParams struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Region      string
	SubRegion   string
	Coordinates *models.Coordinates
	PhotoRefs   []string
}

// Create files a new incident with the calling actor as its reporter.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Incident, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title must not be empty")
	}
	category, err := models.ParseCategory(params.Category)
	if err != nil {
		return nil, err
	}
	priority := models.PriorityMedium
	if params.Priority != "" {
		if priority, err = models.ParsePriority(params.Priority); err != nil {
			return nil, err
		}
	}

	loc, err := s.locations.Resolve(ctx, params.Region, params.SubRegion)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	inc := &models.Incident{
		Title:       title,
		Description: params.Description,
		Category:    category,
		Status:      models.StatusReported,
		Priority:    priority,
		ReporterID:  actor.UserID,
		Coordinates: params.Coordinates,
		PhotoRefs:   params.PhotoRefs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if loc != nil {
		inc.LocationID = loc.ID
	}

	if err := s.incidents.Create(ctx, inc); err != nil {
		return nil, translateIncidentErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncidentsCreated.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		IncidentID: inc.ID,
		Action:     audit.ActionIncidentCreated,
		Detail:     map[string]string{"category": string(category)},
	})
	s.logger.InfoContext(ctx, "incident created",
		"incident_id", inc.ID.String(),
		"reporter_id", actor.UserID.String(),
		"category", string(category),
	)
	return inc, nil
}
