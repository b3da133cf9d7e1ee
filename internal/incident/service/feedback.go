package service

import (
	"context"
	"strings"

	"streetwatch/internal/audit"
	"streetwatch/internal/incident/models"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// AddFeedback attaches the reporter's comment to a resolved incident. Only
// the reporter may write it; anyone else gets an ownership error and the
// stored text stays untouched. Feedback lands between resolution and close,
// which is how the closing administrator gets to read it first.
func (s *Service) AddFeedback(ctx context.Context, incidentID id.IncidentID, text string) (*models.Incident, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "feedback must not be empty")
	}

	inc, err := s.incidents.Execute(ctx, incidentID, func(cur *models.Incident) error {
		if !cur.ReportedBy(actor.UserID) {
			return dErrors.New(dErrors.CodeForbidden, "only the reporter may add feedback")
		}
		if cur.Status != models.StatusResolved {
			return dErrors.New(dErrors.CodeValidation, "feedback can only be added to a resolved incident")
		}
		cur.CitizenFeedback = text
		cur.UpdatedAt = requestcontext.Now(ctx)
		return nil
	})
	if err != nil {
		return nil, translateIncidentErr(err)
	}

	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		IncidentID: inc.ID,
		Action:     audit.ActionFeedbackAdded,
	})
	return inc, nil
}
