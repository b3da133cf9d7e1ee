package service

import (
	"context"

	"streetwatch/internal/incident/models"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// AttachPhoto stores one more photo on an incident. Only the reporter may
// attach; save receives the current photo count so the blob store can
// enforce its per-incident cap, and its returned reference is appended
// atomically with the ownership check.
func (s *Service) AttachPhoto(ctx context.Context, incidentID id.IncidentID, save func(existing int) (string, error)) (string, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return "", errNoActor()
	}

	var ref string
	_, err := s.incidents.Execute(ctx, incidentID, func(cur *models.Incident) error {
		if !cur.ReportedBy(actor.UserID) {
			return dErrors.New(dErrors.CodeForbidden, "only the reporter may attach photos")
		}
		saved, err := save(len(cur.PhotoRefs))
		if err != nil {
			return err
		}
		ref = saved
		cur.PhotoRefs = append(cur.PhotoRefs, saved)
		cur.UpdatedAt = requestcontext.Now(ctx)
		return nil
	})
	if err != nil {
		return "", translateIncidentErr(err)
	}
	return ref, nil
}
