package service

import (
	"context"
	"fmt"

	"streetwatch/internal/audit"
	identity "streetwatch/internal/identity/models"
	"streetwatch/internal/incident/models"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// Transition moves an incident to targetStatus on behalf of the calling
// actor. The whole read-validate-mutate cycle runs atomically against the
// store, so two concurrent transitions on one incident cannot both succeed
// from the same prior state.
//
// Validation order inside the atomic section: agent ownership first, then
// same-state rejection, then the role-scoped legal-move table. Stamping of
// ResolvedAt is monotonic: first entry into RESOLVED sets it, nothing
// clears it.
func (s *Service) Transition(ctx context.Context, incidentID id.IncidentID, rawTarget string) (*models.Incident, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}
	target, err := models.ParseStatus(rawTarget)
	if err != nil {
		return nil, err
	}

	var (
		from     models.Status
		notified []id.UserID
	)
	inc, err := s.incidents.Execute(ctx, incidentID, func(cur *models.Incident) error {
		from = cur.Status

		if actor.Role == identity.RoleAgent && !cur.AssignedTo(actor.UserID) {
			return dErrors.New(dErrors.CodeForbidden, "incident is not assigned to you")
		}
		if cur.Status == target {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("incident is already %s", target))
		}
		if !models.CanTransition(actor.Role, cur.Status, target) {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("transition %s to %s is not permitted for role %s", cur.Status, target, actor.Role))
		}

		now := requestcontext.Now(ctx)
		cur.Status = target
		cur.UpdatedAt = now
		if target == models.StatusResolved && cur.ResolvedAt == nil {
			cur.ResolvedAt = &now
		}

		notified = append(notified, cur.ReporterID)
		if cur.Assigned() && cur.AssignedAgentID != actor.UserID {
			notified = append(notified, cur.AssignedAgentID)
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil && !dErrors.HasCode(err, dErrors.CodeInternal) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.metrics.TransitionsRejected.Inc()
		}
		return nil, translateIncidentErr(err)
	}

	if s.metrics != nil {
		s.metrics.TransitionsApplied.WithLabelValues(string(target)).Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		IncidentID: inc.ID,
		Action:     audit.ActionStatusChanged,
		Detail:     map[string]string{"from": string(from), "to": string(target)},
	})

	params := map[string]string{
		"incident_title": inc.Title,
		"status":         string(target),
	}
	for _, userID := range notified {
		s.notifyUser(ctx, userID, notify.KindStatusUpdate, params)
	}

	s.logger.InfoContext(ctx, "incident status changed",
		"incident_id", inc.ID.String(),
		"actor_id", actor.UserID.String(),
		"from", string(from),
		"to", string(target),
	)
	return inc, nil
}
