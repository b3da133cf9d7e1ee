package service

import (
	"context"
	"errors"

	"streetwatch/internal/audit"
	identity "streetwatch/internal/identity/models"
	"streetwatch/internal/incident/models"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
	"streetwatch/pkg/requestcontext"
)

// Assign binds an agent to an incident. Only administrators may assign,
// only users with role AGENT may be bound, and reassignment overwrites the
// previous binding unconditionally. A freshly reported incident moves to
// ACKNOWLEDGED on its first assignment, so the agent's first legal move is
// ACKNOWLEDGED to IN_PROGRESS.
//
// There is no unassign operation; the only way off an agent is onto
// another one. The prior assignee survives only in the audit trail.
func (s *Service) Assign(ctx context.Context, incidentID id.IncidentID, agentID id.UserID, notifyParties bool) (*models.Incident, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}
	if actor.Role != identity.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only administrators may assign incidents")
	}

	agent, err := s.users.FindByID(ctx, agentID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignee")
	}
	if agent.Role != identity.RoleAgent {
		return nil, dErrors.New(dErrors.CodeValidation, "assignee must have the agent role")
	}

	var previous id.UserID
	inc, err := s.incidents.Execute(ctx, incidentID, func(cur *models.Incident) error {
		previous = cur.AssignedAgentID
		cur.AssignedAgentID = agentID
		if cur.Status == models.StatusReported {
			cur.Status = models.StatusAcknowledged
		}
		cur.UpdatedAt = requestcontext.Now(ctx)
		return nil
	})
	if err != nil {
		return nil, translateIncidentErr(err)
	}

	if s.metrics != nil {
		s.metrics.AssignmentsApplied.Inc()
	}
	detail := map[string]string{"agent_id": agentID.String()}
	if !previous.IsZero() {
		detail["previous_agent_id"] = previous.String()
	}
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		IncidentID: inc.ID,
		Action:     audit.ActionAgentAssigned,
		Detail:     detail,
	})

	if notifyParties {
		params := map[string]string{
			"incident_title": inc.Title,
			"agent_name":     agent.FullName(),
		}
		s.notifier.Dispatch(notify.Notification{
			Kind:      notify.KindAssignment,
			Recipient: agent.Email,
			Params:    params,
		})
		s.notifyUser(ctx, inc.ReporterID, notify.KindAssignment, params)
	}

	s.logger.InfoContext(ctx, "incident assigned",
		"incident_id", inc.ID.String(),
		"agent_id", agentID.String(),
		"reassigned", !previous.IsZero(),
	)
	return inc, nil
}
