// Package audit records an append-only trail of incident lifecycle actions.
// Reassignment overwrites the incident's agent reference, so the trail is
// the only place prior assignees survive.
package audit

import (
	"time"

	id "streetwatch/pkg/domain"
)

// Action names what happened to an incident.
type Action string

const (
	ActionIncidentCreated Action = "incident.created"
	ActionStatusChanged   Action = "incident.status_changed"
	ActionAgentAssigned   Action = "incident.agent_assigned"
	ActionFeedbackAdded   Action = "incident.feedback_added"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	ActorID    id.UserID         `json:"actor_id"`
	IncidentID id.IncidentID     `json:"incident_id"`
	Action     Action            `json:"action"`
	Detail     map[string]string `json:"detail,omitempty"`
}
