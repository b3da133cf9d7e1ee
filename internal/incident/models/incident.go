// Package models defines the incident aggregate and its lifecycle rules.
package models

import (
	"fmt"
	"time"

	identity "streetwatch/internal/identity/models"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
)

// Status is an incident's position in the resolution workflow.
type Status string

const (
	StatusReported     Status = "REPORTED"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusResolved     Status = "RESOLVED"
	StatusClosed       Status = "CLOSED"
)

// Statuses lists every status in workflow order.
func Statuses() []Status {
	return []Status{StatusReported, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed}
}

func (s Status) Valid() bool {
	switch s {
	case StatusReported, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status or fails with a
// validation error.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

// Category classifies what kind of problem was reported.
type Category string

const (
	CategoryInfrastructure Category = "INFRASTRUCTURE"
	CategoryCleanliness    Category = "CLEANLINESS"
	CategorySecurity       Category = "SECURITY"
	CategoryLighting       Category = "LIGHTING"
	CategorySignage        Category = "SIGNAGE"
)

func Categories() []Category {
	return []Category{CategoryInfrastructure, CategoryCleanliness, CategorySecurity, CategoryLighting, CategorySignage}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryInfrastructure, CategoryCleanliness, CategorySecurity, CategoryLighting, CategorySignage:
		return true
	}
	return false
}

func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown category %q", raw))
	}
	return c, nil
}

// Priority ranks how urgently an incident needs attention.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Priorities returns every priority in ascending order of urgency.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown priority %q", raw))
	}
	return p, nil
}

// Coordinates is an optional latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Incident is the central aggregate. Relations are id-based; the store
// resolves them at read time. AssignedAgentID and LocationID are zero
// when unset.
type Incident struct {
	ID              id.IncidentID `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Category        Category      `json:"category"`
	Status          Status        `json:"status"`
	Priority        Priority      `json:"priority"`
	ReporterID      id.UserID     `json:"reporter_id"`
	AssignedAgentID id.UserID     `json:"assigned_agent_id,omitzero"`
	LocationID      id.LocationID `json:"location_id,omitzero"`
	Coordinates     *Coordinates  `json:"coordinates,omitempty"`
	CitizenFeedback string        `json:"citizen_feedback,omitempty"`
	PhotoRefs       []string      `json:"photo_refs,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
}

// Assigned reports whether an agent is currently bound to the incident.
func (i *Incident) Assigned() bool { return !i.AssignedAgentID.IsZero() }

// AssignedTo reports whether the given agent owns the incident.
func (i *Incident) AssignedTo(agentID id.UserID) bool {
	return i.Assigned() && i.AssignedAgentID == agentID
}

// ReportedBy reports whether the given citizen owns the incident.
func (i *Incident) ReportedBy(citizenID id.UserID) bool {
	return i.ReporterID == citizenID
}

// CanTransition is the role-scoped legal-move predicate. It assumes the
// ownership check (agent is the assigned agent) has already passed; it
// answers only whether (from, to) is reachable for the role.
//
// Agents may move ACKNOWLEDGED to IN_PROGRESS and IN_PROGRESS to RESOLVED,
// nothing else. Admins may move any non-closed incident anywhere, except
// that CLOSED is reachable only from RESOLVED. Citizens never change
// status. CLOSED is terminal for everyone.
func CanTransition(role identity.Role, from, to Status) bool {
	if from == StatusClosed {
		return false
	}
	switch role {
	case identity.RoleAgent:
		return (from == StatusAcknowledged && to == StatusInProgress) ||
			(from == StatusInProgress && to == StatusResolved)
	case identity.RoleAdmin:
		if to == StatusClosed {
			return from == StatusResolved
		}
		return to != from
	default:
		return false
	}
}
