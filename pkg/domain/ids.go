// Package domain holds typed identifiers shared across bounded contexts.
//
// IDs are distinct types over uuid.UUID so an incident ID can never be passed
// where a user ID is expected. Parse functions enforce the invariant
// "IDs must be valid, non-empty, non-nil UUIDs" at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "streetwatch/pkg/domain-errors"
)

type (
	// UserID identifies a citizen, agent or administrator.
	UserID uuid.UUID

	// IncidentID identifies a reported incident.
	IncidentID uuid.UUID

	// LocationID identifies a deduplicated (region, sub-region) entry.
	LocationID uuid.UUID
)

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id IncidentID) String() string { return uuid.UUID(id).String() }
func (id LocationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id IncidentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's text marshalling, so each ID
// implements it explicitly; without these, JSON encodes IDs as byte arrays.

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id IncidentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id LocationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *IncidentID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *LocationID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseIncidentID validates and converts a string into an IncidentID.
func ParseIncidentID(s string) (IncidentID, error) {
	u, err := parseUUID(s, "incident id")
	return IncidentID(u), err
}

// ParseLocationID validates and converts a string into a LocationID.
func ParseLocationID(s string) (LocationID, error) {
	u, err := parseUUID(s, "location id")
	return LocationID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" must not be the nil uuid")
	}
	return u, nil
}
