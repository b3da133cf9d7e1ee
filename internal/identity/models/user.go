package models

import (
	"strings"
	"time"

	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
)

// Role is the single source of truth for actor roles. It is parsed exactly
// once at the authentication boundary; downstream components branch on this
// type, never on raw strings.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleAgent   Role = "AGENT"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleCitizen:
		return RoleCitizen, nil
	case RoleAgent:
		return RoleAgent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown role: "+s)
	}
}

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAgent || r == RoleAdmin
}

// User is a citizen, agent or administrator account.
//
// Invariants:
//   - Email is unique (exact, case-sensitive match) across all users
//   - Role is exactly one of CITIZEN, AGENT, ADMIN
//   - A user can authenticate only while Active && EmailVerified
//   - VerificationCode/ResetToken are single-use and carry their own expiry
type User struct {
	ID            id.UserID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	Active        bool      `json:"active"`
	EmailVerified bool      `json:"email_verified"`

	VerificationCode       string     `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`
	ResetToken             string     `json:"-"`
	ResetTokenExpiry       *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAuthenticate reports whether the account is usable for authentication.
func (u *User) CanAuthenticate() bool {
	return u.Active && u.EmailVerified
}

// FullName joins the name parts, skipping blanks.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	if len(parts) == 0 {
		return "User"
	}
	return strings.Join(parts, " ")
}
