// Package session implements the dual-mode authentication authority:
// stateful sessions for browser flows and stateless bearer tokens for API
// clients, reconciled into a single resolved actor per request.
package session

import (
	"context"
	"time"

	"streetwatch/internal/identity/models"
	id "streetwatch/pkg/domain"
)

// Session is the server-side state behind a browser login. It lives until
// the idle timeout elapses without activity; every resolved request touches
// LastSeen.
type Session struct {
	Token       string        `json:"token"`
	UserID      id.UserID     `json:"user_id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Role        models.Role   `json:"role"`
	CreatedAt   time.Time     `json:"created_at"`
	LastSeen    time.Time     `json:"last_seen"`
}

// Store persists sessions. Find must not return sessions idle past the
// store's timeout; Save both creates and refreshes (stores back LastSeen and
// resets the idle clock).
type Store interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
