// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Context keys and getter/setter functions for values set by middleware but
// consumed by services. Keeping this package free of net/http lets services
// import only what they need.
//
// Usage in services (read values):
//
//	actor, ok := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActor(ctx, actor)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"streetwatch/internal/identity/models"
	id "streetwatch/pkg/domain"
)

// ActorContext is the resolved "who is calling, with what role" for a
// request. It is produced exactly once at the authentication boundary and
// passed explicitly into core operations; no component re-derives roles from
// raw session or token material.
type ActorContext struct {
	UserID      id.UserID
	Email       string
	DisplayName string
	Role        models.Role
}

// Context key types (unexported for encapsulation).
type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Actor retrieves the authenticated actor from the context. The second
// return distinguishes "no resolvable actor" from a zero-valued actor; an
// absent actor must never be treated as an anonymous role in authorization
// decisions.
func Actor(ctx context.Context) (ActorContext, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(ActorContext)
	return actor, ok
}

// WithActor injects the resolved actor into the context.
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request correlation ID, or "" if unset.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now returns the request time if one was injected, falling back to the wall
// clock. Services stamp createdAt/resolvedAt through this so tests can pin
// time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
