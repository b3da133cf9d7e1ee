package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/identity/password"
	"streetwatch/internal/session/token"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// UserSource is the slice of the user store the authority needs.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authority resolves "who is calling, with what role" for every inbound
// operation. Browser flows carry a session token, API clients a bearer
// token; both reconcile to the same ActorContext.
type Authority struct {
	users    UserSource
	hasher   password.Hasher
	sessions Store
	tokens   *token.Service
	logger   *slog.Logger
}

type AuthorityOption func(*Authority)

func WithLogger(logger *slog.Logger) AuthorityOption {
	return func(a *Authority) { a.logger = logger }
}

func NewAuthority(users UserSource, hasher password.Hasher, sessions Store, tokens *token.Service, opts ...AuthorityOption) *Authority {
	a := &Authority{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		tokens:   tokens,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthResult is what a successful login yields: the actor plus both
// credential forms.
type AuthResult struct {
	Actor        requestcontext.ActorContext
	SessionToken string
	BearerToken  string
}

// Authenticate checks credentials and account state, then opens a session
// and issues a bearer token. The three failure conditions are surfaced
// distinctly; the credential itself is never logged.
func (a *Authority) Authenticate(ctx context.Context, email, plainPassword string) (*AuthResult, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}
	if !user.EmailVerified {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "email not verified")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account inactive")
	}
	if !a.hasher.Verify(plainPassword, user.PasswordHash) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	now := requestcontext.Now(ctx)
	sess := &Session{
		Token:       uuid.NewString(),
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.FullName(),
		Role:        user.Role,
		CreatedAt:   now,
		LastSeen:    now,
	}
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	bearer, err := a.tokens.Issue(user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	a.logger.InfoContext(ctx, "authentication successful",
		"user_id", user.ID.String(),
		"role", string(user.Role),
	)

	return &AuthResult{
		Actor: requestcontext.ActorContext{
			UserID:      user.ID,
			Email:       user.Email,
			DisplayName: user.FullName(),
			Role:        user.Role,
		},
		SessionToken: sess.Token,
		BearerToken:  bearer,
	}, nil
}

// ResolveActor resolves the calling actor from the request's credentials:
// session first, then bearer token. The second return is false when neither
// resolves; callers must treat that as "no actor", never as a guest role.
func (a *Authority) ResolveActor(ctx context.Context, sessionToken, bearerToken string) (requestcontext.ActorContext, bool) {
	if sessionToken != "" {
		if actor, ok := a.resolveSession(ctx, sessionToken); ok {
			return actor, true
		}
	}
	if bearerToken != "" {
		if actor, ok := a.resolveBearer(bearerToken); ok {
			return actor, true
		}
	}
	return requestcontext.ActorContext{}, false
}

// Logout invalidates a session immediately.
func (a *Authority) Logout(ctx context.Context, sessionToken string) {
	if err := a.sessions.Delete(ctx, sessionToken); err != nil {
		a.logger.WarnContext(ctx, "failed to delete session", "error", err)
	}
}

func (a *Authority) resolveSession(ctx context.Context, sessionToken string) (requestcontext.ActorContext, bool) {
	sess, err := a.sessions.Find(ctx, sessionToken)
	if err != nil {
		return requestcontext.ActorContext{}, false
	}

	// Touch: resets the idle clock. A failed touch does not invalidate the
	// already-resolved actor.
	sess.LastSeen = requestcontext.Now(ctx)
	if err := a.sessions.Save(ctx, sess); err != nil {
		a.logger.WarnContext(ctx, "failed to touch session", "error", err)
	}

	return requestcontext.ActorContext{
		UserID:      sess.UserID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Role:        sess.Role,
	}, true
}

func (a *Authority) resolveBearer(bearerToken string) (requestcontext.ActorContext, bool) {
	claims, err := a.tokens.Verify(bearerToken)
	if err != nil {
		return requestcontext.ActorContext{}, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return requestcontext.ActorContext{}, false
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.ActorContext{}, false
	}

	return requestcontext.ActorContext{
		UserID:      userID,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Role:        role,
	}, true
}
