package httptransport

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	identity "streetwatch/internal/identity/models"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/httputil"
	"streetwatch/pkg/requestcontext"
)

// sessionCookie is the browser-side credential. API clients send a bearer
// token instead; requireActor accepts either.
const sessionCookie = "streetwatch_session"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), requestID)))
	})
}

func (h *Handler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.InfoContext(r.Context(), "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// requireActor resolves the caller from the session cookie first, then the
// bearer header. An unresolvable actor is a 401; no downstream handler ever
// sees a guest.
func (h *Handler) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.authority.ResolveActor(r.Context(), sessionToken(r), bearerToken(r))
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requestcontext.Actor(r.Context())
		if !ok || actor.Role != identity.RoleAdmin {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
