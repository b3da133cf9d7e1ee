// Package httptransport is the thin HTTP layer: it decodes requests, hands
// them to domain services and encodes results. No business rule lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identitysvc "streetwatch/internal/identity/service"
	incidentsvc "streetwatch/internal/incident/service"
	"streetwatch/internal/location"
	"streetwatch/internal/photo"
	"streetwatch/internal/report"
	"streetwatch/internal/session"
)

// Handler bundles the services the routes delegate to.
type Handler struct {
	authority *session.Authority
	identity  *identitysvc.Service
	incidents *incidentsvc.Service
	reports   *report.Service
	photos    *photo.Store
	locations *location.Registry
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

func NewHandler(
	authority *session.Authority,
	identity *identitysvc.Service,
	incidents *incidentsvc.Service,
	reports *report.Service,
	photos *photo.Store,
	locations *location.Registry,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		authority: authority,
		identity:  identity,
		incidents: incidents,
		reports:   reports,
		photos:    photos,
		locations: locations,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all endpoints. Everything under /api except the auth
// entry points requires a resolved actor.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(h.logMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.handleRegister)
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)
			r.Get("/verify", h.handleVerifyEmail)
			r.Post("/resend-verification", h.handleResendVerification)
			r.Post("/password-reset", h.handleInitiateReset)
			r.Get("/password-reset/validate", h.handleValidateResetToken)
			r.Post("/password-reset/confirm", h.handleConfirmReset)
		})

		r.Get("/locations/regions", h.handleRegions)
		r.Get("/locations/regions/{region}/sub-regions", h.handleSubRegions)

		r.Group(func(r chi.Router) {
			r.Use(h.requireActor)

			r.Get("/me", h.handleProfile)
			r.Put("/me", h.handleUpdateProfile)

			r.Route("/incidents", func(r chi.Router) {
				r.Post("/", h.handleCreateIncident)
				r.Get("/", h.handleListIncidents)
				r.Get("/overview", h.handleOverview)
				r.Get("/stats", h.handleStats)

				r.Route("/{incidentID}", func(r chi.Router) {
					r.Get("/", h.handleGetIncident)
					r.Post("/transition", h.handleTransition)
					r.Post("/assign", h.handleAssign)
					r.Post("/feedback", h.handleFeedback)
					r.Get("/report", h.handleRenderReport)
					r.Post("/photos", h.handleUploadPhoto)
				})
			})

			r.Get("/photos/{ref}", h.handleGetPhoto)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Get("/agents", h.handleListAgents)
				r.Post("/users", h.handleCreateUser)
				r.Put("/users/{userID}", h.handleUpdateUser)
				r.Delete("/users/{userID}", h.handleDeleteUser)
			})
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
