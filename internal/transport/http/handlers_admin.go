package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	identity "streetwatch/internal/identity/models"
	identitysvc "streetwatch/internal/identity/service"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/httputil"
	"streetwatch/pkg/requestcontext"
)

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestcontext.Actor(r.Context())
	user, err := h.identity.GetByID(r.Context(), actor.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestcontext.Actor(r.Context())
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.identity.UpdateProfile(r.Context(), actor.UserID, req.FirstName, req.LastName, req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.identity.ListAgents(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.identity.CreateUserByAdmin(r.Context(), req.Email, req.Password, role, req.FirstName, req.LastName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	Password  *string `json:"password"`
	Active    *bool   `json:"active"`
	Notify    bool    `json:"notify"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	params := identitysvc.UpdateUserParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Active:    req.Active,
		Notify:    req.Notify,
	}
	if req.Role != nil {
		role, err := identity.ParseRole(*req.Role)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		params.Role = &role
	}

	user, err := h.identity.UpdateUser(r.Context(), userID, params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor, _ := requestcontext.Actor(r.Context())
	if actor.UserID == userID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "administrators cannot delete their own account"))
		return
	}
	if err := h.identity.DeleteUser(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userIDParam(r *http.Request) (id.UserID, error) {
	return id.ParseUserID(chi.URLParam(r, "userID"))
}
