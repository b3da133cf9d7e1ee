package httptransport

import (
	"encoding/json"
	"net/http"

	identity "streetwatch/internal/identity/models"
	identitysvc "streetwatch/internal/identity/service"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/httputil"
)

type registerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Self-registration is always a citizen account; staff accounts come
	// through the admin surface.
	user, err := h.identity.Register(r.Context(), identitysvc.RegisterParams{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      identity.RoleCitizen,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.authority.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    result.SessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:       result.BearerToken,
		UserID:      result.Actor.UserID.String(),
		DisplayName: result.Actor.DisplayName,
		Role:        string(result.Actor.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		h.authority.Logout(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if err := h.identity.VerifyEmail(r.Context(), code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.identity.ResendVerification(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) handleInitiateReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.identity.InitiatePasswordReset(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Always reported as sent, whether or not the account exists.
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (h *Handler) handleValidateResetToken(w http.ResponseWriter, r *http.Request) {
	valid := h.identity.ValidateResetToken(r.Context(), r.URL.Query().Get("token"))
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.identity.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
