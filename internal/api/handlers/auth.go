// auth.go — вход, восстановление и смена пароля, текущий пользователь.
package handlers

import (
	"net/http"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Login — POST /api/v1/auth/login.
// Идентификатор — email или название роли, без учёта регистра.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	session, err := h.users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "login")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// RecoverPassword — POST /api/v1/auth/recover.
func (h *APIHandler) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.users.RecoverPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, err, "recover_password")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetMe — GET /api/v1/me.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if a.UserID == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	u, err := h.users.Get(r.Context(), a.UserID)
	if err != nil {
		h.writeServiceError(w, err, "get_me")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword — POST /api/v1/me/password.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if a.UserID == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.users.ChangePassword(r.Context(), a.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeServiceError(w, err, "change_password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
