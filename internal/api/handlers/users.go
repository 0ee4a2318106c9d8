// users.go — обработчики /api/v1/users. Доступ: Administrador.
package handlers

import (
	"net/http"

	"github.com/drem-apurimac/tramite/internal/api/middleware"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/repository"
	"github.com/drem-apurimac/tramite/internal/service"
)

// ListUsers — GET /api/v1/users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list_users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	var in service.NewUser
	if !decodeJSON(w, r, &in, false) {
		return
	}
	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "create_user")
		return
	}
	w.Header().Set("Location", "/api/v1/users/"+u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request, id string) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser — PATCH /api/v1/users/{id}. Отсутствующие поля не меняются.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	var patch repository.UserPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	u, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, err, "update_user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser — DELETE /api/v1/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	if err := h.users.Delete(r.Context(), id, actor(r)); err != nil {
		h.writeServiceError(w, err, "delete_user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
