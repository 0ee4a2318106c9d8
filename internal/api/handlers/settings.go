// settings.go — системная конфигурация учреждения и уведомления.
package handlers

import (
	"net/http"

	"github.com/drem-apurimac/tramite/internal/api/middleware"
	"github.com/drem-apurimac/tramite/internal/domain/model"
)

// GetSettings — GET /api/v1/settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "get_settings")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SaveSettings — PUT /api/v1/settings. Доступ: Administrador.
func (h *APIHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	if !middleware.Authorize(w, r, model.RoleAdmin) {
		return
	}
	var cfg model.SystemConfig
	if !decodeJSON(w, r, &cfg, false) {
		return
	}
	saved, err := h.settings.Save(r.Context(), cfg)
	if err != nil {
		h.writeServiceError(w, err, "save_settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ListNotifications — GET /api/v1/notifications.
func (h *APIHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.notifications.Latest(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list_notifications")
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

// MarkNotificationRead — POST /api/v1/notifications/{id}/read.
func (h *APIHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "mark_notification_read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
