// suggestions.go — фоновые подсказки маршрутизации для формы регистрации.
package handlers

import "net/http"

type startSuggestionRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// StartSuggestion — POST /api/v1/suggestions.
// Повторный запуск для той же сессии отменяет предыдущий.
func (h *APIHandler) StartSuggestion(w http.ResponseWriter, r *http.Request) {
	var req startSuggestionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	view, err := h.suggestions.Start(actor(r).UserID, req.SessionID, req.Text)
	if err != nil {
		h.writeServiceError(w, err, "start_suggestion")
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// GetSuggestion — GET /api/v1/suggestions/{sessionId}.
// Сессии других пользователей не видны (404).
func (h *APIHandler) GetSuggestion(w http.ResponseWriter, r *http.Request, sessionID string) {
	view, err := h.suggestions.Get(actor(r).UserID, sessionID)
	if err != nil {
		h.writeServiceError(w, err, "get_suggestion")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DiscardSuggestion — DELETE /api/v1/suggestions/{sessionId}.
func (h *APIHandler) DiscardSuggestion(w http.ResponseWriter, r *http.Request, sessionID string) {
	h.suggestions.Discard(actor(r).UserID, sessionID)
	w.WriteHeader(http.StatusNoContent)
}
