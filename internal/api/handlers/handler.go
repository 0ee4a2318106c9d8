// handler.go — основной обработчик API, реализующий ServerInterface.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
	"github.com/drem-apurimac/tramite/internal/api/middleware"
	"github.com/drem-apurimac/tramite/internal/domain/area"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
	"github.com/drem-apurimac/tramite/internal/service"
)

// maxJSONBody — предельный размер JSON-тела запроса.
const maxJSONBody = 1 << 20

// Services — сервисы, которые обслуживает API.
type Services struct {
	Cases         *service.CaseService
	Users         *service.UserService
	Settings      *service.SettingsService
	Notifications *service.NotificationService
	Suggestions   *service.Suggestions
	Areas         *area.Directory
}

// APIHandler — основной обработчик API.
type APIHandler struct {
	health        *HealthHandler
	cases         *service.CaseService
	users         *service.UserService
	settings      *service.SettingsService
	notifications *service.NotificationService
	suggestions   *service.Suggestions
	areas         *area.Directory
	logger        *slog.Logger
}

var _ ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:        health,
		cases:         svc.Cases,
		users:         svc.Users,
		settings:      svc.Settings,
		notifications: svc.Notifications,
		suggestions:   svc.Suggestions,
		areas:         svc.Areas,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело в dst. При ошибке пишет 400 и возвращает false.
// Пустое тело допустимо, если allowEmpty.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		apierrors.ValidationError(w, "Некорректное тело запроса",
			validation.FieldError{Field: "body", Reason: err.Error()})
		return false
	}
	return true
}

// actor возвращает исполнителя из claims сессии.
func actor(r *http.Request) service.Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.Subject, Name: claims.Name, Role: claims.Role}
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		var details []validation.FieldError
		if verr, ok := validation.As(err); ok {
			details = verr.Fields
		}
		apierrors.ValidationError(w, "Ошибка валидации", details...)
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.Unauthorized(w, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrConnection):
		h.logger.Warn("Зависимость недоступна", slog.String("op", op), slog.String("error", err.Error()))
		apierrors.ServiceUnavailable(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("op", op), slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// paginationDefaults нормализует параметры пагинации.
func paginationDefaults(limit, offset *int) (int, int) {
	l := service.DefaultPageLimit
	o := 0
	if limit != nil {
		l = min(max(*limit, 1), service.MaxPageLimit)
	}
	if offset != nil {
		o = max(*offset, 0)
	}
	return l, o
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
