// routes.go — интерфейс сервера и регистрация маршрутов chi.
// Повторяет форму кода oapi-codegen (chi-server) для контракта
// internal/api/openapi/openapi.yaml; параметры привязываются runtime-биндерами.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// ListCasesParams — параметры GET /api/v1/cases.
type ListCasesParams struct {
	Q      *string
	Status *string
	Year   *string
	Limit  *int
	Offset *int
}

// InboxParams — параметры GET /api/v1/inbox.
type InboxParams struct {
	Priority *string
	Limit    *int
	Offset   *int
}

// StatsParams — параметры GET /api/v1/stats.
type StatsParams struct {
	Year  *string
	Month *string
	Day   *string
}

// UploadAttachmentParams — параметры PUT /api/v1/cases/{id}/attachment.
type UploadAttachmentParams struct {
	Filename *string
}

// ServerInterface — обработчики всех операций API.
type ServerInterface interface {
	Login(w http.ResponseWriter, r *http.Request)
	RecoverPassword(w http.ResponseWriter, r *http.Request)
	GetMe(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)

	ListCases(w http.ResponseWriter, r *http.Request, params ListCasesParams)
	RegisterCase(w http.ResponseWriter, r *http.Request)
	GetCase(w http.ResponseWriter, r *http.Request, id string)
	EditCase(w http.ResponseWriter, r *http.Request, id string)
	DeleteCase(w http.ResponseWriter, r *http.Request, id string)
	DeriveCase(w http.ResponseWriter, r *http.Request, id string)
	ArchiveCase(w http.ResponseWriter, r *http.Request, id string)
	UploadAttachment(w http.ResponseWriter, r *http.Request, id string, params UploadAttachmentParams)
	SummarizeCase(w http.ResponseWriter, r *http.Request, id string)

	Inbox(w http.ResponseWriter, r *http.Request, params InboxParams)
	Stats(w http.ResponseWriter, r *http.Request, params StatsParams)
	Dashboard(w http.ResponseWriter, r *http.Request)
	ListAreas(w http.ResponseWriter, r *http.Request)

	StartSuggestion(w http.ResponseWriter, r *http.Request)
	GetSuggestion(w http.ResponseWriter, r *http.Request, sessionID string)
	DiscardSuggestion(w http.ResponseWriter, r *http.Request, sessionID string)

	GetSettings(w http.ResponseWriter, r *http.Request)
	SaveSettings(w http.ResponseWriter, r *http.Request)

	ListUsers(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request, id string)
	UpdateUser(w http.ResponseWriter, r *http.Request, id string)
	DeleteUser(w http.ResponseWriter, r *http.Request, id string)

	ListNotifications(w http.ResponseWriter, r *http.Request)
	MarkNotificationRead(w http.ResponseWriter, r *http.Request, id string)

	HealthLive(w http.ResponseWriter, r *http.Request)
	HealthReady(w http.ResponseWriter, r *http.Request)
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// ParamError — ошибка привязки параметра запроса.
type ParamError struct {
	Name string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("параметр %q: %v", e.Name, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// serverWrapper привязывает параметры и вызывает обработчик.
type serverWrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *serverWrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		sw.onError(w, r, &ParamError{Name: name, Err: err})
		return "", false
	}
	return v, true
}

func (sw *serverWrapper) query(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		sw.onError(w, r, &ParamError{Name: name, Err: err})
		return false
	}
	return true
}

// withID оборачивает обработчик с параметром пути.
func (sw *serverWrapper) withID(name string, fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sw.pathParam(w, r, name)
		if !ok {
			return
		}
		fn(w, r, id)
	}
}

func (sw *serverWrapper) listCases(w http.ResponseWriter, r *http.Request) {
	var p ListCasesParams
	if !sw.query(w, r, "q", &p.Q) || !sw.query(w, r, "status", &p.Status) ||
		!sw.query(w, r, "year", &p.Year) || !sw.query(w, r, "limit", &p.Limit) ||
		!sw.query(w, r, "offset", &p.Offset) {
		return
	}
	sw.handler.ListCases(w, r, p)
}

func (sw *serverWrapper) inbox(w http.ResponseWriter, r *http.Request) {
	var p InboxParams
	if !sw.query(w, r, "priority", &p.Priority) || !sw.query(w, r, "limit", &p.Limit) ||
		!sw.query(w, r, "offset", &p.Offset) {
		return
	}
	sw.handler.Inbox(w, r, p)
}

func (sw *serverWrapper) stats(w http.ResponseWriter, r *http.Request) {
	var p StatsParams
	if !sw.query(w, r, "year", &p.Year) || !sw.query(w, r, "month", &p.Month) ||
		!sw.query(w, r, "day", &p.Day) {
		return
	}
	sw.handler.Stats(w, r, p)
}

func (sw *serverWrapper) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := sw.pathParam(w, r, "id")
	if !ok {
		return
	}
	var p UploadAttachmentParams
	if !sw.query(w, r, "filename", &p.Filename) {
		return
	}
	sw.handler.UploadAttachment(w, r, id, p)
}

// paramErrorHandler — ответ 400 для непривязанного параметра.
func paramErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	field := "request"
	if pe, ok := err.(*ParamError); ok {
		field = pe.Name
	}
	apierrors.ValidationError(w, "Некорректный параметр запроса",
		validation.FieldError{Field: field, Reason: err.Error()})
}

// HandlerFromMux регистрирует все маршруты на r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	sw := &serverWrapper{handler: si, onError: paramErrorHandler}

	r.Get("/health/live", si.HealthLive)
	r.Get("/health/ready", si.HealthReady)
	r.Get("/metrics", si.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", si.Login)
		r.Post("/auth/recover", si.RecoverPassword)
		r.Get("/me", si.GetMe)
		r.Post("/me/password", si.ChangePassword)

		r.Get("/cases", sw.listCases)
		r.Post("/cases", si.RegisterCase)
		r.Get("/cases/{id}", sw.withID("id", si.GetCase))
		r.Patch("/cases/{id}", sw.withID("id", si.EditCase))
		r.Delete("/cases/{id}", sw.withID("id", si.DeleteCase))
		r.Post("/cases/{id}/derive", sw.withID("id", si.DeriveCase))
		r.Post("/cases/{id}/archive", sw.withID("id", si.ArchiveCase))
		r.Put("/cases/{id}/attachment", sw.uploadAttachment)
		r.Post("/cases/{id}/summary", sw.withID("id", si.SummarizeCase))

		r.Get("/inbox", sw.inbox)
		r.Get("/stats", sw.stats)
		r.Get("/dashboard", si.Dashboard)
		r.Get("/areas", si.ListAreas)

		r.Post("/suggestions", si.StartSuggestion)
		r.Get("/suggestions/{sessionId}", sw.withID("sessionId", si.GetSuggestion))
		r.Delete("/suggestions/{sessionId}", sw.withID("sessionId", si.DiscardSuggestion))

		r.Get("/settings", si.GetSettings)
		r.Put("/settings", si.SaveSettings)

		r.Get("/users", si.ListUsers)
		r.Post("/users", si.CreateUser)
		r.Get("/users/{id}", sw.withID("id", si.GetUser))
		r.Patch("/users/{id}", sw.withID("id", si.UpdateUser))
		r.Delete("/users/{id}", sw.withID("id", si.DeleteUser))

		r.Get("/notifications", si.ListNotifications)
		r.Post("/notifications/{id}/read", sw.withID("id", si.MarkNotificationRead))
	})
	return r
}
