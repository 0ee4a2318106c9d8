// cases.go — обработчики /api/v1/cases: регистрация, маршрутизация,
// правка, удаление, вложения и резюме.
package handlers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
	"github.com/drem-apurimac/tramite/internal/domain/model"
	"github.com/drem-apurimac/tramite/internal/domain/query"
	"github.com/drem-apurimac/tramite/internal/domain/tracking"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// defaultAttachmentName — имя файла, если клиент его не передал.
const defaultAttachmentName = "documento.pdf"

// caseListResponse — страница экспедиентов.
type caseListResponse struct {
	Items   []model.CaseRecord `json:"items"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"hasMore"`
	Years   []string           `json:"years,omitempty"`
}

// registerCaseRequest — поля регистрации и сессия формы для подсказок.
type registerCaseRequest struct {
	SessionID string `json:"sessionId"`
	tracking.RegisterInput
}

type deriveRequest struct {
	ToAreaID string `json:"toAreaId"`
	Notes    string `json:"notes"`
}

type archiveRequest struct {
	Notes string `json:"notes"`
}

// ListCases — GET /api/v1/cases.
func (h *APIHandler) ListCases(w http.ResponseWriter, r *http.Request, params ListCasesParams) {
	limit, offset := paginationDefaults(params.Limit, params.Offset)
	criteria := query.Criteria{
		Query:  deref(params.Q),
		Status: model.Status(deref(params.Status)),
		Year:   deref(params.Year),
	}

	res, err := h.cases.List(r.Context(), criteria, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "list_cases")
		return
	}
	writeJSON(w, http.StatusOK, caseListResponse{
		Items:   nonNil(res.Items),
		Total:   res.Total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < res.Total,
		Years:   res.Years,
	})
}

// RegisterCase — POST /api/v1/cases.
// Регистрация закрывает сессию подсказок формы.
func (h *APIHandler) RegisterCase(w http.ResponseWriter, r *http.Request) {
	var req registerCaseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	rec, err := h.cases.Register(r.Context(), req.RegisterInput, actor(r))
	if err != nil {
		h.writeServiceError(w, err, "register_case")
		return
	}
	if req.SessionID != "" && h.suggestions != nil {
		h.suggestions.Discard(actor(r).UserID, req.SessionID)
	}
	w.Header().Set("Location", "/api/v1/cases/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// GetCase — GET /api/v1/cases/{id}.
func (h *APIHandler) GetCase(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.cases.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_case")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// EditCase — PATCH /api/v1/cases/{id}.
func (h *APIHandler) EditCase(w http.ResponseWriter, r *http.Request, id string) {
	var patch tracking.Patch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	rec, err := h.cases.Edit(r.Context(), id, patch, actor(r))
	if err != nil {
		h.writeServiceError(w, err, "edit_case")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteCase — DELETE /api/v1/cases/{id}. Роль проверяет сервис.
func (h *APIHandler) DeleteCase(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.cases.Delete(r.Context(), id, actor(r)); err != nil {
		h.writeServiceError(w, err, "delete_case")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeriveCase — POST /api/v1/cases/{id}/derive.
func (h *APIHandler) DeriveCase(w http.ResponseWriter, r *http.Request, id string) {
	var req deriveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	rec, err := h.cases.Derive(r.Context(), id, req.ToAreaID, req.Notes, actor(r))
	if err != nil {
		h.writeServiceError(w, err, "derive_case")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ArchiveCase — POST /api/v1/cases/{id}/archive. Тело необязательно.
func (h *APIHandler) ArchiveCase(w http.ResponseWriter, r *http.Request, id string) {
	var req archiveRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	rec, err := h.cases.Archive(r.Context(), id, req.Notes, actor(r))
	if err != nil {
		h.writeServiceError(w, err, "archive_case")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UploadAttachment — PUT /api/v1/cases/{id}/attachment.
// Принимает сырое тело application/pdf или multipart/form-data с полем file.
func (h *APIHandler) UploadAttachment(w http.ResponseWriter, r *http.Request, id string, params UploadAttachmentParams) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		body        io.Reader
		size        int64
		filename    = deref(params.Filename)
		contentType = mt
	)
	switch mt {
	case "multipart/form-data":
		file, header, err := r.FormFile("file")
		if err != nil {
			apierrors.ValidationError(w, "Ожидается файл в поле file",
				validation.FieldError{Field: "file", Reason: err.Error()})
			return
		}
		defer file.Close()
		body, size = file, header.Size
		if filename == "" {
			filename = header.Filename
		}
		if ct := header.Header.Get("Content-Type"); ct != "" {
			contentType, _, _ = mime.ParseMediaType(ct)
		}
	default:
		body, size = r.Body, r.ContentLength
	}
	if strings.TrimSpace(filename) == "" {
		filename = defaultAttachmentName
	}

	rec, err := h.cases.AttachPDF(r.Context(), id, filename, contentType, body, size, actor(r))
	if err != nil {
		h.writeServiceError(w, err, "upload_attachment")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SummarizeCase — POST /api/v1/cases/{id}/summary.
func (h *APIHandler) SummarizeCase(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.cases.Summarize(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "summarize_case")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Inbox — GET /api/v1/inbox.
func (h *APIHandler) Inbox(w http.ResponseWriter, r *http.Request, params InboxParams) {
	limit, offset := paginationDefaults(params.Limit, params.Offset)
	items, total, err := h.cases.Inbox(r.Context(), deref(params.Priority), limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "inbox")
		return
	}
	writeJSON(w, http.StatusOK, caseListResponse{
		Items:   nonNil(items),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// Stats — GET /api/v1/stats.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request, params StatsParams) {
	stats, err := h.cases.Stats(r.Context(), deref(params.Year), deref(params.Month), deref(params.Day))
	if err != nil {
		h.writeServiceError(w, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Dashboard — GET /api/v1/dashboard.
func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.cases.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "dashboard")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListAreas — GET /api/v1/areas.
func (h *APIHandler) ListAreas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.areas.All())
}

func nonNil(items []model.CaseRecord) []model.CaseRecord {
	if items == nil {
		return []model.CaseRecord{}
	}
	return items
}
