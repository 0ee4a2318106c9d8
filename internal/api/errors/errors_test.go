package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// TestWriteError проверяет формат конверта ошибки.
func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, "ошибка валидации", validation.FieldError{Field: "ruc", Reason: "ожидается 11 цифр"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, ожидается 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, ожидается application/json", ct)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if body.Error.Code != CodeValidationError || len(body.Error.Details) != 1 || body.Error.Details[0].Field != "ruc" {
		t.Errorf("body = %+v, ожидается VALIDATION_ERROR с полем ruc", body)
	}
}

// TestWriteError_NoDetails проверяет отсутствие details без нарушений.
func TestWriteError_NoDetails(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "x") }, http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "x") }, http.StatusForbidden, CodeForbidden},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound, CodeNotFound},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "x") }, http.StatusConflict, CodeConflict},
		{"unavailable", func(w http.ResponseWriter) { ServiceUnavailable(w, "x") }, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "x") }, http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, ожидается %d", rec.Code, tt.status)
			}
			var raw map[string]map[string]any
			_ = json.NewDecoder(rec.Body).Decode(&raw)
			if raw["error"]["code"] != tt.code {
				t.Errorf("code = %v, ожидается %s", raw["error"]["code"], tt.code)
			}
			if _, ok := raw["error"]["details"]; ok {
				t.Error("details не должно быть в ответе")
			}
		})
	}
}
