// openapi.go — проверка запросов по OpenAPI-контракту (kin-openapi).
// Маршруты, отсутствующие в контракте (health, metrics, /files), не проверяются.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
	"github.com/drem-apurimac/tramite/internal/domain/validation"
)

// RequestValidator — middleware валидации запросов.
type RequestValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewRequestValidator строит маршрутизатор по контракту.
func NewRequestValidator(doc *openapi3.T, logger *slog.Logger) (*RequestValidator, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("построение маршрутизатора OpenAPI: %w", err)
	}
	return &RequestValidator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Middleware проверяет параметры и JSON-тело запроса.
// Тела других типов (PDF, multipart) проверяет обработчик.
func (v *RequestValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := v.router.FindRoute(r)
			if err != nil {
				// 404/405 отдаёт chi
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					ExcludeRequestBody: !isJSON(r),
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не прошёл проверку контракта",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, "Запрос не соответствует контракту API", details(err)...)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return r.ContentLength != 0
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}

// details переводит ошибку kin-openapi в ошибки полей.
func details(err error) []validation.FieldError {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return []validation.FieldError{{Field: "request", Reason: err.Error()}}
	}

	field := "body"
	if reqErr.Parameter != nil {
		field = reqErr.Parameter.Name
	}
	reason := reqErr.Reason

	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 && reqErr.Parameter == nil {
			field = strings.Join(ptr, ".")
		}
		reason = schemaErr.Reason
	}
	if reason == "" && reqErr.Err != nil {
		reason = reqErr.Err.Error()
	}
	return []validation.FieldError{{Field: field, Reason: reason}}
}
