// auth.go — аутентификация по Bearer-токену сессии и проверка ролей.
// Токены выпускаются при входе (POST /auth/login) и подписываются HS256.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/drem-apurimac/tramite/internal/api/errors"
	"github.com/drem-apurimac/tramite/internal/auth"
)

// contextKey — тип ключей контекста.
type contextKey string

// ContextKeyClaims — claims сессии в контексте запроса.
const ContextKeyClaims contextKey = "session_claims"

// TokenParser проверяет токен и возвращает claims.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// SessionAuth — middleware аутентификации.
type SessionAuth struct {
	tokens TokenParser
	logger *slog.Logger
}

// NewSessionAuth создаёт middleware аутентификации.
func NewSessionAuth(tokens TokenParser, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		tokens: tokens,
		logger: logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware извлекает Bearer-токен, проверяет его и помещает claims в контекст.
func (a *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}
			token = strings.TrimSpace(token)
			if token == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			claims, err := a.tokens.Parse(token)
			if err != nil {
				a.logger.Debug("Токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize проверяет роль сессии. При отказе пишет 401/403 и возвращает false.
// Используется обработчиками после SessionAuth.Middleware().
func Authorize(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return false
	}
	if !claims.HasAnyRole(roles...) {
		apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", strings.Join(roles, " или ")))
		return false
	}
	return true
}

// ClaimsFromContext извлекает claims сессии; nil, если их нет.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ContextKeyClaims).(*auth.Claims)
	return claims
}

// WithClaims кладёт claims в контекст.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}
