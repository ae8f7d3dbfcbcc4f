package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
)

// Тип для ключа контекста.
type contextKey string

// Ключи для хранения данных пользователя в контексте.
const (
	UserIDKey   contextKey = "userID"
	UserRoleKey contextKey = "userRole"
)

// TokenParser проверяет токен доступа.
type TokenParser interface {
	Parse(token string) (*tokens.Claims, error)
}

// NewAuthenticator возвращает middleware, проверяющий JWT токен из заголовка Authorization.
func NewAuthenticator(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("[AuthMiddleware] Заголовок Authorization отсутствует")
				respond.Error(w, http.StatusUnauthorized, models.CodeUnauthorized, "Требуется аутентификация")
				return
			}

			// Проверяем формат "Bearer token"
			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
				log.Printf("[AuthMiddleware] Неверный формат заголовка Authorization")
				respond.Error(w, http.StatusUnauthorized, models.CodeUnauthorized, "Неверный формат токена")
				return
			}

			claims, err := parser.Parse(headerParts[1])
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка парсинга/валидации токена: %v", err)
				respond.Error(w, http.StatusUnauthorized, models.CodeUnauthorized, "Невалидный токен")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе пустую строку и false.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID кладет ID пользователя в контекст. Используется в тестах обработчиков.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
