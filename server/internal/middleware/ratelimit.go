package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/ratelimit"
	"github.com/ShakilAhmedRego/VMV5/server/internal/respond"
)

// RateLimit ограничивает число запросов одного пользователя.
// Должен стоять после NewAuthenticator: ключом служит ID пользователя.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			d := limiter.Allow(r.Context(), scope+":"+userID, limit)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				retry := int(time.Until(d.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				log.Printf("[RateLimit] Пользователь %s превысил лимит %s (%d)", userID, scope, d.Limit)
				respond.Error(w, http.StatusTooManyRequests, models.CodeRateLimited, "Слишком много запросов")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
