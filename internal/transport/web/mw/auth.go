package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/EgorLis/nearby/internal/domain"
)

// Sessions — то, что middleware нужно от сессионного стора.
// UserByToken продлевает скользящий TTL сессии.
type Sessions interface {
	UserByToken(ctx context.Context, token string) (domain.UserDTO, error)
}

// OptionalAuth кладёт пользователя в контекст, если токен валиден;
// без токена запрос идёт дальше анонимно.
func OptionalAuth(sessions Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r.Header.Get("Authorization"))
		if raw == "" {
			next.ServeHTTP(w, r) // без пользователя
			return
		}
		u, err := sessions.UserByToken(r.Context(), raw)
		if err != nil {
			next.ServeHTTP(w, r) // не валидный — просто идём как неавторизованный
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), u)))
	})
}

// RequireAuth отклоняет запросы без валидной сессии.
func RequireAuth(sessions Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r.Header.Get("Authorization"))
		if raw == "" {
			http.Error(w, `{"error":{"code":401,"text":"unauthorized"}}`, http.StatusUnauthorized)
			return
		}
		u, err := sessions.UserByToken(r.Context(), raw)
		if err != nil {
			http.Error(w, `{"error":{"code":401,"text":"unauthorized"}}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithUser(r.Context(), u)))
	})
}

func UserFromCtx(ctx context.Context) (domain.UserDTO, bool) {
	return domain.UserFromCtx(ctx)
}

func extractBearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
