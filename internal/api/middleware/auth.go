package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"arbibot/pkg/crypto"
)

// debugUsername и debugPassword для защиты debug endpoints.
// Загружаются из переменных окружения DEBUG_USERNAME и DEBUG_PASSWORD
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// Auth возвращает middleware проверки API токена.
//
// Торговые endpoints (enable/disable, сброс breaker'а, ограничения)
// защищаются токеном из конфигурации. Токен передается в заголовке
// Authorization: Bearer <token> либо X-API-Token.
//
// В конфигурации может лежать как сам токен, так и его bcrypt-хеш
// (префикс $2a$/$2b$): во втором случае утечка конфига токен
// не раскрывает. Пустой токен отключает проверку: локальное
// развертывание и dry-run работают без аутентификации.
func Auth(token string) func(http.Handler) http.Handler {
	hashed := crypto.IsBcryptHash(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := extractToken(r)
			if provided == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				writeAuthError(w, http.StatusUnauthorized, "missing API token")
				return
			}

			if !tokenValid(provided, token, hashed) {
				writeAuthError(w, http.StatusUnauthorized, "invalid API token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenValid сверяет предъявленный токен с конфигурационным.
// Оба пути constant-time: bcrypt внутри, иначе subtle
func tokenValid(provided, configured string, hashed bool) bool {
	if hashed {
		return crypto.TokenMatches(provided, configured)
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

// extractToken достает токен из Authorization или X-API-Token
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-API-Token")
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

// DebugAuth защищает debug/pprof endpoints через HTTP Basic Auth.
//
// Конфигурация:
// - DEBUG_USERNAME / DEBUG_PASSWORD: credentials для доступа
// - Если не установлены, доступ разрешен только в development
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || debugPassword == "" {
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Constant-time сравнение против timing attacks
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
