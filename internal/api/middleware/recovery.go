package middleware

import (
	"net/http"
	"runtime/debug"

	"arbibot/pkg/utils"
)

// Recovery возвращает middleware восстановления после паники в handlers.
// Паника логируется со stack trace, клиент получает 500,
// сервер продолжает обрабатывать запросы
func Recovery(log *utils.Logger) func(http.Handler) http.Handler {
	log = log.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("паника в HTTP handler",
						utils.Any("panic", err),
						utils.String("method", r.Method),
						utils.String("path", r.URL.Path),
						utils.String("stack", string(debug.Stack())),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
