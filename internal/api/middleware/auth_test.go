package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"arbibot/pkg/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWithEmptyToken(t *testing.T) {
	handler := Auth("")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("пустой токен отключает проверку: получили %d", w.Code)
	}
}

func TestAuthToken(t *testing.T) {
	const token = "secret-token-0123456789"

	tests := []struct {
		name           string
		header         string
		value          string
		expectedStatus int
	}{
		{
			name:           "валидный Bearer токен",
			header:         "Authorization",
			value:          "Bearer " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "валидный X-API-Token",
			header:         "X-API-Token",
			value:          token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "неверный токен",
			header:         "Authorization",
			value:          "Bearer wrong",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "без токена",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Basic вместо Bearer",
			header:         "Authorization",
			value:          "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	handler := Auth(token)(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/trading/enable", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("ожидали %d, получили %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// В конфигурации вместо токена может лежать его bcrypt-хеш:
// сверяется предъявленный токен против хеша
func TestAuthHashedToken(t *testing.T) {
	const token = "secret-token-0123456789"
	hash, err := crypto.HashTokenWithCost(token, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashTokenWithCost failed: %v", err)
	}

	handler := Auth(hash)(okHandler())

	req := httptest.NewRequest("POST", "/api/v1/trading/enable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("верный токен против хеша: ожидали 200, получили %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/trading/enable", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("неверный токен против хеша: ожидали 401, получили %d", w.Code)
	}

	// Сам хеш в заголовке токеном не является
	req = httptest.NewRequest("POST", "/api/v1/trading/enable", nil)
	req.Header.Set("X-API-Token", hash)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("хеш вместо токена: ожидали 401, получили %d", w.Code)
	}
}
