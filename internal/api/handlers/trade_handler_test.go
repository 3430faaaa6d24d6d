package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arbibot/internal/engine"
	"arbibot/internal/models"

	"github.com/gorilla/mux"
)

func TestTradeHandlerGetTrades(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedMethod string
		expectedLimit  int
		expectedFilter string
	}{
		{
			name:           "без фильтров",
			url:            "/api/v1/trades",
			expectedStatus: http.StatusOK,
			expectedMethod: "GetRecent",
			expectedLimit:  50,
		},
		{
			name:           "свой limit",
			url:            "/api/v1/trades?limit=10",
			expectedStatus: http.StatusOK,
			expectedMethod: "GetRecent",
			expectedLimit:  10,
		},
		{
			name:           "limit обрезается до 500",
			url:            "/api/v1/trades?limit=9999",
			expectedStatus: http.StatusOK,
			expectedMethod: "GetRecent",
			expectedLimit:  500,
		},
		{
			name:           "фильтр по статусу",
			url:            "/api/v1/trades?status=FAILED",
			expectedStatus: http.StatusOK,
			expectedMethod: "GetByStatus",
			expectedLimit:  50,
			expectedFilter: "FAILED",
		},
		{
			name:           "фильтр по символу",
			url:            "/api/v1/trades?symbol=BTC/USDT",
			expectedStatus: http.StatusOK,
			expectedMethod: "GetBySymbol",
			expectedLimit:  50,
			expectedFilter: "BTC/USDT",
		},
		{
			name:           "невалидный статус",
			url:            "/api/v1/trades?status=UNKNOWN",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "невалидный limit",
			url:            "/api/v1/trades?limit=-1",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeTradeReader{trades: []*models.TradeRecord{sampleTrade("t1")}}
			h := NewTradeHandler(repo, nil)

			req := httptest.NewRequest("GET", tt.url, nil)
			w := httptest.NewRecorder()
			h.GetTrades(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("ожидали %d, получили %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			if repo.lastMethod != tt.expectedMethod {
				t.Errorf("метод: ожидали %s, вызван %s", tt.expectedMethod, repo.lastMethod)
			}
			if repo.lastLimit != tt.expectedLimit {
				t.Errorf("limit: ожидали %d, получили %d", tt.expectedLimit, repo.lastLimit)
			}
			if tt.expectedFilter != "" && repo.lastFilter != tt.expectedFilter {
				t.Errorf("фильтр: ожидали %s, получили %s", tt.expectedFilter, repo.lastFilter)
			}
		})
	}
}

func TestTradeHandlerGetTradesEmpty(t *testing.T) {
	h := NewTradeHandler(&fakeTradeReader{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/trades", nil)
	w := httptest.NewRecorder()
	h.GetTrades(w, req)

	// Пустая история сериализуется как [], а не null
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("ожидали [], получили %s", body)
	}
}

func TestTradeHandlerGetTradesDBError(t *testing.T) {
	repo := &fakeTradeReader{err: errors.New("connection refused")}
	h := NewTradeHandler(repo, nil)

	req := httptest.NewRequest("GET", "/api/v1/trades", nil)
	w := httptest.NewRecorder()
	h.GetTrades(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("ожидали 500, получили %d", w.Code)
	}
}

func TestTradeHandlerGetTrade(t *testing.T) {
	repo := &fakeTradeReader{trades: []*models.TradeRecord{sampleTrade("t1")}}
	h := NewTradeHandler(repo, nil)

	req := httptest.NewRequest("GET", "/api/v1/trades/t1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "t1"})
	w := httptest.NewRecorder()
	h.GetTrade(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", w.Code)
	}

	var trade models.TradeRecord
	if err := json.NewDecoder(w.Body).Decode(&trade); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if trade.ID != "t1" || trade.ProfitUSD != 0.99 {
		t.Errorf("неожиданная сделка: %+v", trade)
	}
}

func TestTradeHandlerGetTradeNotFound(t *testing.T) {
	h := NewTradeHandler(&fakeTradeReader{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/trades/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	w := httptest.NewRecorder()
	h.GetTrade(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("ожидали 404, получили %d", w.Code)
	}
}

func TestTradeHandlerGetActiveTrades(t *testing.T) {
	executor := &fakeExecutor{
		active: []engine.TradeSnapshot{
			{ID: "t1", Symbol: "BTC/USDT", State: "MONITORING", Quantity: 0.1},
		},
	}
	h := NewTradeHandler(nil, executor)

	req := httptest.NewRequest("GET", "/api/v1/trades/active", nil)
	w := httptest.NewRecorder()
	h.GetActiveTrades(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", w.Code)
	}

	var active []engine.TradeSnapshot
	if err := json.NewDecoder(w.Body).Decode(&active); err != nil {
		t.Fatalf("ошибка декодирования ответа: %v", err)
	}
	if len(active) != 1 || active[0].State != "MONITORING" {
		t.Errorf("неожиданные активные сделки: %+v", active)
	}
}

func TestTradeHandlerGetActiveTradesEmpty(t *testing.T) {
	h := NewTradeHandler(nil, &fakeExecutor{})

	req := httptest.NewRequest("GET", "/api/v1/trades/active", nil)
	w := httptest.NewRecorder()
	h.GetActiveTrades(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("ожидали [], получили %s", body)
	}
}
