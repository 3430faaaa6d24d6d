package handlers

import (
	"net/http"
	"strconv"
	"time"

	"arbibot/internal/engine"
)

// Controller - интерфейс движка для status/enable/disable
type Controller interface {
	Status() engine.ControllerStatus
	Enable() error
	Disable()
}

// OpportunitySource - источник текущих арбитражных возможностей
type OpportunitySource interface {
	Top(n int) []*engine.Opportunity
	LastScan() time.Time
}

// EngineHandler обрабатывает HTTP запросы управления движком.
//
// Endpoints:
// - GET /api/v1/status - снимок состояния движка
// - POST /api/v1/trading/enable - включить торговлю
// - POST /api/v1/trading/disable - выключить торговлю
// - GET /api/v1/opportunities?limit=N - текущий буфер возможностей
type EngineHandler struct {
	controller Controller
	scanner    OpportunitySource
}

// NewEngineHandler создает новый EngineHandler
func NewEngineHandler(controller Controller, scanner OpportunitySource) *EngineHandler {
	return &EngineHandler{
		controller: controller,
		scanner:    scanner,
	}
}

// GetStatus возвращает снимок состояния движка.
//
// GET /api/v1/status
//
// Response 200 OK:
//
//	{
//	  "enabled": true,
//	  "uptime_seconds": 3642.5,
//	  "venues": ["binance", "kraken"],
//	  "symbols": ["BTC/USDT", "ETH/USDT"],
//	  "active_trades": 1,
//	  "opportunities": 4,
//	  "last_scan": "2026-08-27T10:15:03Z",
//	  "safety": {...},
//	  "dry_run": false
//	}
func (h *EngineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.controller == nil {
		writeError(w, http.StatusInternalServerError, "controller not initialized", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.controller.Status())
}

// EnableTrading включает исполнение сделок.
//
// POST /api/v1/trading/enable
//
// Response 409 Conflict если активен circuit breaker:
// сначала нужен POST /api/v1/safety/breaker/reset
func (h *EngineHandler) EnableTrading(w http.ResponseWriter, r *http.Request) {
	if h.controller == nil {
		writeError(w, http.StatusInternalServerError, "controller not initialized", nil)
		return
	}

	if err := h.controller.Enable(); err != nil {
		writeError(w, http.StatusConflict, "failed to enable trading", err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading enabled"})
}

// DisableTrading выключает исполнение сделок.
// Активные сделки довершаются, новые не запускаются.
//
// POST /api/v1/trading/disable
func (h *EngineHandler) DisableTrading(w http.ResponseWriter, r *http.Request) {
	if h.controller == nil {
		writeError(w, http.StatusInternalServerError, "controller not initialized", nil)
		return
	}

	h.controller.Disable()
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "trading disabled"})
}

// GetOpportunities возвращает текущий буфер возможностей по убыванию score.
//
// GET /api/v1/opportunities?limit=N
//
// Query Parameters:
// - limit (optional): количество возможностей (по умолчанию 20, максимум 100)
//
// Response 200 OK:
//
//	{
//	  "opportunities": [...],
//	  "last_scan": "2026-08-27T10:15:03Z"
//	}
func (h *EngineHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusInternalServerError, "scanner not initialized", nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
		if limit > 100 {
			limit = 100
		}
	}

	ops := h.scanner.Top(limit)
	// Пустой буфер возвращается как [], а не null
	if ops == nil {
		ops = []*engine.Opportunity{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": ops,
		"last_scan":     h.scanner.LastScan(),
	})
}
