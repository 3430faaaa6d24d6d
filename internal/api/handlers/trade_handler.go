package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"arbibot/internal/engine"
	"arbibot/internal/models"
	"arbibot/internal/repository"

	"github.com/gorilla/mux"
)

// TradeReader - интерфейс чтения истории сделок
type TradeReader interface {
	GetByID(id string) (*models.TradeRecord, error)
	GetRecent(limit int) ([]*models.TradeRecord, error)
	GetByStatus(status string, limit int) ([]*models.TradeRecord, error)
	GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error)
}

// ActiveTradeSource - источник сделок в работе
type ActiveTradeSource interface {
	ActiveTrades() []engine.TradeSnapshot
}

// TradeHandler обрабатывает HTTP запросы для истории сделок.
//
// Endpoints:
// - GET /api/v1/trades?limit=N&status=S&symbol=X - история сделок
// - GET /api/v1/trades/active - сделки в работе
// - GET /api/v1/trades/{id} - сделка по ID
type TradeHandler struct {
	repo     TradeReader
	executor ActiveTradeSource
}

// NewTradeHandler создает новый TradeHandler
func NewTradeHandler(repo TradeReader, executor ActiveTradeSource) *TradeHandler {
	return &TradeHandler{
		repo:     repo,
		executor: executor,
	}
}

// Допустимые значения фильтра status
var validTradeStatuses = map[string]bool{
	"COMPLETED":        true,
	"PARTIALLY_FILLED": true,
	"FAILED":           true,
	"CANCELLED":        true,
}

// GetTrades возвращает историю сделок, свежие первыми.
//
// GET /api/v1/trades?limit=N&status=S&symbol=X
//
// Query Parameters:
// - limit (optional): количество сделок (по умолчанию 50, максимум 500)
// - status (optional): COMPLETED, PARTIALLY_FILLED, FAILED, CANCELLED
// - symbol (optional): фильтр по символу
//
// status и symbol взаимоисключающие: приоритет у status
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusInternalServerError, "trade repository not initialized", nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
		if limit > 500 {
			limit = 500
		}
	}

	var (
		trades []*models.TradeRecord
		err    error
	)

	status := r.URL.Query().Get("status")
	symbol := r.URL.Query().Get("symbol")

	switch {
	case status != "":
		if !validTradeStatuses[status] {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":          "invalid status",
				"valid_statuses": []string{"COMPLETED", "PARTIALLY_FILLED", "FAILED", "CANCELLED"},
			})
			return
		}
		trades, err = h.repo.GetByStatus(status, limit)
	case symbol != "":
		trades, err = h.repo.GetBySymbol(symbol, limit)
	default:
		trades, err = h.repo.GetRecent(limit)
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trades", err)
		return
	}

	// Пустой результат возвращается как [], а не null
	if trades == nil {
		trades = []*models.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, trades)
}

// GetActiveTrades возвращает снимки сделок в работе.
//
// GET /api/v1/trades/active
func (h *TradeHandler) GetActiveTrades(w http.ResponseWriter, r *http.Request) {
	if h.executor == nil {
		writeError(w, http.StatusInternalServerError, "executor not initialized", nil)
		return
	}

	active := h.executor.ActiveTrades()
	if active == nil {
		active = []engine.TradeSnapshot{}
	}

	writeJSON(w, http.StatusOK, active)
}

// GetTrade возвращает сделку по ID.
//
// GET /api/v1/trades/{id}
//
// Response 404 Not Found если сделки нет
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusInternalServerError, "trade repository not initialized", nil)
		return
	}

	id := mux.Vars(r)["id"]

	trade, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get trade", err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}
