package handlers

import (
	"net/http"

	"arbibot/internal/models"
)

// StatsReader - интерфейс чтения агрегированной статистики
type StatsReader interface {
	GetStats() (*models.Stats, error)
}

// StatsHandler обрабатывает HTTP запросы для статистики торговли.
//
// Endpoints:
// - GET /api/v1/stats - агрегированная статистика
//
// Статистика включает:
// - Количество завершенных арбитражей и PNL (день/неделя/месяц/всего)
// - Долю успешных сделок и среднюю длительность исполнения
// - Топ-5 символов по сделкам и профиту
// - Топ-5 направлений (buy venue -> sell venue)
type StatsHandler struct {
	repo StatsReader
}

// NewStatsHandler создает новый StatsHandler
func NewStatsHandler(repo StatsReader) *StatsHandler {
	return &StatsHandler{repo: repo}
}

// GetStats возвращает агрегированную статистику торговли.
//
// GET /api/v1/stats
//
// Response 200 OK:
//
//	{
//	  "total_trades": 120,
//	  "total_pnl": 342.5,
//	  "today_trades": 5,
//	  "today_pnl": 12.3,
//	  "week_trades": 30,
//	  "week_pnl": 88.1,
//	  "month_trades": 100,
//	  "month_pnl": 290.7,
//	  "success_rate": 0.85,
//	  "avg_execution_ms": 1340,
//	  "top_symbols_by_trades": [{"symbol": "BTC/USDT", "value": 80}],
//	  "top_symbols_by_profit": [{"symbol": "BTC/USDT", "value": 250.0}],
//	  "top_venue_pairs": [
//	    {"buy_venue": "binance", "sell_venue": "kraken", "trades": 70, "pnl": 200.0}
//	  ]
//	}
//
// Response 500 Internal Server Error:
//
//	{"error": "failed to get stats", "details": "..."}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusInternalServerError, "stats repository not initialized", nil)
		return
	}

	stats, err := h.repo.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats", err)
		return
	}

	// Пустые топы возвращаются как [], а не null
	if stats.TopSymbolsByTrades == nil {
		stats.TopSymbolsByTrades = []models.SymbolStat{}
	}
	if stats.TopSymbolsByProfit == nil {
		stats.TopSymbolsByProfit = []models.SymbolStat{}
	}
	if stats.TopVenuePairs == nil {
		stats.TopVenuePairs = []models.VenueStat{}
	}

	writeJSON(w, http.StatusOK, stats)
}
