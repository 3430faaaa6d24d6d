package handlers

import (
	"net/http"
	"strings"

	"arbibot/internal/engine"
)

// Gate - интерфейс предохранителей движка
type Gate interface {
	Status() engine.SafetyStatus
	ResetBreaker()
	RestrictSymbol(symbol string)
	UnrestrictSymbol(symbol string)
	RestrictVenue(venueName string)
	UnrestrictVenue(venueName string)
}

// SafetyHandler обрабатывает HTTP запросы к предохранителям.
//
// Endpoints:
// - GET /api/v1/safety - состояние предохранителей и суточных лимитов
// - POST /api/v1/safety/breaker/reset - ручной сброс circuit breaker
// - POST /api/v1/safety/restrictions - добавить ограничение
// - DELETE /api/v1/safety/restrictions?kind=symbol&name=BTC/USDT - снять
type SafetyHandler struct {
	gate Gate
}

// NewSafetyHandler создает новый SafetyHandler
func NewSafetyHandler(gate Gate) *SafetyHandler {
	return &SafetyHandler{gate: gate}
}

// GetSafety возвращает состояние предохранителей.
//
// GET /api/v1/safety
//
// Response 200 OK:
//
//	{
//	  "daily_pnl": -12.5,
//	  "daily_trades": 8,
//	  "consecutive_losses": 1,
//	  "breaker_active": false,
//	  ...
//	}
func (h *SafetyHandler) GetSafety(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusInternalServerError, "safety gate not initialized", nil)
		return
	}

	writeJSON(w, http.StatusOK, h.gate.Status())
}

// ResetBreaker вручную сбрасывает глобальный circuit breaker.
// Суточные счетчики PNL при этом не сбрасываются.
//
// POST /api/v1/safety/breaker/reset
func (h *SafetyHandler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusInternalServerError, "safety gate not initialized", nil)
		return
	}

	h.gate.ResetBreaker()
	writeJSON(w, http.StatusOK, SuccessResponse{Message: "breaker reset"})
}

// restrictionRequest - тело запроса на ограничение.
// Символ передается в body: "BTC/USDT" содержит слэш
// и не может быть сегментом пути
type restrictionRequest struct {
	Kind string `json:"kind"` // symbol или venue
	Name string `json:"name"`
}

// AddRestriction добавляет ручное ограничение на символ или биржу.
// Ограниченные символы/биржи исключаются из исполнения сделок.
//
// POST /api/v1/safety/restrictions
// Body: {"kind": "symbol", "name": "BTC/USDT"}
//
// Response 400 Bad Request при неизвестном kind или пустом name
func (h *SafetyHandler) AddRestriction(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusInternalServerError, "safety gate not initialized", nil)
		return
	}

	var req restrictionRequest
	if err := apiJSON.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h.applyRestriction(w, req, true)
}

// RemoveRestriction снимает ручное ограничение.
//
// DELETE /api/v1/safety/restrictions?kind=symbol&name=BTC/USDT
func (h *SafetyHandler) RemoveRestriction(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeError(w, http.StatusInternalServerError, "safety gate not initialized", nil)
		return
	}

	req := restrictionRequest{
		Kind: r.URL.Query().Get("kind"),
		Name: r.URL.Query().Get("name"),
	}

	h.applyRestriction(w, req, false)
}

func (h *SafetyHandler) applyRestriction(w http.ResponseWriter, req restrictionRequest, add bool) {
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "restriction name is required", nil)
		return
	}

	switch strings.ToLower(req.Kind) {
	case "symbol":
		if add {
			h.gate.RestrictSymbol(req.Name)
		} else {
			h.gate.UnrestrictSymbol(req.Name)
		}
	case "venue":
		if add {
			h.gate.RestrictVenue(req.Name)
		} else {
			h.gate.UnrestrictVenue(req.Name)
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":       "invalid restriction kind",
			"valid_kinds": []string{"symbol", "venue"},
		})
		return
	}

	action := "removed"
	if add {
		action = "added"
	}
	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: "restriction " + action,
		Data:    map[string]string{"kind": strings.ToLower(req.Kind), "name": req.Name},
	})
}
