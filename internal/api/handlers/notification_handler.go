package handlers

import (
	"net/http"
	"strconv"

	"arbibot/internal/models"
)

// NotificationReader - интерфейс журнала уведомлений
type NotificationReader interface {
	GetRecent(limit int) ([]*models.Notification, error)
	GetByType(ntype string, limit int) ([]*models.Notification, error)
	GetBySeverity(severity string, limit int) ([]*models.Notification, error)
	DeleteAll() error
}

// NotificationHandler обрабатывает HTTP запросы журнала уведомлений.
//
// Endpoints:
// - GET /api/v1/notifications?limit=N&type=T&severity=S - журнал
// - DELETE /api/v1/notifications - очистить журнал
type NotificationHandler struct {
	repo NotificationReader
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(repo NotificationReader) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// Допустимые значения фильтров
var (
	validNotificationTypes = map[string]bool{
		models.NotificationTypeTradeCompleted: true,
		models.NotificationTypeTradeFailed:    true,
		models.NotificationTypePartialFill:    true,
		models.NotificationTypeBreaker:        true,
		models.NotificationTypeDailyLoss:      true,
		models.NotificationTypeError:          true,
	}
	validSeverities = map[string]bool{
		models.SeverityInfo:     true,
		models.SeverityWarning:  true,
		models.SeverityError:    true,
		models.SeverityCritical: true,
	}
)

// GetNotifications возвращает журнал уведомлений, свежие первыми.
//
// GET /api/v1/notifications?limit=N&type=T&severity=S
//
// Query Parameters:
// - limit (optional): количество уведомлений (по умолчанию 50, максимум 500)
// - type (optional): TRADE_COMPLETED, TRADE_FAILED, PARTIAL_FILL, BREAKER, DAILY_LOSS, ERROR
// - severity (optional): info, warning, error, critical
//
// type и severity взаимоисключающие: приоритет у type
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusInternalServerError, "notification repository not initialized", nil)
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
		notifications []*models.Notification
		err           error
	)

	ntype := r.URL.Query().Get("type")
	severity := r.URL.Query().Get("severity")

	switch {
	case ntype != "":
		if !validNotificationTypes[ntype] {
			writeError(w, http.StatusBadRequest, "invalid notification type", nil)
			return
		}
		notifications, err = h.repo.GetByType(ntype, limit)
	case severity != "":
		if !validSeverities[severity] {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":            "invalid severity",
				"valid_severities": []string{"info", "warning", "error", "critical"},
			})
			return
		}
		notifications, err = h.repo.GetBySeverity(severity, limit)
	default:
		notifications, err = h.repo.GetRecent(limit)
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get notifications", err)
		return
	}

	// Пустой журнал возвращается как [], а не null
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	writeJSON(w, http.StatusOK, notifications)
}

// ClearNotifications очищает журнал уведомлений.
//
// DELETE /api/v1/notifications
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusInternalServerError, "notification repository not initialized", nil)
		return
	}

	if err := h.repo.DeleteAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "notifications cleared"})
}
