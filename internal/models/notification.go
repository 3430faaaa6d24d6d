package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // TRADE_COMPLETED, TRADE_FAILED, PARTIAL_FILL, BREAKER, DAILY_LOSS, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warning, error, critical
	Component string                 `json:"component" db:"component"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeTradeCompleted = "TRADE_COMPLETED" // арбитражная сделка закрыта с профитом/убытком
	NotificationTypeTradeFailed    = "TRADE_FAILED"    // сделка не состоялась
	NotificationTypePartialFill    = "PARTIAL_FILL"    // исполнилась только одна нога
	NotificationTypeBreaker        = "BREAKER"         // сработал circuit breaker
	NotificationTypeDailyLoss      = "DAILY_LOSS"      // достигнут суточный лимит убытка
	NotificationTypeError          = "ERROR"           // ошибка API/сканера
)

// Уровни важности
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)
