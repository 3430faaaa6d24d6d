package websocket

import (
	"time"

	"arbibot/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeOpportunities - актуальный буфер арбитражных возможностей.
	// Отправляется после каждого цикла сканирования
	MessageTypeOpportunities MessageType = "opportunities"

	// MessageTypeTrade - завершённая сделка (любой финальный статус)
	MessageTypeTrade MessageType = "trade"

	// MessageTypeNotification - новое уведомление движка
	MessageTypeNotification MessageType = "notification"

	// MessageTypeSafety - состояние предохранителей и суточных лимитов.
	// Отправляется при срабатывании breaker'а и после каждой сделки
	MessageTypeSafety MessageType = "safety"

	// MessageTypeStats - агрегированная статистика торговли
	MessageTypeStats MessageType = "stats"

	// MessageTypeStatus - общий статус движка (enabled, биржи, аптайм)
	MessageTypeStatus MessageType = "status"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// OpportunitiesMessage - ранжированный список возможностей
type OpportunitiesMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// TradeMessage - завершённая сделка
type TradeMessage struct {
	BaseMessage
	Data *models.TradeRecord `json:"data"`
}

// NotificationMessage - уведомление движка
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// SafetyMessage - снимок состояния предохранителей
type SafetyMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// StatsMessage - агрегированная статистика
type StatsMessage struct {
	BaseMessage
	Data *models.Stats `json:"data"`
}

// StatusMessage - статус движка
type StatusMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// ============ Broadcast хелперы ============

// BroadcastOpportunities отправляет буфер возможностей
func (h *Hub) BroadcastOpportunities(opportunities interface{}) {
	h.Broadcast(&OpportunitiesMessage{
		BaseMessage: BaseMessage{Type: MessageTypeOpportunities, Timestamp: time.Now()},
		Data:        opportunities,
	})
}

// BroadcastTrade отправляет завершённую сделку
func (h *Hub) BroadcastTrade(rec *models.TradeRecord) {
	h.Broadcast(&TradeMessage{
		BaseMessage: BaseMessage{Type: MessageTypeTrade, Timestamp: time.Now()},
		Data:        rec,
	})
}

// BroadcastNotification отправляет новое уведомление
func (h *Hub) BroadcastNotification(n *models.Notification) {
	h.Broadcast(&NotificationMessage{
		BaseMessage: BaseMessage{Type: MessageTypeNotification, Timestamp: time.Now()},
		Data:        n,
	})
}

// BroadcastSafety отправляет состояние предохранителей
func (h *Hub) BroadcastSafety(safety interface{}) {
	h.Broadcast(&SafetyMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSafety, Timestamp: time.Now()},
		Data:        safety,
	})
}

// BroadcastStats отправляет статистику
func (h *Hub) BroadcastStats(stats *models.Stats) {
	h.Broadcast(&StatsMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStats, Timestamp: time.Now()},
		Data:        stats,
	})
}

// BroadcastStatus отправляет статус движка
func (h *Hub) BroadcastStatus(status interface{}) {
	h.Broadcast(&StatusMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStatus, Timestamp: time.Now()},
		Data:        status,
	})
}
