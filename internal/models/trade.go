package models

import "time"

// TradeRecord представляет завершённую арбитражную сделку для хранения в БД
type TradeRecord struct {
	ID          string    `json:"id" db:"id"` // UUID сделки
	Symbol      string    `json:"symbol" db:"symbol"`
	BuyVenue    string    `json:"buy_venue" db:"buy_venue"`
	SellVenue   string    `json:"sell_venue" db:"sell_venue"`
	BuyPrice    float64   `json:"buy_price" db:"buy_price"`   // фактическая цена покупки
	SellPrice   float64   `json:"sell_price" db:"sell_price"` // фактическая цена продажи
	Quantity    float64   `json:"quantity" db:"quantity"`     // исполненный объём
	Fees        float64   `json:"fees" db:"fees"`             // суммарные комиссии обеих ног
	ProfitUSD   float64   `json:"profit_usd" db:"profit_usd"` // чистый результат после комиссий
	Score       float64   `json:"score" db:"score"`           // score возможности на момент запуска
	Status      string    `json:"status" db:"status"`         // финальный статус сделки
	FailReason  string    `json:"fail_reason,omitempty" db:"fail_reason"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// DurationMs возвращает длительность исполнения сделки в миллисекундах
func (t *TradeRecord) DurationMs() float64 {
	return float64(t.CompletedAt.Sub(t.StartedAt).Milliseconds())
}
