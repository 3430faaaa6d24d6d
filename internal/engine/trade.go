package engine

import (
	"fmt"
	"sync"
	"time"

	"arbibot/internal/venue"
)

// Trade - арбитражная сделка в работе: две ноги (покупка и продажа)
// и монотонная машина состояний.
type Trade struct {
	mu sync.RWMutex

	ID          string
	Opportunity *Opportunity
	Quantity    float64

	state string

	BuyOrder  *venue.Order
	SellOrder *venue.Order

	ProfitUSD  float64
	Fees       float64
	FailReason string

	StartedAt   time.Time
	CompletedAt time.Time
}

// newTrade создаёт сделку в состоянии PENDING
func newTrade(id string, op *Opportunity, qty float64) *Trade {
	return &Trade{
		ID:          id,
		Opportunity: op,
		Quantity:    qty,
		state:       StatePending,
		StartedAt:   time.Now(),
	}
}

// State возвращает текущее состояние
func (t *Trade) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// transition переводит сделку в новое состояние.
// Недопустимый переход - ошибка программиста, она возвращается
// наверх и роняет сделку в лог, но состояние не меняется.
func (t *Trade) transition(to string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !CanTransition(t.state, to) {
		return fmt.Errorf("invalid transition %s -> %s", t.state, to)
	}
	t.state = to

	if IsTerminal(to) {
		t.CompletedAt = time.Now()
	}
	return nil
}

// TradeSnapshot - иммутабельный снимок сделки для API и WebSocket
type TradeSnapshot struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	BuyVenue  string  `json:"buy_venue"`
	SellVenue string  `json:"sell_venue"`
	Quantity  float64 `json:"quantity"`
	State     string  `json:"state"`
	StateInfo string  `json:"state_info"`

	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Score     float64 `json:"score"`

	ProfitUSD  float64 `json:"profit_usd"`
	Fees       float64 `json:"fees"`
	FailReason string  `json:"fail_reason,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot возвращает копию состояния сделки
func (t *Trade) Snapshot() TradeSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := TradeSnapshot{
		ID:         t.ID,
		Symbol:     t.Opportunity.Symbol,
		BuyVenue:   t.Opportunity.BuyVenue,
		SellVenue:  t.Opportunity.SellVenue,
		Quantity:   t.Quantity,
		State:      t.state,
		StateInfo:  StateInfo(t.state),
		BuyPrice:   t.Opportunity.BuyPrice,
		SellPrice:  t.Opportunity.SellPrice,
		Score:      t.Opportunity.Score,
		ProfitUSD:  t.ProfitUSD,
		Fees:       t.Fees,
		FailReason: t.FailReason,
		StartedAt:  t.StartedAt,
	}
	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		snap.CompletedAt = &completed
	}
	return snap
}
