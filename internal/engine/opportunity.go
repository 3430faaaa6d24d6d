package engine

import "time"

// Opportunity представляет обнаруженную арбитражную возможность:
// купить по Ask на одной бирже и продать по Bid на другой.
//
// Все цены - сырые биржевые, комиссии учитываются в SpreadPct.
type Opportunity struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	BuyVenue  string    `json:"buy_venue"`
	SellVenue string    `json:"sell_venue"`
	BuyPrice  float64   `json:"buy_price"`  // Ask на бирже покупки
	SellPrice float64   `json:"sell_price"` // Bid на бирже продажи
	BuyFee    float64   `json:"buy_fee"`    // комиссия тейкера в долях
	SellFee   float64   `json:"sell_fee"`

	// SpreadPct - чистый спред в процентах после обеих комиссий:
	// ((bid×(1-fee_sell) - ask×(1+fee_buy)) / ask×(1+fee_buy)) × 100
	SpreadPct float64 `json:"spread_pct"`

	// MaxQuantity - максимальный объём, который стаканы обеих бирж
	// позволяют исполнить без выхода за breakeven-цены
	MaxQuantity float64 `json:"max_quantity"`

	// Score - композитная оценка качества возможности, 0-100
	Score float64 `json:"score"`

	// ProfitEstimateUSD - ожидаемый профит при исполнении MaxQuantity
	ProfitEstimateUSD float64 `json:"profit_estimate_usd"`

	DetectedAt time.Time `json:"detected_at"`
}

// Direction возвращает ключ направления "symbol|buy_venue|sell_venue".
// Используется гранулярными circuit breaker'ами и моделью успешности.
func (o *Opportunity) Direction() string {
	return o.Symbol + "|" + o.BuyVenue + "|" + o.SellVenue
}
