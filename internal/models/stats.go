package models

// Stats представляет агрегированную статистику торговли
type Stats struct {
	TotalTrades int     `json:"total_trades"`
	TotalPnl    float64 `json:"total_pnl"`
	TodayTrades int     `json:"today_trades"`
	TodayPnl    float64 `json:"today_pnl"`
	WeekTrades  int     `json:"week_trades"`
	WeekPnl     float64 `json:"week_pnl"`
	MonthTrades int     `json:"month_trades"`
	MonthPnl    float64 `json:"month_pnl"`

	SuccessRate    float64 `json:"success_rate"`     // доля COMPLETED среди завершённых
	AvgExecutionMs float64 `json:"avg_execution_ms"` // средняя длительность сделки

	TopSymbolsByTrades []SymbolStat `json:"top_symbols_by_trades"` // топ-5
	TopSymbolsByProfit []SymbolStat `json:"top_symbols_by_profit"` // топ-5
	TopVenuePairs      []VenueStat  `json:"top_venue_pairs"`       // топ-5 направлений
}

// SymbolStat представляет статистику по символу
type SymbolStat struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"` // количество сделок или PNL
}

// VenueStat представляет статистику по направлению (buy venue -> sell venue)
type VenueStat struct {
	BuyVenue  string  `json:"buy_venue"`
	SellVenue string  `json:"sell_venue"`
	Trades    int     `json:"trades"`
	Pnl       float64 `json:"pnl"`
}
