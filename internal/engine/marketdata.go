package engine

import (
	"sync"
	"time"

	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Кэш рыночных данных
// ============================================================
//
// Единственный источник цен для сканера и исполнителя.
// Фиды бирж пишут сюда тикеры и стаканы, читатели получают копии.
//
// Семантика:
// - запись только перезаписывает (устаревшие данные не удаляются,
//   свежесть проверяет читатель по Timestamp)
// - история mid-цен ограничена окном волатильности и жёстким
//   потолком historyCap точек на ключ

// historyCap ограничивает историю mid-цен на один ключ (venue, symbol)
const historyCap = 100

type midPoint struct {
	price float64
	ts    time.Time
}

// MarketDataCache - потокобезопасный кэш тикеров и стаканов
type MarketDataCache struct {
	mu      sync.RWMutex
	tickers map[string]*venue.Ticker
	books   map[string]*venue.OrderBook
	history map[string][]midPoint

	window time.Duration // окно расчёта волатильности
}

// NewMarketDataCache создаёт кэш с заданным окном волатильности
func NewMarketDataCache(volatilityWindow time.Duration) *MarketDataCache {
	return &MarketDataCache{
		tickers: make(map[string]*venue.Ticker),
		books:   make(map[string]*venue.OrderBook),
		history: make(map[string][]midPoint),
		window:  volatilityWindow,
	}
}

func cacheKey(venueName, symbol string) string {
	return venueName + "|" + symbol
}

// UpdateTicker сохраняет тикер и добавляет mid-цену в историю волатильности
func (c *MarketDataCache) UpdateTicker(t *venue.Ticker) {
	if t == nil {
		return
	}
	key := cacheKey(t.Venue, t.Symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *t
	c.tickers[key] = &copied

	points := append(c.history[key], midPoint{price: t.MidPrice(), ts: t.Timestamp})
	c.history[key] = trimHistory(points, t.Timestamp, c.window)
}

// UpdateOrderBook сохраняет стакан
func (c *MarketDataCache) UpdateOrderBook(b *venue.OrderBook) {
	if b == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *b
	c.books[cacheKey(b.Venue, b.Symbol)] = &copied
}

// Ticker возвращает копию последнего тикера для (биржа, символ)
func (c *MarketDataCache) Ticker(venueName, symbol string) (*venue.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tickers[cacheKey(venueName, symbol)]
	if !ok {
		return nil, false
	}
	copied := *t
	return &copied, true
}

// OrderBook возвращает копию последнего стакана для (биржа, символ)
func (c *MarketDataCache) OrderBook(venueName, symbol string) (*venue.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.books[cacheKey(venueName, symbol)]
	if !ok {
		return nil, false
	}
	copied := *b
	return &copied, true
}

// Volatility возвращает стандартное отклонение mid-цен за окно.
// 0 если точек меньше двух.
func (c *MarketDataCache) Volatility(venueName, symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.history[cacheKey(venueName, symbol)]
	if len(points) < 2 {
		return 0
	}

	cutoff := time.Now().Add(-c.window)
	prices := make([]float64, 0, len(points))
	for _, p := range points {
		if c.window > 0 && p.ts.Before(cutoff) {
			continue
		}
		prices = append(prices, p.price)
	}

	return utils.StdDev(prices)
}

// Symbols возвращает список символов, по которым есть хотя бы один тикер
func (c *MarketDataCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var symbols []string
	for _, t := range c.tickers {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	return symbols
}

// trimHistory отбрасывает точки старше окна и ужимает историю до historyCap
func trimHistory(points []midPoint, now time.Time, window time.Duration) []midPoint {
	if window > 0 {
		cutoff := now.Add(-window)
		firstValid := 0
		for firstValid < len(points) && points[firstValid].ts.Before(cutoff) {
			firstValid++
		}
		points = points[firstValid:]
	}

	if len(points) > historyCap {
		points = points[len(points)-historyCap:]
	}
	return points
}
