package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimVenue - симулятор биржи для dry-run режима и тестов.
//
// Исполнение детерминировано:
// - limit ордер исполняется сразу, если его цена пересекает текущий тикер
//   (buy: price >= ask, sell: price <= bid), иначе остаётся open
// - открытые ордера перепроверяются при каждом обновлении тикера
// - market ордер исполняется по лучшей цене тикера
//
// Балансы списываются/зачисляются при исполнении, комиссия удерживается
// в валюте котировки.
type SimVenue struct {
	name string
	fee  float64

	mu       sync.RWMutex
	tickers  map[string]*Ticker
	books    map[string]*OrderBook
	balances map[string]float64
	orders   map[string]*Order
	cancels  int

	// FailNextOrder заставляет следующий PlaceOrder вернуть ошибку (для тестов)
	FailNextOrder error
}

// NewSimVenue создаёт симулятор биржи
func NewSimVenue(name string, fee float64) *SimVenue {
	return &SimVenue{
		name:     name,
		fee:      fee,
		tickers:  make(map[string]*Ticker),
		books:    make(map[string]*OrderBook),
		balances: make(map[string]float64),
		orders:   make(map[string]*Order),
	}
}

// Name возвращает имя биржи
func (s *SimVenue) Name() string {
	return s.name
}

// ============================================================
// Управление состоянием симулятора
// ============================================================

// SetTicker устанавливает тикер и перепроверяет открытые лимитные ордера
func (s *SimVenue) SetTicker(symbol string, bid, ask float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickers[symbol] = &Ticker{
		Venue:     s.name,
		Symbol:    symbol,
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: (bid + ask) / 2,
		Timestamp: time.Now(),
	}

	// Новая цена могла сделать открытые ордера исполнимыми
	for _, order := range s.orders {
		if order.Symbol == symbol && order.Status == OrderStatusOpen {
			s.tryFill(order)
		}
	}
}

// SetOrderBook устанавливает стакан для символа
func (s *SimVenue) SetOrderBook(symbol string, bids, asks []PriceLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[symbol] = &OrderBook{
		Venue:     s.name,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}
}

// SetBalance устанавливает баланс валюты
func (s *SimVenue) SetBalance(currency string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[currency] = amount
}

// CancelRequests возвращает число полученных запросов отмены
func (s *SimVenue) CancelRequests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancels
}

// ============================================================
// Venue interface
// ============================================================

// FetchTicker возвращает текущий тикер
func (s *SimVenue) FetchTicker(ctx context.Context, symbol string) (*Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ticker, ok := s.tickers[symbol]
	if !ok {
		return nil, NewPermanentError(s.name, "fetch_ticker",
			fmt.Errorf("%w: %s", ErrSymbolNotSupported, symbol))
	}

	copied := *ticker
	return &copied, nil
}

// FetchOrderBook возвращает стакан; если стакан не задан,
// синтезирует одноуровневый стакан из тикера
func (s *SimVenue) FetchOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if book, ok := s.books[symbol]; ok {
		copied := *book
		if depth > 0 {
			if len(copied.Bids) > depth {
				copied.Bids = copied.Bids[:depth]
			}
			if len(copied.Asks) > depth {
				copied.Asks = copied.Asks[:depth]
			}
		}
		return &copied, nil
	}

	ticker, ok := s.tickers[symbol]
	if !ok {
		return nil, NewPermanentError(s.name, "fetch_order_book",
			fmt.Errorf("%w: %s", ErrSymbolNotSupported, symbol))
	}

	return &OrderBook{
		Venue:     s.name,
		Symbol:    symbol,
		Bids:      []PriceLevel{{Price: ticker.BidPrice, Volume: 1000}},
		Asks:      []PriceLevel{{Price: ticker.AskPrice, Volume: 1000}},
		Timestamp: ticker.Timestamp,
	}, nil
}

// FetchBalance возвращает свободный баланс валюты
func (s *SimVenue) FetchBalance(ctx context.Context, currency string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[currency], nil
}

// PlaceOrder размещает ордер и пытается его исполнить
func (s *SimVenue) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextOrder != nil {
		err := s.FailNextOrder
		s.FailNextOrder = nil
		return nil, NewTransientError(s.name, "place_order", err)
	}

	if req.Quantity <= 0 {
		return nil, NewPermanentError(s.name, "place_order",
			fmt.Errorf("invalid quantity: %v", req.Quantity))
	}
	if req.Type == OrderTypeLimit && req.Price <= 0 {
		return nil, NewPermanentError(s.name, "place_order",
			fmt.Errorf("invalid limit price: %v", req.Price))
	}
	if _, ok := s.tickers[req.Symbol]; !ok {
		return nil, NewPermanentError(s.name, "place_order",
			fmt.Errorf("%w: %s", ErrSymbolNotSupported, req.Symbol))
	}

	now := time.Now()
	order := &Order{
		ID:        uuid.NewString(),
		Venue:     s.name,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    OrderStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.orders[order.ID] = order
	s.tryFill(order)

	copied := *order
	return &copied, nil
}

// FetchOrder возвращает текущее состояние ордера
func (s *SimVenue) FetchOrder(ctx context.Context, symbol, orderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok || order.Symbol != symbol {
		return nil, NewPermanentError(s.name, "fetch_order",
			fmt.Errorf("%w: %s", ErrOrderNotFound, orderID))
	}

	copied := *order
	return &copied, nil
}

// CancelOrder отменяет ордер, если он ещё активен
func (s *SimVenue) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancels++

	order, ok := s.orders[orderID]
	if !ok || order.Symbol != symbol {
		return NewPermanentError(s.name, "cancel_order",
			fmt.Errorf("%w: %s", ErrOrderNotFound, orderID))
	}

	if order.Status == OrderStatusOpen || order.Status == OrderStatusPartial {
		order.Status = OrderStatusCancelled
		order.UpdatedAt = time.Now()
	}

	return nil
}

// TradingFee возвращает комиссию тейкера
func (s *SimVenue) TradingFee(symbol string) float64 {
	return s.fee
}

// Close освобождает ресурсы (для симулятора - no-op)
func (s *SimVenue) Close() error {
	return nil
}

// ============================================================
// Исполнение
// ============================================================

// tryFill исполняет ордер против текущего тикера.
// ВАЖНО: вызывается под lock'ом.
func (s *SimVenue) tryFill(order *Order) {
	ticker, ok := s.tickers[order.Symbol]
	if !ok {
		return
	}

	// Marketable ордер исполняется по лучшей цене тикера (price improvement)
	var fillPrice float64
	switch order.Side {
	case SideBuy:
		if order.Type == OrderTypeLimit && order.Price < ticker.AskPrice {
			return // цена не пересекает ask - ордер остаётся в книге
		}
		fillPrice = ticker.AskPrice
	case SideSell:
		if order.Type == OrderTypeLimit && order.Price > ticker.BidPrice {
			return
		}
		fillPrice = ticker.BidPrice
	default:
		return
	}

	order.FilledQty = order.Quantity
	order.AvgFillPrice = fillPrice
	order.Fee = order.Quantity * fillPrice * s.fee
	order.Status = OrderStatusFilled
	order.UpdatedAt = time.Now()

	s.settle(order)
}

// settle обновляет балансы после исполнения.
// ВАЖНО: вызывается под lock'ом.
func (s *SimVenue) settle(order *Order) {
	base, quote := splitSimSymbol(order.Symbol)
	notional := order.FilledQty * order.AvgFillPrice

	switch order.Side {
	case SideBuy:
		s.balances[quote] -= notional + order.Fee
		s.balances[base] += order.FilledQty
	case SideSell:
		s.balances[base] -= order.FilledQty
		s.balances[quote] += notional - order.Fee
	}
}

// splitSimSymbol разбирает "BTC/USDT" на базовую и котировочную валюты
func splitSimSymbol(symbol string) (base, quote string) {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' || symbol[i] == '-' || symbol[i] == '_' {
			return symbol[:i], symbol[i+1:]
		}
	}
	return symbol, ""
}
