package venue

import (
	"context"
	"time"
)

// Venue определяет унифицированный интерфейс для работы с любой биржей.
//
// Все операции принимают context для отмены и таймаутов.
// Реализации обязаны быть потокобезопасными: движок опрашивает
// тикеры и размещает ордера конкурентно.
type Venue interface {
	// Name возвращает имя биржи
	Name() string

	// FetchTicker получает текущие bid/ask для символа
	FetchTicker(ctx context.Context, symbol string) (*Ticker, error)

	// FetchOrderBook получает стакан ордеров с заданной глубиной
	FetchOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)

	// FetchBalance получает свободный баланс валюты
	FetchBalance(ctx context.Context, currency string) (float64, error)

	// PlaceOrder размещает ордер
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// FetchOrder получает текущее состояние ордера
	FetchOrder(ctx context.Context, symbol, orderID string) (*Order, error)

	// CancelOrder отменяет ордер
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// TradingFee возвращает комиссию тейкера для символа в долях
	TradingFee(symbol string) float64

	// Close закрывает соединения с биржей
	Close() error
}

// Ticker содержит информацию о текущей цене
type Ticker struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	BidPrice  float64   `json:"bid_price"`  // лучшая цена покупки
	AskPrice  float64   `json:"ask_price"`  // лучшая цена продажи
	LastPrice float64   `json:"last_price"` // последняя сделка
	Timestamp time.Time `json:"timestamp"`
}

// MidPrice возвращает середину bid/ask спреда
func (t *Ticker) MidPrice() float64 {
	return (t.BidPrice + t.AskPrice) / 2
}

// OrderBook представляет стакан ордеров
type OrderBook struct {
	Venue     string       `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"` // заявки на покупку, по убыванию цены
	Asks      []PriceLevel `json:"asks"` // заявки на продажу, по возрастанию цены
	Timestamp time.Time    `json:"timestamp"`
}

// PriceLevel представляет уровень цены в стакане
type PriceLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// OrderRequest параметры размещаемого ордера
type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`  // "buy" или "sell"
	Type     string  `json:"type"`  // "market" или "limit"
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"` // обязателен для limit ордеров
}

// Order представляет ордер на бирже
type Order struct {
	ID           string    `json:"id"`
	Venue        string    `json:"venue"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Type         string    `json:"type"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	FilledQty    float64   `json:"filled_qty"`
	AvgFillPrice float64   `json:"avg_fill_price"`
	Fee          float64   `json:"fee"` // фактическая комиссия в валюте котировки (0 = биржа не сообщила)
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFilled проверяет полное исполнение ордера
func (o *Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// IsDone проверяет, что ордер больше не активен
func (o *Order) IsDone() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Side constants for orders
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order type constants
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Order status constants
const (
	OrderStatusOpen      = "open"
	OrderStatusFilled    = "filled"
	OrderStatusPartial   = "partial"
	OrderStatusCancelled = "cancelled"
	OrderStatusRejected  = "rejected"
)
