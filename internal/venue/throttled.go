package venue

import (
	"context"
	"time"

	"arbibot/pkg/ratelimit"
	"arbibot/pkg/retry"
	"arbibot/pkg/utils"
)

// Категории запросов для раздельных rate limit'ов
const (
	categoryMarketData = "market_data"
	categoryOrders     = "orders"
	categoryAccount    = "account"
)

// Throttled - декоратор над Venue, добавляющий rate limiting и retry.
//
// Политика:
// - market data (тикеры, стаканы): щедрый лимит, retry временных ошибок
// - ордера: строгий лимит; размещение НЕ retry'ится (риск двойного ордера),
//   отмена retry'ится агрессивно
// - баланс: консервативный retry
//
// Временность ошибки определяется через retry.RetryableError,
// который реализует venue.Error.
type Throttled struct {
	inner    Venue
	limiters *ratelimit.MultiLimiter
	log      *utils.Logger
}

// NewThrottled оборачивает биржу в rate limiting + retry
//
// Параметры:
//   - inner: реальная биржа
//   - rate: лимит запросов в секунду для ордеров
//   - burst: burst для ордеров
func NewThrottled(inner Venue, rate, burst float64) *Throttled {
	limiters := ratelimit.NewMultiLimiter()
	limiters.Add(categoryOrders, rate, burst)
	// market data опрашивается каждые ~100ms по всем символам
	limiters.Add(categoryMarketData, rate*5, burst*5)
	limiters.Add(categoryAccount, rate, burst)

	return &Throttled{
		inner:    inner,
		limiters: limiters,
		log:      utils.L().WithComponent("venue").WithExchange(inner.Name()),
	}
}

// Name возвращает имя обёрнутой биржи
func (t *Throttled) Name() string {
	return t.inner.Name()
}

// FetchTicker получает тикер с rate limit и retry временных ошибок
func (t *Throttled) FetchTicker(ctx context.Context, symbol string) (*Ticker, error) {
	if err := t.limiters.Wait(ctx, categoryMarketData); err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*Ticker, error) {
		return t.inner.FetchTicker(ctx, symbol)
	}, t.retryConfig())
}

// FetchOrderBook получает стакан с rate limit и retry временных ошибок
func (t *Throttled) FetchOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error) {
	if err := t.limiters.Wait(ctx, categoryMarketData); err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*OrderBook, error) {
		return t.inner.FetchOrderBook(ctx, symbol, depth)
	}, t.retryConfig())
}

// FetchBalance получает баланс с консервативным retry
func (t *Throttled) FetchBalance(ctx context.Context, currency string) (float64, error) {
	if err := t.limiters.Wait(ctx, categoryAccount); err != nil {
		return 0, err
	}

	cfg := retry.ConservativeConfig()
	cfg.RetryIf = retry.IsRetryable

	return retry.DoWithResult(ctx, func() (float64, error) {
		return t.inner.FetchBalance(ctx, currency)
	}, cfg)
}

// PlaceOrder размещает ордер БЕЗ retry.
//
// Повтор размещения после неопределённого сбоя может создать
// дублирующий ордер - решение о повторе принимает исполнитель сделки.
func (t *Throttled) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := t.limiters.Wait(ctx, categoryOrders); err != nil {
		return nil, err
	}

	return t.inner.PlaceOrder(ctx, req)
}

// FetchOrder получает состояние ордера с retry временных ошибок
func (t *Throttled) FetchOrder(ctx context.Context, symbol, orderID string) (*Order, error) {
	if err := t.limiters.Wait(ctx, categoryOrders); err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*Order, error) {
		return t.inner.FetchOrder(ctx, symbol, orderID)
	}, t.retryConfig())
}

// CancelOrder отменяет ордер с агрессивным retry.
//
// Зависший неотменённый ордер - прямой финансовый риск,
// поэтому отмену повторяем настойчиво.
func (t *Throttled) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := t.limiters.Wait(ctx, categoryOrders); err != nil {
		return err
	}

	cfg := retry.AggressiveConfig()
	cfg.RetryIf = retry.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		t.log.Warn("Retrying order cancellation",
			utils.OrderID(orderID),
			utils.Symbol(symbol),
			utils.Int("attempt", attempt),
			utils.Err(err),
		)
	}

	return retry.Do(ctx, func() error {
		return t.inner.CancelOrder(ctx, symbol, orderID)
	}, cfg)
}

// TradingFee возвращает комиссию обёрнутой биржи
func (t *Throttled) TradingFee(symbol string) float64 {
	return t.inner.TradingFee(symbol)
}

// Close закрывает обёрнутую биржу
func (t *Throttled) Close() error {
	return t.inner.Close()
}

// retryConfig стандартная retry-политика для market data запросов
func (t *Throttled) retryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.RetryIf = retry.IsRetryable
	return cfg
}
