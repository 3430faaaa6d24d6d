package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"arbibot/internal/config"
	"arbibot/internal/models"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Исполнитель арбитражных сделок
// ============================================================
//
// Исполнение двуногое: limit-ордер на покупку по Ask дешёвой биржи
// и limit-ордер на продажу по Bid дорогой. Ноги размещаются
// конкурентно; если одна не разместилась, вторая немедленно
// отменяется. После размещения обе ноги опрашиваются до исполнения
// либо до таймаута, по таймауту неисполненные ордера отменяются.
//
// Учёт риска консервативный: неисполненная (незахеджированная) нога
// и неудача до единого исполнения разносятся как убыток в размере
// полного нотионала покупки - worst-case экспозиция, а не фактически
// реализованная потеря.

// Лимиты буфера завершённых сделок: при достижении потолка
// хвост истории обрезается до нижней отметки
const (
	completedHighWater = 1000
	completedLowWater  = 500
)

// TradeExecutor исполняет возможности
type TradeExecutor struct {
	venues map[string]venue.Venue
	cache  *MarketDataCache
	cfg    config.TradingConfig
	log    *utils.Logger

	mu        sync.RWMutex
	active    map[string]*Trade
	completed []*models.TradeRecord
}

// NewTradeExecutor создаёт исполнитель
func NewTradeExecutor(venues map[string]venue.Venue, cache *MarketDataCache, cfg config.TradingConfig, log *utils.Logger) *TradeExecutor {
	return &TradeExecutor{
		venues: venues,
		cache:  cache,
		cfg:    cfg,
		log:    log.WithComponent("executor"),
		active: make(map[string]*Trade),
	}
}

// Execute исполняет возможность заданным объёмом.
//
// Возвращает запись сделки с финальным статусом. Ошибка возвращается
// только при некорректных аргументах; торговые неудачи отражаются
// в Status и FailReason записи.
func (e *TradeExecutor) Execute(ctx context.Context, op *Opportunity, qty float64) (*models.TradeRecord, error) {
	buyVenue, ok := e.venues[op.BuyVenue]
	if !ok {
		return nil, fmt.Errorf("unknown buy venue: %s", op.BuyVenue)
	}
	sellVenue, ok := e.venues[op.SellVenue]
	if !ok {
		return nil, fmt.Errorf("unknown sell venue: %s", op.SellVenue)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("invalid quantity: %v", qty)
	}

	trade := newTrade(uuid.NewString(), op, qty)
	e.addActive(trade)

	e.log.Info("запуск сделки",
		utils.String("trade_id", trade.ID),
		utils.Symbol(op.Symbol),
		utils.String("direction", op.Direction()),
		utils.Float64("quantity", qty),
		utils.Float64("spread_pct", op.SpreadPct),
		utils.Float64("score", op.Score))

	// Предторговая оценка проскальзывания по стаканам
	if err := e.checkSlippage(op, qty); err != nil {
		trade.FailReason = err.Error()
		e.mustTransition(trade, StateFailed)
		return e.finalize(trade, -qty*op.BuyPrice, 0), nil
	}

	buyPrice, sellPrice := e.legPrices(op)

	// Конкурентное размещение обеих ног. Состояния проигрываются
	// в каноническом порядке после того, как оба размещения вернулись.
	e.mustTransition(trade, StateExecutingBuy)

	var buyOrder, sellOrder *venue.Order
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := e.placeLeg(gctx, buyVenue, op.Symbol, venue.SideBuy, qty, buyPrice)
		if err != nil {
			return fmt.Errorf("buy leg on %s: %w", op.BuyVenue, err)
		}
		buyOrder = o
		return nil
	})
	g.Go(func() error {
		o, err := e.placeLeg(gctx, sellVenue, op.Symbol, venue.SideSell, qty, sellPrice)
		if err != nil {
			return fmt.Errorf("sell leg on %s: %w", op.SellVenue, err)
		}
		sellOrder = o
		return nil
	})

	if err := g.Wait(); err != nil {
		return e.abortPlacement(trade, buyVenue, sellVenue, buyOrder, sellOrder, err), nil
	}

	trade.mu.Lock()
	trade.BuyOrder = buyOrder
	trade.SellOrder = sellOrder
	trade.mu.Unlock()

	for _, st := range []string{StateBuyPlaced, StateExecutingSell, StateSellPlaced, StateMonitoring} {
		e.mustTransition(trade, st)
	}

	return e.monitor(ctx, trade, buyVenue, sellVenue), nil
}

// legPrices возвращает цены ног с учётом адаптивного ценообразования:
// для высоко-скоровых возможностей цены сдвигаются агрессивнее,
// чтобы повысить вероятность немедленного исполнения.
func (e *TradeExecutor) legPrices(op *Opportunity) (buyPrice, sellPrice float64) {
	buyPrice, sellPrice = op.BuyPrice, op.SellPrice
	if op.Score > e.cfg.AdaptiveScoreThreshold {
		buyPrice *= 1 + e.cfg.AdaptiveAggressiveness
		sellPrice *= 1 - e.cfg.AdaptiveAggressiveness
	}
	return buyPrice, sellPrice
}

// placeLeg размещает одну ногу и записывает латентность
func (e *TradeExecutor) placeLeg(ctx context.Context, v venue.Venue, symbol, side string, qty, price float64) (*venue.Order, error) {
	start := time.Now()
	order, err := v.PlaceOrder(ctx, venue.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     venue.OrderTypeLimit,
		Quantity: qty,
		Price:    price,
	})
	OrderPlacementLatency.WithLabelValues(v.Name(), side).
		Observe(float64(time.Since(start).Microseconds()) / 1000)
	return order, err
}

// abortPlacement обрабатывает ошибку размещения: отменяет уцелевшую
// ногу (sibling cancellation) и закрывает сделку. Неудача до единого
// исполнения учитывается полным нотионалом покупки.
func (e *TradeExecutor) abortPlacement(trade *Trade, buyVenue, sellVenue venue.Venue, buyOrder, sellOrder *venue.Order, placeErr error) *models.TradeRecord {
	op := trade.Opportunity
	trade.FailReason = placeErr.Error()
	worstCase := -trade.Quantity * op.BuyPrice

	e.log.Error("ошибка размещения ног",
		utils.String("trade_id", trade.ID),
		utils.Symbol(op.Symbol),
		utils.Err(placeErr))

	switch {
	case buyOrder != nil:
		// Покупка размещена, продажа нет - отменяем покупку
		e.mustTransition(trade, StateBuyPlaced)
		e.cancelLeg(buyVenue, op.Symbol, buyOrder.ID)

		final := e.refetch(buyVenue, op.Symbol, buyOrder)
		trade.mu.Lock()
		trade.BuyOrder = final
		trade.mu.Unlock()

		if final.FilledQty > 0 {
			// Покупка успела исполниться до отмены: на балансе
			// осталась базовая валюта без парной продажи
			fees := legFee(final, op.BuyFee)
			e.mustTransition(trade, StatePartiallyFilled)
			return e.finalize(trade, -final.FilledQty*final.AvgFillPrice-fees, fees)
		}
		e.mustTransition(trade, StateFailed)
		return e.finalize(trade, worstCase, 0)

	case sellOrder != nil:
		// Продажа размещена, покупка нет - отменяем продажу
		e.cancelLeg(sellVenue, op.Symbol, sellOrder.ID)

		final := e.refetch(sellVenue, op.Symbol, sellOrder)
		trade.mu.Lock()
		trade.SellOrder = final
		trade.mu.Unlock()

		if final.FilledQty > 0 {
			trade.FailReason = fmt.Sprintf("%s; sell leg filled %.8f before cancel",
				placeErr.Error(), final.FilledQty)
		}
		e.mustTransition(trade, StateFailed)
		return e.finalize(trade, worstCase, 0)

	default:
		e.mustTransition(trade, StateFailed)
		return e.finalize(trade, worstCase, 0)
	}
}

// monitor опрашивает обе ноги до исполнения или таймаута
func (e *TradeExecutor) monitor(ctx context.Context, trade *Trade, buyVenue, sellVenue venue.Venue) *models.TradeRecord {
	op := trade.Opportunity
	deadline := time.Now().Add(e.cfg.OrderTimeout)

	ticker := time.NewTicker(e.cfg.OrderPollInterval)
	defer ticker.Stop()

	buyOrder, sellOrder := trade.BuyOrder, trade.SellOrder

	for {
		buyOrder = e.refetch(buyVenue, op.Symbol, buyOrder)
		sellOrder = e.refetch(sellVenue, op.Symbol, sellOrder)

		trade.mu.Lock()
		trade.BuyOrder = buyOrder
		trade.SellOrder = sellOrder
		trade.mu.Unlock()

		if buyOrder.IsDone() && sellOrder.IsDone() {
			break
		}

		if time.Now().After(deadline) {
			// Таймаут: снимаем неисполненные ордера
			if !buyOrder.IsDone() {
				e.cancelLeg(buyVenue, op.Symbol, buyOrder.ID)
				buyOrder = e.refetch(buyVenue, op.Symbol, buyOrder)
			}
			if !sellOrder.IsDone() {
				e.cancelLeg(sellVenue, op.Symbol, sellOrder.ID)
				sellOrder = e.refetch(sellVenue, op.Symbol, sellOrder)
			}
			trade.mu.Lock()
			trade.BuyOrder = buyOrder
			trade.SellOrder = sellOrder
			trade.mu.Unlock()
			break
		}

		select {
		case <-ctx.Done():
			// Снимаем только неисполненные ноги
			if !buyOrder.IsDone() {
				e.cancelLeg(buyVenue, op.Symbol, buyOrder.ID)
			}
			if !sellOrder.IsDone() {
				e.cancelLeg(sellVenue, op.Symbol, sellOrder.ID)
			}
			trade.FailReason = "shutdown"
		case <-ticker.C:
			continue
		}
		break
	}

	return e.settle(trade, buyOrder, sellOrder)
}

// settle вычисляет результат сделки и закрывает её
func (e *TradeExecutor) settle(trade *Trade, buyOrder, sellOrder *venue.Order) *models.TradeRecord {
	op := trade.Opportunity

	fees := legFee(buyOrder, op.BuyFee) + legFee(sellOrder, op.SellFee)
	matched := utils.Min(buyOrder.FilledQty, sellOrder.FilledQty)

	// Профит считается по фактическим ценам исполнения
	pnl := matched*(sellOrder.AvgFillPrice-buyOrder.AvgFillPrice) - fees

	// Незахеджированный остаток любой ноги учитывается полным
	// нотионалом как worst-case экспозиция
	switch {
	case buyOrder.FilledQty > matched:
		pnl -= (buyOrder.FilledQty - matched) * buyOrder.AvgFillPrice
	case sellOrder.FilledQty > matched:
		pnl -= (sellOrder.FilledQty - matched) * sellOrder.AvgFillPrice
	}

	switch {
	case buyOrder.IsFilled() && sellOrder.IsFilled():
		e.mustTransition(trade, StateCompleted)
	case buyOrder.FilledQty == 0 && sellOrder.FilledQty == 0:
		if trade.FailReason == "" {
			trade.FailReason = "no fills before timeout"
		}
		e.mustTransition(trade, StateCancelled)
		pnl = -fees
	default:
		if trade.FailReason == "" {
			trade.FailReason = fmt.Sprintf("filled buy %.8f / sell %.8f of %.8f",
				buyOrder.FilledQty, sellOrder.FilledQty, trade.Quantity)
		}
		e.mustTransition(trade, StatePartiallyFilled)
	}

	return e.finalize(trade, pnl, fees)
}

// finalize снимает сделку с учёта и строит запись для БД
func (e *TradeExecutor) finalize(trade *Trade, pnl, fees float64) *models.TradeRecord {
	trade.mu.Lock()
	trade.ProfitUSD = pnl
	trade.Fees = fees
	op := trade.Opportunity

	rec := &models.TradeRecord{
		ID:          trade.ID,
		Symbol:      op.Symbol,
		BuyVenue:    op.BuyVenue,
		SellVenue:   op.SellVenue,
		Quantity:    trade.Quantity,
		Fees:        fees,
		ProfitUSD:   pnl,
		Score:       op.Score,
		Status:      trade.state,
		FailReason:  trade.FailReason,
		StartedAt:   trade.StartedAt,
		CompletedAt: trade.CompletedAt,
	}
	if trade.BuyOrder != nil {
		rec.BuyPrice = trade.BuyOrder.AvgFillPrice
		rec.Quantity = utils.Min(trade.Quantity, trade.BuyOrder.FilledQty)
	}
	if trade.SellOrder != nil {
		rec.SellPrice = trade.SellOrder.AvgFillPrice
	}
	trade.mu.Unlock()

	e.mu.Lock()
	delete(e.active, trade.ID)
	e.completed = append(e.completed, rec)
	if len(e.completed) > completedHighWater {
		e.completed = e.completed[len(e.completed)-completedLowWater:]
	}
	e.mu.Unlock()

	ActiveTrades.Set(float64(e.ActiveCount()))
	RecordTradeResult(rec.Symbol, rec.Status, pnl)

	e.log.Info("сделка закрыта",
		utils.String("trade_id", rec.ID),
		utils.Symbol(rec.Symbol),
		utils.State(rec.Status),
		utils.PNL(pnl),
		utils.Float64("fees", fees),
		utils.Latency(rec.DurationMs()))

	return rec
}

// checkSlippage отклоняет сделку, если ожидаемое проскальзывание
// съедает больше разрешённой доли профита
func (e *TradeExecutor) checkSlippage(op *Opportunity, qty float64) error {
	buySlip, sellSlip := e.EstimateSlippage(op, qty)

	effBuy := utils.EffectiveBuyPrice(op.BuyPrice, op.BuyFee)
	effSell := utils.EffectiveSellPrice(op.SellPrice, op.SellFee)
	expectedProfit := qty * (effSell - effBuy)

	slipCost := (buySlip + sellSlip) * qty * op.BuyPrice
	budget := e.cfg.SlippageBudgetFraction * expectedProfit

	if slipCost > budget {
		return fmt.Errorf("high estimated slippage: %.4f USD exceeds budget %.4f USD", slipCost, budget)
	}
	return nil
}

// EstimateSlippage оценивает проскальзывание обеих ног проходом
// по кэшированным стаканам. Возвращает доли (0.01 = 1%).
// При отсутствии стакана или недостаточной глубине - 1.0 (100%),
// что гарантированно отклонит сделку.
func (e *TradeExecutor) EstimateSlippage(op *Opportunity, qty float64) (buySlip, sellSlip float64) {
	buySlip, sellSlip = 1.0, 1.0

	if book, ok := e.cache.OrderBook(op.BuyVenue, op.Symbol); ok {
		_, filled, slipPct := utils.SimulateMarketBuy(toLevels(book.Asks), qty)
		if filled >= qty {
			buySlip = slipPct / 100
		}
	}
	if book, ok := e.cache.OrderBook(op.SellVenue, op.Symbol); ok {
		_, filled, slipPct := utils.SimulateMarketSell(toLevels(book.Bids), qty)
		if filled >= qty {
			sellSlip = utils.Abs(slipPct) / 100
		}
	}
	return buySlip, sellSlip
}

// ============================================================
// Учёт сделок
// ============================================================

// addActive регистрирует сделку
func (e *TradeExecutor) addActive(trade *Trade) {
	e.mu.Lock()
	e.active[trade.ID] = trade
	e.mu.Unlock()
	ActiveTrades.Set(float64(e.ActiveCount()))
}

// ActiveCount возвращает число сделок в работе
func (e *TradeExecutor) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.active)
}

// ActiveTrades возвращает снимки сделок в работе
func (e *TradeExecutor) ActiveTrades() []TradeSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]TradeSnapshot, 0, len(e.active))
	for _, trade := range e.active {
		result = append(result, trade.Snapshot())
	}
	return result
}

// CompletedTrades возвращает до limit последних завершённых сделок,
// новые первыми
func (e *TradeExecutor) CompletedTrades(limit int) []*models.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.completed)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]*models.TradeRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, e.completed[i])
	}
	return result
}

// ============================================================
// Вспомогательные функции
// ============================================================

// mustTransition применяет переход; недопустимый переход означает
// ошибку в логике исполнителя и логируется как error
func (e *TradeExecutor) mustTransition(trade *Trade, to string) {
	if err := trade.transition(to); err != nil {
		e.log.Error("нарушение машины состояний",
			utils.String("trade_id", trade.ID),
			utils.Err(err))
	}
}

// cancelLeg отменяет ордер со свежим контекстом: отмена обязана
// дойти до биржи даже при остановке приложения
func (e *TradeExecutor) cancelLeg(v venue.Venue, symbol, orderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := v.CancelOrder(ctx, symbol, orderID); err != nil {
		e.log.Error("не удалось отменить ордер",
			utils.Exchange(v.Name()),
			utils.OrderID(orderID),
			utils.Err(err))
	}
}

// refetch обновляет состояние ордера; при ошибке возвращает прежнее
func (e *TradeExecutor) refetch(v venue.Venue, symbol string, order *venue.Order) *venue.Order {
	updated, err := v.FetchOrder(context.Background(), symbol, order.ID)
	if err != nil {
		e.log.Warn("не удалось обновить ордер",
			utils.Exchange(v.Name()),
			utils.OrderID(order.ID),
			utils.Err(err))
		return order
	}
	return updated
}

// legFee возвращает комиссию ноги: фактическую от биржи либо расчётную
func legFee(order *venue.Order, fee float64) float64 {
	if order == nil {
		return 0
	}
	if order.Fee > 0 {
		return order.Fee
	}
	return order.FilledQty * order.AvgFillPrice * fee
}

// toLevels конвертирует уровни стакана в формат математических утилит
func toLevels(levels []venue.PriceLevel) []utils.OrderBookLevel {
	result := make([]utils.OrderBookLevel, len(levels))
	for i, l := range levels {
		result[i] = utils.OrderBookLevel{Price: l.Price, Volume: l.Volume}
	}
	return result
}
