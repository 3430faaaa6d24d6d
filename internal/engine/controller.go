package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"arbibot/internal/config"
	"arbibot/internal/models"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Контроллер арбитража
// ============================================================
//
// Связывает компоненты движка в единый цикл:
//
//	фиды → кэш → сканер → [gate → sizer → executor] → учёт результата
//
// Диспетчеризация идёт по ранжированному буферу сканера: лучшие
// возможности запускаются первыми. Частота запусков ограничена
// token bucket'ом, количество одновременных сделок - лимитом
// открытых позиций.

// Notifier публикует события движка (алерты, WebSocket)
type Notifier interface {
	Notify(n models.Notification)
}

// TradeStore сохраняет завершённые сделки
type TradeStore interface {
	SaveTrade(rec *models.TradeRecord) error
}

// Controller управляет торговым циклом
type Controller struct {
	cfg *config.Config
	log *utils.Logger

	venues   map[string]venue.Venue
	cache    *MarketDataCache
	scanner  *OpportunityScanner
	gate     *SafetyGate
	sizer    *PositionSizer
	executor *TradeExecutor
	success  *TrackingSuccess
	feed     *PriceFeed

	notifier Notifier
	store    TradeStore

	limiter *rate.Limiter

	mu        sync.Mutex
	enabled   bool
	startedAt time.Time

	tradeWG sync.WaitGroup
}

// NewController собирает движок из конфигурации и бирж
func NewController(cfg *config.Config, venues map[string]venue.Venue, log *utils.Logger) *Controller {
	cache := NewMarketDataCache(cfg.Performance.VolatilityWindow)
	success := NewTrackingSuccess()
	scorer := NewScorer(cfg.Scoring, success)
	gate := NewSafetyGate(cfg)

	c := &Controller{
		cfg:      cfg,
		log:      log.WithComponent("controller"),
		venues:   venues,
		cache:    cache,
		scanner:  NewOpportunityScanner(cache, scorer, cfg, log),
		gate:     gate,
		sizer:    NewPositionSizer(gate, venues, cache, cfg.Trading, log),
		executor: NewTradeExecutor(venues, cache, cfg.Trading, log),
		success:  success,
		feed:     NewPriceFeed(venues, cache, cfg, log),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Performance.DispatchRate), 1),
	}

	gate.OnBreaker(func(reason string) {
		BreakerTrips.WithLabelValues("global").Inc()
		c.log.Error("сработал глобальный circuit breaker", utils.String("reason", reason))
		c.notify(models.Notification{
			Type:      models.NotificationTypeBreaker,
			Severity:  models.SeverityCritical,
			Component: "safety",
			Message:   "Торговля остановлена: " + reason,
		})
	})

	return c
}

// SetNotifier подключает публикацию событий
func (c *Controller) SetNotifier(n Notifier) { c.notifier = n }

// SetTradeStore подключает сохранение сделок в БД
func (c *Controller) SetTradeStore(s TradeStore) { c.store = s }

// Gate возвращает предохранитель (для management API)
func (c *Controller) Gate() *SafetyGate { return c.gate }

// Scanner возвращает сканер (для management API)
func (c *Controller) Scanner() *OpportunityScanner { return c.scanner }

// Executor возвращает исполнитель (для management API)
func (c *Controller) Executor() *TradeExecutor { return c.executor }

// Run запускает фиды, сканер и цикл диспетчеризации.
// Блокируется до отмены контекста, после чего дожидается
// завершения всех активных сделок.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.startedAt = time.Now()
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		c.feed.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		c.scanner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		c.dispatchLoop(ctx)
	}()

	wg.Wait()
	c.tradeWG.Wait()
	c.log.Info("контроллер остановлен")
}

// Enable включает торговлю. Отказывает при взведённом breaker'е:
// сначала оператор обязан сбросить его явно.
func (c *Controller) Enable() error {
	if c.gate.BreakerActive() {
		return fmt.Errorf("cannot enable trading: %w", ErrBreakerActive)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	c.log.Info("торговля включена")
	return nil
}

// Disable выключает запуск новых сделок; активные доторговываются
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	c.log.Info("торговля выключена")
}

// IsEnabled возвращает текущий режим
func (c *Controller) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// dispatchLoop - главный цикл: с фиксированным интервалом запускает
// лучшие возможности из буфера сканера
func (c *Controller) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Performance.MainLoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.IsEnabled() {
				c.dispatch(ctx)
			}
		}
	}
}

// dispatch проходит по ранжированному буферу и запускает сделки
func (c *Controller) dispatch(ctx context.Context) {
	for _, op := range c.scanner.Opportunities() {
		active := c.executor.ActiveCount()
		if active >= c.cfg.Risk.MaxOpenPositions {
			return
		}
		if !c.limiter.Allow() {
			return
		}

		if err := c.gate.Approve(op, active); err != nil {
			RecordRejection(rejectionLabel(err))

			// Глобальные условия блокируют весь проход
			if errors.Is(err, ErrBreakerActive) ||
				errors.Is(err, ErrDailyTradeLimit) {
				c.log.Warn("диспетчеризация заблокирована", utils.Err(err))
				return
			}
			continue
		}

		qty, err := c.sizer.Quantity(ctx, op)
		if err != nil {
			c.log.Debug("возможность пропущена сайзером",
				utils.String("direction", op.Direction()), utils.Err(err))
			continue
		}

		c.tradeWG.Add(1)
		go func(op *Opportunity, qty float64) {
			defer c.tradeWG.Done()
			c.runTrade(ctx, op, qty)
		}(op, qty)
	}
}

// runTrade исполняет сделку и разносит результат по учёту
func (c *Controller) runTrade(ctx context.Context, op *Opportunity, qty float64) {
	rec, err := c.executor.Execute(ctx, op, qty)
	if err != nil {
		c.log.Error("ошибка запуска сделки",
			utils.String("direction", op.Direction()), utils.Err(err))
		return
	}

	direction := op.Direction()

	switch rec.Status {
	case StateCompleted:
		c.gate.RecordResult(direction, rec.ProfitUSD)
		c.success.Record(direction, rec.ProfitUSD > 0)
		c.notifyTrade(rec, models.NotificationTypeTradeCompleted, models.SeverityInfo)
	case StatePartiallyFilled:
		c.gate.RecordResult(direction, rec.ProfitUSD)
		c.success.Record(direction, false)
		c.notifyTrade(rec, models.NotificationTypePartialFill, models.SeverityWarning)
	case StateFailed:
		c.gate.RecordResult(direction, rec.ProfitUSD)
		c.success.Record(direction, false)
		c.notifyTrade(rec, models.NotificationTypeTradeFailed, models.SeverityError)
	case StateCancelled:
		// Ни одна нога не исполнилась: результата нет, счётчики не трогаем
	}

	if c.store != nil {
		if err := c.store.SaveTrade(rec); err != nil {
			c.log.Error("не удалось сохранить сделку",
				utils.String("trade_id", rec.ID), utils.Err(err))
		}
	}
}

// notifyTrade публикует уведомление о завершённой сделке
func (c *Controller) notifyTrade(rec *models.TradeRecord, ntype, severity string) {
	c.notify(models.Notification{
		Type:      ntype,
		Severity:  severity,
		Component: "executor",
		Message: fmt.Sprintf("%s %s→%s: %s, P&L %.2f USD",
			rec.Symbol, rec.BuyVenue, rec.SellVenue, rec.Status, rec.ProfitUSD),
		Meta: map[string]interface{}{
			"trade_id":   rec.ID,
			"profit_usd": rec.ProfitUSD,
			"status":     rec.Status,
		},
	})
}

// notify отправляет уведомление, если notifier подключён
func (c *Controller) notify(n models.Notification) {
	if c.notifier == nil {
		return
	}
	n.Timestamp = time.Now()
	c.notifier.Notify(n)
}

// ControllerStatus - снимок состояния движка для API
type ControllerStatus struct {
	Enabled       bool         `json:"enabled"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Venues        []string     `json:"venues"`
	Symbols       []string     `json:"symbols"`
	ActiveTrades  int          `json:"active_trades"`
	Opportunities int          `json:"opportunities"`
	LastScan      time.Time    `json:"last_scan"`
	Safety        SafetyStatus `json:"safety"`
	DryRun        bool         `json:"dry_run"`
}

// Status возвращает снимок состояния движка
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	startedAt := c.startedAt
	enabled := c.enabled
	c.mu.Unlock()

	var uptime float64
	if !startedAt.IsZero() {
		uptime = time.Since(startedAt).Seconds()
	}

	venueNames := make([]string, 0, len(c.venues))
	for name := range c.venues {
		venueNames = append(venueNames, name)
	}

	return ControllerStatus{
		Enabled:       enabled,
		UptimeSeconds: uptime,
		Venues:        venueNames,
		Symbols:       c.cfg.Trading.Symbols,
		ActiveTrades:  c.executor.ActiveCount(),
		Opportunities: len(c.scanner.Opportunities()),
		LastScan:      c.scanner.LastScan(),
		Safety:        c.gate.Status(),
		DryRun:        c.cfg.Trading.DryRun,
	}
}

// rejectionLabel сводит ошибку отказа к метке метрики
func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, ErrBreakerActive):
		return "breaker"
	case errors.Is(err, ErrDirectionCoolingDown):
		return "cooldown"
	case errors.Is(err, ErrRestricted):
		return "restricted"
	case errors.Is(err, ErrDailyTradeLimit):
		return "daily_trades"
	case errors.Is(err, ErrTooManyPositions):
		return "positions"
	case errors.Is(err, ErrSpreadBelowMargin):
		return "margin"
	case errors.Is(err, ErrPriceAnomaly):
		return "anomaly"
	default:
		return "other"
	}
}
