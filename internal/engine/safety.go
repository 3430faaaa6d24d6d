package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"arbibot/internal/config"
	"arbibot/pkg/utils"
)

// ============================================================
// Предохранитель риск-менеджмента
// ============================================================
//
// Каждая сделка перед запуском проходит через SafetyGate.
// Gate ведёт суточный P&L, счётчик подряд идущих убытков и два
// уровня circuit breaker'ов:
//
//   - глобальный: останавливает всю торговлю, снимается только
//     ручным сбросом через management API
//   - гранулярный: блокирует одно направление (symbol, buy, sell)
//     на время cooldown'а после крупного убытка
//
// Суточные счётчики сбрасываются при смене календарного дня (UTC).

// Причины отказа в запуске сделки
var (
	ErrBreakerActive        = errors.New("global circuit breaker active")
	ErrDirectionCoolingDown = errors.New("direction circuit breaker cooling down")
	ErrRestricted           = errors.New("symbol or venue is restricted")
	ErrDailyTradeLimit      = errors.New("daily trade limit reached")
	ErrTooManyPositions     = errors.New("max open positions reached")
	ErrSpreadBelowMargin    = errors.New("spread below safety margin")
	ErrPriceAnomaly         = errors.New("price anomaly between venues")
)

// SafetyGate - потокобезопасный предохранитель торговли
type SafetyGate struct {
	mu sync.Mutex

	risk           config.RiskConfig
	minTradeUSD    float64
	maxDailyTrades int
	minProfit      float64

	dailyPnl    float64
	dailyTrades int
	dayAnchor   time.Time

	consecutiveLosses int

	globalTripped   bool
	globalReason    string
	globalTrippedAt time.Time

	granular map[string]time.Time // направление → истечение cooldown'а

	restrictedSymbols map[string]bool
	restrictedVenues  map[string]bool

	onBreaker func(reason string) // уведомление о срабатывании, может быть nil

	now func() time.Time
}

// NewSafetyGate создаёт предохранитель по конфигурации
func NewSafetyGate(cfg *config.Config) *SafetyGate {
	restrictedSymbols := make(map[string]bool)
	for _, s := range cfg.Risk.RestrictedSymbols {
		restrictedSymbols[utils.NormalizeSymbol(s)] = true
	}
	restrictedVenues := make(map[string]bool)
	for _, v := range cfg.Risk.RestrictedVenues {
		restrictedVenues[utils.NormalizeVenue(v)] = true
	}

	return &SafetyGate{
		risk:              cfg.Risk,
		minTradeUSD:       cfg.Trading.MinTradeUSD,
		maxDailyTrades:    cfg.Trading.MaxDailyTrades,
		minProfit:         cfg.Trading.MinProfitThreshold,
		dayAnchor:         time.Now(),
		granular:          make(map[string]time.Time),
		restrictedSymbols: restrictedSymbols,
		restrictedVenues:  restrictedVenues,
		now:               time.Now,
	}
}

// OnBreaker устанавливает обработчик срабатывания глобального breaker'а
func (g *SafetyGate) OnBreaker(fn func(reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onBreaker = fn
}

// Approve проверяет возможность против всех риск-лимитов.
// openPositions - текущее число активных сделок.
func (g *SafetyGate) Approve(op *Opportunity, openPositions int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)

	if g.globalTripped {
		return fmt.Errorf("%w: %s", ErrBreakerActive, g.globalReason)
	}

	if g.dailyTrades >= g.maxDailyTrades {
		return fmt.Errorf("%w: %d", ErrDailyTradeLimit, g.dailyTrades)
	}

	if openPositions >= g.risk.MaxOpenPositions {
		return fmt.Errorf("%w: %d", ErrTooManyPositions, openPositions)
	}

	if g.restrictedSymbols[utils.NormalizeSymbol(op.Symbol)] {
		return fmt.Errorf("%w: %s", ErrRestricted, op.Symbol)
	}
	if g.restrictedVenues[op.BuyVenue] || g.restrictedVenues[op.SellVenue] {
		return fmt.Errorf("%w: %s/%s", ErrRestricted, op.BuyVenue, op.SellVenue)
	}

	if until, ok := g.granular[op.Direction()]; ok {
		if now.Before(until) {
			return fmt.Errorf("%w: %s until %s",
				ErrDirectionCoolingDown, op.Direction(), until.Format(time.RFC3339))
		}
		delete(g.granular, op.Direction())
	}

	// Аномальное расхождение цен относительно mid-цены - вероятная
	// ошибка данных или остановка торгов на одной из бирж
	if mid := (op.BuyPrice + op.SellPrice) / 2; mid > 0 {
		deviation := math.Abs(op.SellPrice-op.BuyPrice) / mid
		if deviation > g.risk.PriceAnomalyThreshold {
			return fmt.Errorf("%w: deviation %.2f%%", ErrPriceAnomaly, deviation*100)
		}
	}

	// Запас над порогом: спред должен покрывать профит с множителем
	if op.SpreadPct/100 < g.minProfit*g.risk.SafetyMargin {
		return fmt.Errorf("%w: %.4f%% < %.4f%%",
			ErrSpreadBelowMargin, op.SpreadPct, g.minProfit*g.risk.SafetyMargin*100)
	}

	return nil
}

// SizeUSD возвращает динамический размер сделки.
//
// profitPct - чистый спред возможности в процентах, volatility -
// относительная волатильность mid-цены (доля от цены).
// Базовый размер уменьшается вдвое за каждый подряд идущий убыток,
// растёт со спредом сверх порога профита и падает с волатильностью.
// Результат зажат в [MinTradeUSD, 2 × BaseTradeUSD].
func (g *SafetyGate) SizeUSD(profitPct, volatility float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	factor := 1.0
	if g.consecutiveLosses > 0 {
		factor = 1 / math.Pow(2, float64(g.consecutiveLosses))
	}
	if threshold := g.minProfit * 100; threshold > 0 && profitPct > threshold {
		// Спред вдвое выше порога даёт +25%, потолок +100%
		factor *= 1 + utils.Min((profitPct/threshold-1)*0.25, 1)
	}
	if volatility > 0 {
		// 1% относительной волатильности режет размер вдвое
		factor /= 1 + volatility*100
	}

	return utils.Clamp(g.risk.BaseTradeUSD*factor, g.minTradeUSD, 2*g.risk.BaseTradeUSD)
}

// RecordResult учитывает результат завершённой сделки.
//
// Убыток увеличивает счётчик подряд идущих потерь; профит сбрасывает
// его. Крупный убыток блокирует направление гранулярным breaker'ом,
// серия убытков останавливает всю торговлю.
func (g *SafetyGate) RecordResult(direction string, pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)

	g.dailyPnl += pnl
	g.dailyTrades++

	// Пробитый суточный лимит останавливает всю торговлю до ручного
	// сброса: восстановление P&L или смена дня breaker не снимают
	if g.risk.MaxDailyLossUSD > 0 && g.dailyPnl <= -g.risk.MaxDailyLossUSD {
		g.tripGlobal(fmt.Sprintf("суточный убыток %.2f USD превысил лимит %.2f USD",
			-g.dailyPnl, g.risk.MaxDailyLossUSD))
	}

	if pnl > 0 {
		g.consecutiveLosses = 0
		return
	}
	if pnl == 0 {
		return
	}

	g.consecutiveLosses++

	if -pnl >= g.risk.MaxSingleTradeLossUSD {
		g.granular[direction] = now.Add(g.risk.BreakerCooldown)
	}

	if g.consecutiveLosses >= g.risk.MaxConsecutiveLosses {
		g.tripGlobal(fmt.Sprintf("%d убыточных сделок подряд", g.consecutiveLosses))
	}
}

// TripGlobal вручную останавливает торговлю (аварийная остановка)
func (g *SafetyGate) TripGlobal(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tripGlobal(reason)
}

// tripGlobal взводит глобальный breaker. Вызывается под lock'ом.
func (g *SafetyGate) tripGlobal(reason string) {
	if g.globalTripped {
		return
	}
	g.globalTripped = true
	g.globalReason = reason
	g.globalTrippedAt = g.now()

	if g.onBreaker != nil {
		// Асинхронно: обработчику разрешено обращаться к gate
		go g.onBreaker(reason)
	}
}

// ResetBreaker снимает глобальный breaker и счётчик убытков.
// Гранулярные cooldown'ы тоже сбрасываются.
func (g *SafetyGate) ResetBreaker() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.globalTripped = false
	g.globalReason = ""
	g.consecutiveLosses = 0
	g.granular = make(map[string]time.Time)
}

// BreakerActive возвращает true если глобальный breaker взведён
func (g *SafetyGate) BreakerActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.globalTripped
}

// rollover сбрасывает суточные счётчики при смене дня. Под lock'ом.
func (g *SafetyGate) rollover(now time.Time) {
	if utils.IsSameDay(now, g.dayAnchor) {
		return
	}
	g.dailyPnl = 0
	g.dailyTrades = 0
	g.dayAnchor = now
}

// SafetyStatus - снимок состояния предохранителя для API
type SafetyStatus struct {
	DailyPnl          float64              `json:"daily_pnl"`
	DailyTrades       int                  `json:"daily_trades"`
	ConsecutiveLosses int                  `json:"consecutive_losses"`
	BreakerActive     bool                 `json:"breaker_active"`
	BreakerReason     string               `json:"breaker_reason,omitempty"`
	BreakerSince      *time.Time           `json:"breaker_since,omitempty"`
	Cooldowns         map[string]time.Time `json:"cooldowns,omitempty"`
	CurrentSizeUSD    float64              `json:"current_size_usd"`
	RestrictedSymbols []string             `json:"restricted_symbols,omitempty"`
	RestrictedVenues  []string             `json:"restricted_venues,omitempty"`
}

// Status возвращает снимок текущего состояния
func (g *SafetyGate) Status() SafetyStatus {
	size := g.SizeUSD(0, 0)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.rollover(now)

	status := SafetyStatus{
		DailyPnl:          g.dailyPnl,
		DailyTrades:       g.dailyTrades,
		ConsecutiveLosses: g.consecutiveLosses,
		BreakerActive:     g.globalTripped,
		BreakerReason:     g.globalReason,
		CurrentSizeUSD:    size,
	}

	if g.globalTripped {
		since := g.globalTrippedAt
		status.BreakerSince = &since
	}

	if len(g.granular) > 0 {
		status.Cooldowns = make(map[string]time.Time, len(g.granular))
		for dir, until := range g.granular {
			if now.Before(until) {
				status.Cooldowns[dir] = until
			}
		}
	}

	for s := range g.restrictedSymbols {
		status.RestrictedSymbols = append(status.RestrictedSymbols, s)
	}
	for v := range g.restrictedVenues {
		status.RestrictedVenues = append(status.RestrictedVenues, v)
	}

	return status
}

// RestrictSymbol добавляет символ в чёрный список на лету
func (g *SafetyGate) RestrictSymbol(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restrictedSymbols[utils.NormalizeSymbol(symbol)] = true
}

// UnrestrictSymbol убирает символ из чёрного списка
func (g *SafetyGate) UnrestrictSymbol(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.restrictedSymbols, utils.NormalizeSymbol(symbol))
}

// RestrictVenue добавляет биржу в чёрный список на лету
func (g *SafetyGate) RestrictVenue(venueName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restrictedVenues[utils.NormalizeVenue(venueName)] = true
}

// UnrestrictVenue убирает биржу из чёрного списка
func (g *SafetyGate) UnrestrictVenue(venueName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.restrictedVenues, utils.NormalizeVenue(venueName))
}
