package engine

import (
	"context"
	"fmt"

	"arbibot/internal/config"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Расчёт объёма сделки
// ============================================================
//
// Объём определяется как минимум из:
//   - динамического размера в USD от SafetyGate
//   - максимального нотионала сделки из конфигурации
//   - глубины стаканов (MaxQuantity возможности)
//   - баланса котировочной валюты на бирже покупки
//   - баланса базовой валюты на бирже продажи
//
// Результат округляется вниз до lot size. Сделка меньше MinTradeUSD
// не имеет смысла (комиссии съедят профит) и отклоняется.

// defaultLotSize - шаг объёма по умолчанию, пока биржа не сообщила свой
const defaultLotSize = 0.000001

// PositionSizer вычисляет объём сделки
type PositionSizer struct {
	gate   *SafetyGate
	venues map[string]venue.Venue
	cache  *MarketDataCache
	cfg    config.TradingConfig
	log    *utils.Logger
}

// NewPositionSizer создаёт сайзер
func NewPositionSizer(gate *SafetyGate, venues map[string]venue.Venue, cache *MarketDataCache, cfg config.TradingConfig, log *utils.Logger) *PositionSizer {
	return &PositionSizer{
		gate:   gate,
		venues: venues,
		cache:  cache,
		cfg:    cfg,
		log:    log.WithComponent("sizer"),
	}
}

// Quantity возвращает объём базовой валюты для исполнения возможности.
// Ошибка означает, что безопасный объём ниже минимального размера сделки.
func (s *PositionSizer) Quantity(ctx context.Context, op *Opportunity) (float64, error) {
	if op.BuyPrice <= 0 {
		return 0, fmt.Errorf("invalid buy price: %v", op.BuyPrice)
	}

	// Динамический размер зависит от спреда возможности и текущей
	// относительной волатильности более волатильной из двух бирж
	vol := utils.Max(
		s.cache.Volatility(op.BuyVenue, op.Symbol),
		s.cache.Volatility(op.SellVenue, op.Symbol),
	)
	targetUSD := utils.Min(s.gate.SizeUSD(op.SpreadPct, vol/op.BuyPrice), s.cfg.MaxTradeNotionalUSD)
	qty := targetUSD / op.BuyPrice

	if op.MaxQuantity > 0 {
		qty = utils.Min(qty, op.MaxQuantity)
	}

	// Ограничение балансами: покупка требует котировочную валюту,
	// продажа - базовую на другой бирже
	base := utils.ExtractBaseCurrency(op.Symbol)
	quote := utils.ExtractQuoteCurrency(op.Symbol)

	if buyVenue, ok := s.venues[op.BuyVenue]; ok {
		quoteBalance, err := buyVenue.FetchBalance(ctx, quote)
		if err != nil {
			return 0, fmt.Errorf("fetch %s balance on %s: %w", quote, op.BuyVenue, err)
		}
		affordable := quoteBalance / utils.EffectiveBuyPrice(op.BuyPrice, op.BuyFee)
		qty = utils.Min(qty, affordable)
	}

	if sellVenue, ok := s.venues[op.SellVenue]; ok {
		baseBalance, err := sellVenue.FetchBalance(ctx, base)
		if err != nil {
			return 0, fmt.Errorf("fetch %s balance on %s: %w", base, op.SellVenue, err)
		}
		qty = utils.Min(qty, baseBalance)
	}

	qty = utils.RoundToLotSize(qty, defaultLotSize)

	if qty*op.BuyPrice < s.cfg.MinTradeUSD {
		return 0, fmt.Errorf("sized notional %.2f USD below minimum %.2f USD",
			qty*op.BuyPrice, s.cfg.MinTradeUSD)
	}

	return qty, nil
}
