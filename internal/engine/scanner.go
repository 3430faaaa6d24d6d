package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"arbibot/internal/config"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Сканер арбитражных возможностей
// ============================================================
//
// С фиксированным интервалом перебирает все упорядоченные пары бирж
// по каждому символу и ищет положительный чистый спред:
//
//	effective_buy  = ask × (1 + fee_buy)
//	effective_sell = bid × (1 - fee_sell)
//	спред > 0  ⇔  effective_sell > effective_buy
//
// Для каждой возможности проходом по стаканам вычисляется максимальный
// объём, исполнимый по котированным ценам в пределах капитального
// лимита, и композитный score. Результат хранится в ранжированном
// буфере ограниченного размера.

// opportunityBufferCap ограничивает число возможностей в буфере
const opportunityBufferCap = 100

// OpportunityScanner сканирует кэш рыночных данных
type OpportunityScanner struct {
	cache  *MarketDataCache
	scorer *Scorer
	log    *utils.Logger

	symbols []string
	fees    map[string]float64 // venue → комиссия тейкера

	minProfit   float64       // порог чистого спреда в долях
	maxNotional float64       // капитальный лимит возможности в USD
	staleness   time.Duration // максимальный возраст тикера (0 = без проверки)
	interval    time.Duration

	mu            sync.RWMutex
	opportunities []*Opportunity
	lastScan      time.Time
}

// NewOpportunityScanner создаёт сканер
func NewOpportunityScanner(
	cache *MarketDataCache,
	scorer *Scorer,
	cfg *config.Config,
	log *utils.Logger,
) *OpportunityScanner {
	fees := make(map[string]float64, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		fees[vc.Name] = vc.Fee
	}

	return &OpportunityScanner{
		cache:       cache,
		scorer:      scorer,
		log:         log.WithComponent("scanner"),
		symbols:     cfg.Trading.Symbols,
		fees:        fees,
		minProfit:   cfg.Trading.MinProfitThreshold,
		maxNotional: cfg.Trading.MaxTradeNotionalUSD,
		staleness:   cfg.Performance.StalenessThreshold,
		interval:    cfg.Performance.ScanInterval,
	}
}

// Run запускает цикл сканирования до отмены контекста
func (s *OpportunityScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("сканер запущен",
		utils.Float64("min_profit", s.minProfit),
		utils.Int("venues", len(s.fees)))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("сканер остановлен")
			return
		case <-ticker.C:
			s.Scan()
		}
	}
}

// Scan выполняет один проход по всем символам и парам бирж.
// Возвращает количество найденных возможностей.
func (s *OpportunityScanner) Scan() int {
	start := time.Now()
	var found []*Opportunity

	for _, symbol := range s.symbols {
		found = append(found, s.scanSymbol(symbol, start)...)
	}

	// Ранжирование по score, лучшие первыми
	sort.Slice(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	if len(found) > opportunityBufferCap {
		found = found[:opportunityBufferCap]
	}

	s.mu.Lock()
	s.opportunities = found
	s.lastScan = start
	s.mu.Unlock()

	RecordScan(time.Since(start), len(found))
	return len(found)
}

// scanSymbol перебирает все упорядоченные пары бирж для символа
func (s *OpportunityScanner) scanSymbol(symbol string, now time.Time) []*Opportunity {
	var result []*Opportunity

	for buyVenue := range s.fees {
		for sellVenue := range s.fees {
			if buyVenue == sellVenue {
				continue
			}
			if op := s.checkPair(symbol, buyVenue, sellVenue, now); op != nil {
				result = append(result, op)
			}
		}
	}
	return result
}

// checkPair проверяет одно направление (покупка на buyVenue, продажа на sellVenue)
func (s *OpportunityScanner) checkPair(symbol, buyVenue, sellVenue string, now time.Time) *Opportunity {
	buyTicker, ok := s.cache.Ticker(buyVenue, symbol)
	if !ok || s.isStale(buyTicker, now) {
		return nil
	}
	sellTicker, ok := s.cache.Ticker(sellVenue, symbol)
	if !ok || s.isStale(sellTicker, now) {
		return nil
	}

	ask := buyTicker.AskPrice
	bid := sellTicker.BidPrice
	if ask <= 0 || bid <= 0 {
		return nil
	}

	buyFee := s.fees[buyVenue]
	sellFee := s.fees[sellVenue]

	spreadPct := utils.CalculateNetSpread(ask, bid, buyFee, sellFee)
	RecordSpread(symbol, spreadPct)

	if spreadPct/100 < s.minProfit {
		return nil
	}

	maxQty := s.maxQuantity(symbol, buyVenue, sellVenue, ask, bid)
	if maxQty <= 0 {
		RecordOpportunity(symbol, false)
		return nil
	}

	effBuy := utils.EffectiveBuyPrice(ask, buyFee)
	effSell := utils.EffectiveSellPrice(bid, sellFee)

	op := &Opportunity{
		ID:                uuid.NewString(),
		Symbol:            symbol,
		BuyVenue:          buyVenue,
		SellVenue:         sellVenue,
		BuyPrice:          ask,
		SellPrice:         bid,
		BuyFee:            buyFee,
		SellFee:           sellFee,
		SpreadPct:         spreadPct,
		MaxQuantity:       maxQty,
		ProfitEstimateUSD: maxQty * (effSell - effBuy),
		DetectedAt:        now,
	}

	volatility := utils.Max(
		s.cache.Volatility(buyVenue, symbol),
		s.cache.Volatility(sellVenue, symbol),
	)
	op.Score = s.scorer.Score(op, volatility)

	RecordOpportunity(symbol, true)
	return op
}

// isStale проверяет возраст тикера против порога свежести
func (s *OpportunityScanner) isStale(t *venue.Ticker, now time.Time) bool {
	if s.staleness <= 0 {
		return false
	}
	return now.Sub(t.Timestamp) > s.staleness
}

// maxQuantity возвращает объём, исполнимый по котированным ценам:
// минимум из глубины asks не дороже котировки покупки, глубины bids
// не дешевле котировки продажи и капитального лимита
// MaxTradeNotionalUSD / ask. Проход по уровням останавливается на
// первом, не проходящем по цене. Сторона без стакана ограничивается
// только капитальным лимитом.
func (s *OpportunityScanner) maxQuantity(symbol, buyVenue, sellVenue string, ask, bid float64) float64 {
	maxQty := s.maxNotional / ask

	if book, ok := s.cache.OrderBook(buyVenue, symbol); ok && len(book.Asks) > 0 {
		var depth float64
		for _, level := range book.Asks {
			if level.Price > ask {
				break
			}
			depth += level.Volume
		}
		maxQty = utils.Min(maxQty, depth)
	}

	if book, ok := s.cache.OrderBook(sellVenue, symbol); ok && len(book.Bids) > 0 {
		var depth float64
		for _, level := range book.Bids {
			if level.Price < bid {
				break
			}
			depth += level.Volume
		}
		maxQty = utils.Min(maxQty, depth)
	}

	return maxQty
}

// Opportunities возвращает копию текущего ранжированного буфера
func (s *OpportunityScanner) Opportunities() []*Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Opportunity, len(s.opportunities))
	copy(result, s.opportunities)
	return result
}

// Top возвращает до n лучших возможностей
func (s *OpportunityScanner) Top(n int) []*Opportunity {
	ops := s.Opportunities()
	if len(ops) > n {
		ops = ops[:n]
	}
	return ops
}

// LastScan возвращает время последнего прохода
func (s *OpportunityScanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}
