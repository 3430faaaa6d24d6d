package engine

import (
	"context"
	"time"

	"arbibot/internal/config"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// ============================================================
// Фиды рыночных данных
// ============================================================
//
// Одна горутина на биржу: с фиксированным интервалом опрашивает
// тикеры и стаканы по всем торгуемым символам и пишет их в кэш.
// Ошибки опроса не останавливают фид - биржа могла на секунду
// стать недоступной, следующий тик повторит запрос.

// PriceFeed опрашивает биржи и наполняет кэш рыночных данных
type PriceFeed struct {
	venues  map[string]venue.Venue
	cache   *MarketDataCache
	symbols []string

	interval time.Duration
	depth    int

	log *utils.Logger
}

// NewPriceFeed создаёт фид
func NewPriceFeed(venues map[string]venue.Venue, cache *MarketDataCache, cfg *config.Config, log *utils.Logger) *PriceFeed {
	return &PriceFeed{
		venues:   venues,
		cache:    cache,
		symbols:  cfg.Trading.Symbols,
		interval: cfg.Performance.PriceUpdateInterval,
		depth:    cfg.Performance.OrderBookDepth,
		log:      log.WithComponent("feed"),
	}
}

// Run запускает опрос всех бирж до отмены контекста
func (f *PriceFeed) Run(ctx context.Context) {
	done := make(chan struct{}, len(f.venues))

	for name, v := range f.venues {
		go func(name string, v venue.Venue) {
			f.pollVenue(ctx, name, v)
			done <- struct{}{}
		}(name, v)
	}

	for range f.venues {
		<-done
	}
}

// pollVenue - цикл опроса одной биржи
func (f *PriceFeed) pollVenue(ctx context.Context, name string, v venue.Venue) {
	log := f.log.With(utils.Exchange(name))
	log.Info("фид запущен", utils.Int("symbols", len(f.symbols)))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("фид остановлен")
			return
		case <-ticker.C:
			f.pollOnce(ctx, name, v, log)
		}
	}
}

// pollOnce опрашивает тикеры и стаканы по всем символам
func (f *PriceFeed) pollOnce(ctx context.Context, name string, v venue.Venue, log *utils.Logger) {
	for _, symbol := range f.symbols {
		start := time.Now()
		t, err := v.FetchTicker(ctx, symbol)
		if err != nil {
			RecordFeedError(name, "ticker")
			log.Warn("ошибка опроса тикера", utils.Symbol(symbol), utils.Err(err))
			continue
		}
		RecordPriceUpdate(name, time.Since(start))
		f.cache.UpdateTicker(t)

		book, err := v.FetchOrderBook(ctx, symbol, f.depth)
		if err != nil {
			RecordFeedError(name, "order_book")
			log.Warn("ошибка опроса стакана", utils.Symbol(symbol), utils.Err(err))
			continue
		}
		f.cache.UpdateOrderBook(book)
	}
}
