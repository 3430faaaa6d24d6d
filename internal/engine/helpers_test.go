package engine

import (
	"time"

	"arbibot/internal/config"
	"arbibot/internal/venue"
	"arbibot/pkg/utils"
)

// Общие помощники тестов движка

func testLogger() *utils.Logger {
	return utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"})
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			Symbols:                []string{"BTC/USDT"},
			MinProfitThreshold:     0.001,
			MaxTradeNotionalUSD:    100,
			MinTradeUSD:            10,
			MaxDailyTrades:         1000,
			OrderTimeout:           time.Second,
			OrderPollInterval:      10 * time.Millisecond,
			SlippageBudgetFraction: 0.5,
			AdaptiveScoreThreshold: 70,
			AdaptiveAggressiveness: 0.0005,
			DryRun:                 true,
		},
		Risk: config.RiskConfig{
			MaxDailyLossUSD:       500,
			MaxSingleTradeLossUSD: 50,
			MaxOpenPositions:      5,
			MaxConsecutiveLosses:  3,
			BreakerCooldown:       10 * time.Minute,
			PriceAnomalyThreshold: 0.05,
			SafetyMargin:          1.5,
			BaseTradeUSD:          100,
		},
		Performance: config.PerformanceConfig{
			PriceUpdateInterval: 100 * time.Millisecond,
			ScanInterval:        50 * time.Millisecond,
			MainLoopInterval:    time.Second,
			OrderBookDepth:      20,
			StalenessThreshold:  5 * time.Second,
			VolatilityWindow:    5 * time.Minute,
			DispatchRate:        10,
		},
		Scoring: config.ScoringConfig{
			ProfitWeight:            0.4,
			LiquidityWeight:         0.3,
			VolatilityWeight:        0.2,
			HistoricalSuccessWeight: 0.1,
			ProfitRefPct:            1.0,
			LiquidityRefUSD:         10000,
		},
		Venues: []config.VenueConfig{
			{Name: "binance", Fee: 0.001, RateLimit: 100, Burst: 100},
			{Name: "kraken", Fee: 0.001, RateLimit: 100, Burst: 100},
		},
	}
}

// seedTicker пишет в кэш тикер с текущим временем
func seedTicker(cache *MarketDataCache, venueName, symbol string, bid, ask float64) {
	cache.UpdateTicker(&venue.Ticker{
		Venue:     venueName,
		Symbol:    symbol,
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: (bid + ask) / 2,
		Timestamp: time.Now(),
	})
}

// seedBook пишет в кэш стакан
func seedBook(cache *MarketDataCache, venueName, symbol string, bids, asks []venue.PriceLevel) {
	cache.UpdateOrderBook(&venue.OrderBook{
		Venue:     venueName,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	})
}

// deepBook - стакан с большим объёмом на одном уровне (нулевое проскальзывание)
func deepBook(cache *MarketDataCache, venueName, symbol string, bid, ask float64) {
	seedBook(cache, venueName, symbol,
		[]venue.PriceLevel{{Price: bid, Volume: 1000}},
		[]venue.PriceLevel{{Price: ask, Volume: 1000}},
	)
}

// testOpportunity - готовая возможность для тестов исполнителя:
// покупка 45000 на binance, продажа 45100 на kraken, комиссии 0.1%
func testOpportunity() *Opportunity {
	return &Opportunity{
		ID:          "test-op",
		Symbol:      "BTC/USDT",
		BuyVenue:    "binance",
		SellVenue:   "kraken",
		BuyPrice:    45000,
		SellPrice:   45100,
		BuyFee:      0.001,
		SellFee:     0.001,
		SpreadPct:   utils.CalculateNetSpread(45000, 45100, 0.001, 0.001),
		MaxQuantity: 10,
		Score:       50,
		DetectedAt:  time.Now(),
	}
}
