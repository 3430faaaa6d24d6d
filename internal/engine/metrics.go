package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ производительности в production

// ============ Метрики сканера ============

// ScanLatency - длительность одного прохода сканера
var ScanLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbibot",
		Subsystem: "scanner",
		Name:      "scan_latency_ms",
		Help:      "Duration of a full opportunity scan in milliseconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50},
	},
)

// OpportunitiesInBuffer - размер ранжированного буфера после прохода
var OpportunitiesInBuffer = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbibot",
		Subsystem: "scanner",
		Name:      "opportunities_in_buffer",
		Help:      "Number of opportunities in the ranked buffer after last scan",
	},
)

// OpportunitiesDetected - обнаруженные возможности
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbibot",
		Subsystem: "scanner",
		Name:      "opportunities_detected_total",
		Help:      "Number of arbitrage opportunities detected",
	},
	[]string{"symbol", "tradeable"}, // tradeable: yes, no (нет глубины)
)

// SpreadObserved - наблюдаемые чистые спреды
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbibot",
		Subsystem: "scanner",
		Name:      "net_spread_percent",
		Help:      "Observed fee-adjusted spread values in percent",
		Buckets:   []float64{-1, -0.5, -0.2, 0, 0.1, 0.2, 0.3, 0.5, 1, 2},
	},
	[]string{"symbol"},
)

// ============ Метрики исполнения ============

// TradesTotal - количество сделок по финальным статусам
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbibot",
		Subsystem: "executor",
		Name:      "trades_total",
		Help:      "Total number of trades by final status",
	},
	[]string{"symbol", "status"}, // COMPLETED, PARTIALLY_FILLED, FAILED, CANCELLED
)

// PnlTotal - суммарный реализованный P&L в USD
var PnlTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbibot",
		Subsystem: "executor",
		Name:      "pnl_total_usd",
		Help:      "Total realized PnL in USD (can decrease on losses)",
	},
)

// ActiveTrades - текущее количество сделок в работе
var ActiveTrades = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbibot",
		Subsystem: "executor",
		Name:      "active_trades",
		Help:      "Current number of in-flight arbitrage trades",
	},
)

// OrderPlacementLatency - время размещения ордера на бирже
var OrderPlacementLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbibot",
		Subsystem: "executor",
		Name:      "order_placement_latency_ms",
		Help:      "Time to place an order on a venue in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	},
	[]string{"venue", "side"},
)

// ============ Метрики риск-менеджмента ============

// BreakerTrips - срабатывания circuit breaker'ов
var BreakerTrips = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbibot",
		Subsystem: "safety",
		Name:      "breaker_trips_total",
		Help:      "Number of circuit breaker trips",
	},
	[]string{"scope"}, // global, direction
)

// TradesRejected - отклонённые предохранителем сделки
var TradesRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbibot",
		Subsystem: "safety",
		Name:      "trades_rejected_total",
		Help:      "Number of trades rejected by the safety gate",
	},
	[]string{"reason"},
)

// ============ Метрики фидов ============

// PriceUpdateLatency - время получения тикера с биржи
var PriceUpdateLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbibot",
		Subsystem: "feed",
		Name:      "price_update_latency_ms",
		Help:      "Time to fetch a ticker from a venue in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"venue"},
)

// FeedErrors - ошибки опроса бирж
var FeedErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbibot",
		Subsystem: "feed",
		Name:      "errors_total",
		Help:      "Number of venue polling errors",
	},
	[]string{"venue", "kind"}, // kind: ticker, order_book
)

// ============ Вспомогательные функции ============

// RecordScan записывает результат прохода сканера
func RecordScan(elapsed time.Duration, found int) {
	ScanLatency.Observe(float64(elapsed.Microseconds()) / 1000)
	OpportunitiesInBuffer.Set(float64(found))
}

// RecordSpread записывает наблюдаемый чистый спред
func RecordSpread(symbol string, spreadPct float64) {
	SpreadObserved.WithLabelValues(symbol).Observe(spreadPct)
}

// RecordOpportunity записывает обнаруженную возможность
func RecordOpportunity(symbol string, tradeable bool) {
	v := "no"
	if tradeable {
		v = "yes"
	}
	OpportunitiesDetected.WithLabelValues(symbol, v).Inc()
}

// RecordTradeResult записывает завершённую сделку
func RecordTradeResult(symbol, status string, pnl float64) {
	TradesTotal.WithLabelValues(symbol, status).Inc()
	if pnl != 0 {
		PnlTotal.Add(pnl)
	}
}

// RecordRejection записывает отказ предохранителя
func RecordRejection(reason string) {
	TradesRejected.WithLabelValues(reason).Inc()
}

// RecordPriceUpdate записывает латентность опроса тикера
func RecordPriceUpdate(venueName string, elapsed time.Duration) {
	PriceUpdateLatency.WithLabelValues(venueName).Observe(float64(elapsed.Microseconds()) / 1000)
}

// RecordFeedError записывает ошибку опроса биржи
func RecordFeedError(venueName, kind string) {
	FeedErrors.WithLabelValues(venueName, kind).Inc()
}
