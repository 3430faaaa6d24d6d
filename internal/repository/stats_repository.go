package repository

import (
	"database/sql"
	"time"

	"arbibot/internal/models"
	"arbibot/pkg/utils"
)

// StatsRepository - агрегация статистики из таблицы trades
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository создает новый экземпляр репозитория
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats рассчитывает все агрегаты: суммарные показатели,
// разбивку по периодам (день/неделя/месяц), success rate,
// среднюю длительность исполнения и топ-5 направлений
func (r *StatsRepository) GetStats() (*models.Stats, error) {
	stats := &models.Stats{}

	var err error
	if stats.TotalTrades, stats.TotalPnl, err = r.totals(); err != nil {
		return nil, err
	}
	if stats.TodayTrades, stats.TodayPnl, err = r.totalsSince(utils.GetDayStart()); err != nil {
		return nil, err
	}
	if stats.WeekTrades, stats.WeekPnl, err = r.totalsSince(utils.GetWeekStart()); err != nil {
		return nil, err
	}
	if stats.MonthTrades, stats.MonthPnl, err = r.totalsSince(utils.GetMonthStart()); err != nil {
		return nil, err
	}

	if stats.SuccessRate, stats.AvgExecutionMs, err = r.executionStats(); err != nil {
		return nil, err
	}

	if stats.TopSymbolsByTrades, err = r.topSymbols("COUNT(*)"); err != nil {
		return nil, err
	}
	if stats.TopSymbolsByProfit, err = r.topSymbols("COALESCE(SUM(profit_usd), 0)"); err != nil {
		return nil, err
	}
	if stats.TopVenuePairs, err = r.topVenuePairs(); err != nil {
		return nil, err
	}

	return stats, nil
}

// totals возвращает количество сделок и суммарный P&L за всё время
func (r *StatsRepository) totals() (int, float64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(profit_usd), 0) FROM trades`

	var trades int
	var pnl float64
	err := r.db.QueryRow(query).Scan(&trades, &pnl)
	if err != nil {
		return 0, 0, err
	}

	return trades, pnl, nil
}

// totalsSince возвращает количество сделок и суммарный P&L
// за период с указанного времени
func (r *StatsRepository) totalsSince(since time.Time) (int, float64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(profit_usd), 0)
		FROM trades
		WHERE completed_at >= $1`

	var trades int
	var pnl float64
	err := r.db.QueryRow(query, since).Scan(&trades, &pnl)
	if err != nil {
		return 0, 0, err
	}

	return trades, pnl, nil
}

// executionStats возвращает долю успешных сделок и среднюю
// длительность исполнения в миллисекундах
func (r *StatsRepository) executionStats() (float64, float64, error) {
	query := `
		SELECT
			COALESCE(AVG(CASE WHEN status = 'COMPLETED' THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000), 0)
		FROM trades`

	var successRate, avgMs float64
	err := r.db.QueryRow(query).Scan(&successRate, &avgMs)
	if err != nil {
		return 0, 0, err
	}

	return successRate, avgMs, nil
}

// topSymbols возвращает топ-5 символов по заданному агрегату
func (r *StatsRepository) topSymbols(aggregate string) ([]models.SymbolStat, error) {
	query := `
		SELECT symbol, ` + aggregate + ` AS value
		FROM trades
		GROUP BY symbol
		ORDER BY value DESC
		LIMIT 5`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.SymbolStat
	for rows.Next() {
		var s models.SymbolStat
		if err := rows.Scan(&s.Symbol, &s.Value); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// topVenuePairs возвращает топ-5 направлений по количеству сделок
func (r *StatsRepository) topVenuePairs() ([]models.VenueStat, error) {
	query := `
		SELECT buy_venue, sell_venue, COUNT(*) AS trades, COALESCE(SUM(profit_usd), 0) AS pnl
		FROM trades
		GROUP BY buy_venue, sell_venue
		ORDER BY trades DESC
		LIMIT 5`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.VenueStat
	for rows.Next() {
		var v models.VenueStat
		if err := rows.Scan(&v.BuyVenue, &v.SellVenue, &v.Trades, &v.Pnl); err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
