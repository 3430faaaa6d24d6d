package repository

import (
	"database/sql"
	"errors"
	"time"

	"arbibot/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// tradeColumns - общий список колонок для SELECT запросов
const tradeColumns = `id, symbol, buy_venue, sell_venue, buy_price, sell_price, quantity, fees, profit_usd, score, status, fail_reason, started_at, completed_at`

// SaveTrade сохраняет завершенную сделку
func (r *TradeRepository) SaveTrade(rec *models.TradeRecord) error {
	query := `
		INSERT INTO trades (id, symbol, buy_venue, sell_venue, buy_price, sell_price, quantity, fees, profit_usd, score, status, fail_reason, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(
		query,
		rec.ID,
		rec.Symbol,
		rec.BuyVenue,
		rec.SellVenue,
		rec.BuyPrice,
		rec.SellPrice,
		rec.Quantity,
		rec.Fees,
		rec.ProfitUSD,
		rec.Score,
		rec.Status,
		rec.FailReason,
		rec.StartedAt,
		rec.CompletedAt,
	)
	return err
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(id string) (*models.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE id = $1`

	rec, err := scanTrade(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetRecent возвращает последние limit сделок, новые первыми
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY completed_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByStatus возвращает последние сделки с заданным финальным статусом
func (r *TradeRepository) GetByStatus(status string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySymbol возвращает последние сделки по символу
func (r *TradeRepository) GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE symbol = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetSince возвращает сделки, завершенные после указанного времени
func (r *TradeRepository) GetSince(since time.Time) ([]*models.TradeRecord, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE completed_at >= $1
		ORDER BY completed_at DESC`

	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM trades`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет сделки старше указанного времени.
// Возвращает количество удаленных записей.
func (r *TradeRepository) DeleteOlderThan(before time.Time) (int64, error) {
	query := `DELETE FROM trades WHERE completed_at < $1`

	result, err := r.db.Exec(query, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// rowScanner покрывает *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade читает одну запись сделки
func scanTrade(row rowScanner) (*models.TradeRecord, error) {
	rec := &models.TradeRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.Symbol,
		&rec.BuyVenue,
		&rec.SellVenue,
		&rec.BuyPrice,
		&rec.SellPrice,
		&rec.Quantity,
		&rec.Fees,
		&rec.ProfitUSD,
		&rec.Score,
		&rec.Status,
		&rec.FailReason,
		&rec.StartedAt,
		&rec.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// scanTrades читает все строки результата
func scanTrades(rows *sql.Rows) ([]*models.TradeRecord, error) {
	var trades []*models.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}
