package handlers

import (
	"time"

	"arbibot/internal/engine"
	"arbibot/internal/models"
	"arbibot/internal/repository"
)

// ============================================================
// Моки зависимостей для тестов handlers
// ============================================================

// fakeController - мок интерфейса Controller
type fakeController struct {
	status    engine.ControllerStatus
	enableErr error

	enableCalls  int
	disableCalls int
}

func (f *fakeController) Status() engine.ControllerStatus { return f.status }

func (f *fakeController) Enable() error {
	f.enableCalls++
	return f.enableErr
}

func (f *fakeController) Disable() { f.disableCalls++ }

// fakeScanner - мок интерфейса OpportunitySource
type fakeScanner struct {
	ops      []*engine.Opportunity
	lastScan time.Time
}

func (f *fakeScanner) Top(n int) []*engine.Opportunity {
	if len(f.ops) > n {
		return f.ops[:n]
	}
	return f.ops
}

func (f *fakeScanner) LastScan() time.Time { return f.lastScan }

// fakeGate - мок интерфейса Gate
type fakeGate struct {
	status engine.SafetyStatus

	resetCalls   int
	restricted   []string
	unrestricted []string
}

func (f *fakeGate) Status() engine.SafetyStatus { return f.status }
func (f *fakeGate) ResetBreaker()               { f.resetCalls++ }

func (f *fakeGate) RestrictSymbol(s string)   { f.restricted = append(f.restricted, "symbol:"+s) }
func (f *fakeGate) UnrestrictSymbol(s string) { f.unrestricted = append(f.unrestricted, "symbol:"+s) }
func (f *fakeGate) RestrictVenue(v string)    { f.restricted = append(f.restricted, "venue:"+v) }
func (f *fakeGate) UnrestrictVenue(v string)  { f.unrestricted = append(f.unrestricted, "venue:"+v) }

// fakeTradeReader - мок интерфейса TradeReader
type fakeTradeReader struct {
	trades []*models.TradeRecord
	err    error

	lastMethod string
	lastLimit  int
	lastFilter string
}

func (f *fakeTradeReader) GetByID(id string) (*models.TradeRecord, error) {
	f.lastMethod, f.lastFilter = "GetByID", id
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.trades {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repository.ErrTradeNotFound
}

func (f *fakeTradeReader) GetRecent(limit int) ([]*models.TradeRecord, error) {
	f.lastMethod, f.lastLimit = "GetRecent", limit
	return f.trades, f.err
}

func (f *fakeTradeReader) GetByStatus(status string, limit int) ([]*models.TradeRecord, error) {
	f.lastMethod, f.lastLimit, f.lastFilter = "GetByStatus", limit, status
	return f.trades, f.err
}

func (f *fakeTradeReader) GetBySymbol(symbol string, limit int) ([]*models.TradeRecord, error) {
	f.lastMethod, f.lastLimit, f.lastFilter = "GetBySymbol", limit, symbol
	return f.trades, f.err
}

// fakeExecutor - мок интерфейса ActiveTradeSource
type fakeExecutor struct {
	active []engine.TradeSnapshot
}

func (f *fakeExecutor) ActiveTrades() []engine.TradeSnapshot { return f.active }

// fakeStatsReader - мок интерфейса StatsReader
type fakeStatsReader struct {
	stats *models.Stats
	err   error
}

func (f *fakeStatsReader) GetStats() (*models.Stats, error) { return f.stats, f.err }

// fakeNotificationReader - мок интерфейса NotificationReader
type fakeNotificationReader struct {
	notifications []*models.Notification
	err           error

	lastMethod string
	lastLimit  int
	lastFilter string
	deleteAll  int
}

func (f *fakeNotificationReader) GetRecent(limit int) ([]*models.Notification, error) {
	f.lastMethod, f.lastLimit = "GetRecent", limit
	return f.notifications, f.err
}

func (f *fakeNotificationReader) GetByType(ntype string, limit int) ([]*models.Notification, error) {
	f.lastMethod, f.lastLimit, f.lastFilter = "GetByType", limit, ntype
	return f.notifications, f.err
}

func (f *fakeNotificationReader) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	f.lastMethod, f.lastLimit, f.lastFilter = "GetBySeverity", limit, severity
	return f.notifications, f.err
}

func (f *fakeNotificationReader) DeleteAll() error {
	f.deleteAll++
	return f.err
}

// sampleTrade возвращает типовую завершённую сделку
func sampleTrade(id string) *models.TradeRecord {
	now := time.Now()
	return &models.TradeRecord{
		ID:          id,
		Symbol:      "BTC/USDT",
		BuyVenue:    "binance",
		SellVenue:   "kraken",
		BuyPrice:    45000,
		SellPrice:   45100,
		Quantity:    0.1,
		Fees:        9.01,
		ProfitUSD:   0.99,
		Score:       72.5,
		Status:      "COMPLETED",
		StartedAt:   now.Add(-2 * time.Second),
		CompletedAt: now,
	}
}
