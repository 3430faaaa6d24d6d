package engine

import (
	"sync"

	"arbibot/internal/config"
	"arbibot/pkg/utils"
)

// ============================================================
// Композитный скоринг возможностей
// ============================================================
//
// Score = w_profit × S_profit + w_liquidity × S_liquidity +
//         w_volatility × S_volatility + w_success × S_success
//
// Каждая компонента нормирована в 0-100, веса задаются конфигурацией
// и обязаны суммироваться в 1.0, поэтому итоговый score тоже 0-100.

// SuccessModel оценивает историческую успешность направления.
// Возвращает балл 0-100; 50 означает отсутствие данных.
type SuccessModel interface {
	SuccessScore(direction string) float64
}

// NeutralSuccess - модель без истории: все направления получают 50
type NeutralSuccess struct{}

// SuccessScore возвращает нейтральный балл
func (NeutralSuccess) SuccessScore(direction string) float64 { return 50 }

// TrackingSuccess считает долю прибыльных сделок по направлению.
// Направления без истории получают нейтральные 50 баллов.
type TrackingSuccess struct {
	mu      sync.RWMutex
	wins    map[string]int
	losses  map[string]int
}

// NewTrackingSuccess создаёт модель успешности
func NewTrackingSuccess() *TrackingSuccess {
	return &TrackingSuccess{
		wins:   make(map[string]int),
		losses: make(map[string]int),
	}
}

// Record учитывает результат завершённой сделки
func (t *TrackingSuccess) Record(direction string, profitable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if profitable {
		t.wins[direction]++
	} else {
		t.losses[direction]++
	}
}

// SuccessScore возвращает 100 × wins / (wins + losses)
func (t *TrackingSuccess) SuccessScore(direction string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := t.wins[direction] + t.losses[direction]
	if total == 0 {
		return 50
	}
	return 100 * float64(t.wins[direction]) / float64(total)
}

// Scorer вычисляет композитный score возможности
type Scorer struct {
	cfg     config.ScoringConfig
	success SuccessModel
}

// NewScorer создаёт скорер с заданной моделью успешности
func NewScorer(cfg config.ScoringConfig, success SuccessModel) *Scorer {
	if success == nil {
		success = NeutralSuccess{}
	}
	return &Scorer{cfg: cfg, success: success}
}

// Score вычисляет композитную оценку 0-100.
//
// Параметры:
//   - op: возможность со спредом и глубиной
//   - volatility: stddev mid-цен (в абсолютных единицах цены)
func (s *Scorer) Score(op *Opportunity, volatility float64) float64 {
	profit := s.profitScore(op.SpreadPct)
	liquidity := s.liquidityScore(op.MaxQuantity * op.BuyPrice)
	vol := s.volatilityScore(volatility, op.BuyPrice)
	success := utils.Clamp(s.success.SuccessScore(op.Direction()), 0, 100)

	return s.cfg.ProfitWeight*profit +
		s.cfg.LiquidityWeight*liquidity +
		s.cfg.VolatilityWeight*vol +
		s.cfg.HistoricalSuccessWeight*success
}

// profitScore: ProfitRefPct% спреда дают 100 баллов, линейно
func (s *Scorer) profitScore(spreadPct float64) float64 {
	if s.cfg.ProfitRefPct <= 0 {
		return 0
	}
	return utils.Clamp(spreadPct/s.cfg.ProfitRefPct*100, 0, 100)
}

// liquidityScore: LiquidityRefUSD доступной глубины дают 100 баллов
func (s *Scorer) liquidityScore(liquidityUSD float64) float64 {
	if s.cfg.LiquidityRefUSD <= 0 {
		return 0
	}
	return utils.Clamp(liquidityUSD/s.cfg.LiquidityRefUSD*100, 0, 100)
}

// volatilityScore: чем спокойнее цена, тем выше балл.
// Волатильность нормируется ценой: 1% относительной волатильности
// обнуляет компоненту.
func (s *Scorer) volatilityScore(volatility, price float64) float64 {
	if price <= 0 {
		return 0
	}
	relPct := volatility / price * 100
	return utils.Clamp(100-relPct*100, 0, 100)
}
