package utils

import (
	"math"
	"testing"
)

// floatEquals сравнение float64 с допуском
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ============================================================
// Тесты RoundToLotSize
// ============================================================

func TestRoundToLotSize(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lotSize  float64
		expected float64
	}{
		// Базовые кейсы
		{"exact match", 0.123, 0.001, 0.123},
		{"round down", 0.123456, 0.001, 0.123},
		{"round down 2", 1.999, 0.01, 1.99},
		{"whole numbers", 100.5, 1.0, 100.0},

		// Граничные случаи
		{"zero value", 0, 0.001, 0},
		{"zero lotSize", 0.123, 0, 0.123},
		{"negative lotSize", 0.123, -0.001, 0.123},
		{"very small lotSize", 1.23456789, 0.00000001, 1.23456789},

		// BTC примеры
		{"BTC lot 0.001", 0.5, 0.001, 0.5},
		{"BTC lot 0.001 round", 0.1234, 0.001, 0.123},

		// Большие числа
		{"large number", 12345.6789, 0.01, 12345.67},
		{"very large", 1000000.999, 1.0, 1000000.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToLotSize(tt.value, tt.lotSize)
			if !floatEquals(result, tt.expected) {
				t.Errorf("RoundToLotSize(%v, %v) = %v, want %v",
					tt.value, tt.lotSize, result, tt.expected)
			}
		})
	}
}

func TestRoundToLotSizeUp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lotSize  float64
		expected float64
	}{
		{"exact match", 0.123, 0.001, 0.123},
		{"round up", 0.1231, 0.001, 0.124},
		{"round up 2", 1.991, 0.01, 2.0},
		{"zero lotSize", 0.123, 0, 0.123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundToLotSizeUp(tt.value, tt.lotSize)
			if !floatEquals(result, tt.expected) {
				t.Errorf("RoundToLotSizeUp(%v, %v) = %v, want %v",
					tt.value, tt.lotSize, result, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты расчёта цен и спредов
// ============================================================

func TestEffectivePrices(t *testing.T) {
	// Покупка: комиссия увеличивает фактическую цену
	if got := EffectiveBuyPrice(45000.0, 0.001); !floatEquals(got, 45045.0) {
		t.Errorf("EffectiveBuyPrice(45000, 0.001) = %v, want 45045", got)
	}
	// Продажа: комиссия уменьшает фактическую цену
	if got := EffectiveSellPrice(45100.0, 0.001); !floatEquals(got, 45054.9) {
		t.Errorf("EffectiveSellPrice(45100, 0.001) = %v, want 45054.9", got)
	}
	// Нулевая комиссия не меняет цену
	if got := EffectiveBuyPrice(100.0, 0); !floatEquals(got, 100.0) {
		t.Errorf("EffectiveBuyPrice(100, 0) = %v, want 100", got)
	}
}

func TestCalculateSpread(t *testing.T) {
	tests := []struct {
		name      string
		priceHigh float64
		priceLow  float64
		expected  float64
	}{
		{"one percent", 101.0, 100.0, 1.0},
		{"fraction", 25050, 25000, 0.2},
		{"zero low price", 100.0, 0, 0},
		{"negative low price", 100.0, -5, 0},
		{"equal prices", 100.0, 100.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateSpread(tt.priceHigh, tt.priceLow)
			if !floatEquals(result, tt.expected) {
				t.Errorf("CalculateSpread(%v, %v) = %v, want %v",
					tt.priceHigh, tt.priceLow, result, tt.expected)
			}
		})
	}
}

func TestCalculateNetSpread(t *testing.T) {
	tests := []struct {
		name    string
		buyAsk  float64
		sellBid float64
		buyFee  float64
		sellFee float64
		want    float64
	}{
		// (45054.9 - 45045.0) / 45045.0 * 100
		{"profitable after fees", 45000.0, 45100.0, 0.001, 0.001, 0.021977999777999},
		// Без комиссий чистый спред равен грязному
		{"no fees", 100.0, 101.0, 0, 0, 1.0},
		// Комиссии съедают весь спред
		{"fees eat spread", 100.0, 100.05, 0.001, 0.001, -0.14990009990009},
		{"invalid buy price", 0, 101.0, 0.001, 0.001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateNetSpread(tt.buyAsk, tt.sellBid, tt.buyFee, tt.sellFee)
			if math.Abs(result-tt.want) > 1e-6 {
				t.Errorf("CalculateNetSpread(%v, %v, %v, %v) = %v, want %v",
					tt.buyAsk, tt.sellBid, tt.buyFee, tt.sellFee, result, tt.want)
			}
		})
	}
}

// ============================================================
// Тесты VWAP и симуляции стакана
// ============================================================

func TestCalculateWeightedAverage(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		weights  []float64
		expected float64
	}{
		{
			name:     "basic VWAP",
			values:   []float64{100.0, 101.0, 102.0},
			weights:  []float64{10.0, 20.0, 10.0},
			expected: 101.0,
		},
		{
			name:     "single level",
			values:   []float64{50.0},
			weights:  []float64{5.0},
			expected: 50.0,
		},
		{"empty values", nil, []float64{1}, 0},
		{"empty weights", []float64{1}, nil, 0},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0},
		{"zero weights", []float64{100, 200}, []float64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateWeightedAverage(tt.values, tt.weights)
			if !floatEquals(result, tt.expected) {
				t.Errorf("CalculateWeightedAverage() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSimulateMarketBuy(t *testing.T) {
	asks := []OrderBookLevel{
		{Price: 100.0, Volume: 1.0},
		{Price: 101.0, Volume: 2.0},
		{Price: 102.0, Volume: 3.0},
	}

	t.Run("fills within first level", func(t *testing.T) {
		avg, filled, slip := SimulateMarketBuy(asks, 0.5)
		if !floatEquals(avg, 100.0) {
			t.Errorf("avgPrice = %v, want 100.0", avg)
		}
		if !floatEquals(filled, 0.5) {
			t.Errorf("filled = %v, want 0.5", filled)
		}
		if !floatEquals(slip, 0) {
			t.Errorf("slippage = %v, want 0", slip)
		}
	})

	t.Run("walks two levels", func(t *testing.T) {
		avg, filled, slip := SimulateMarketBuy(asks, 2.0)
		// (100*1 + 101*1) / 2 = 100.5
		if !floatEquals(avg, 100.5) {
			t.Errorf("avgPrice = %v, want 100.5", avg)
		}
		if !floatEquals(filled, 2.0) {
			t.Errorf("filled = %v, want 2.0", filled)
		}
		if slip <= 0 {
			t.Errorf("slippage = %v, want > 0", slip)
		}
	})

	t.Run("insufficient depth", func(t *testing.T) {
		_, filled, _ := SimulateMarketBuy(asks, 10.0)
		if !floatEquals(filled, 6.0) {
			t.Errorf("filled = %v, want 6.0 (full book)", filled)
		}
	})

	t.Run("empty book", func(t *testing.T) {
		avg, filled, slip := SimulateMarketBuy(nil, 1.0)
		if avg != 0 || filled != 0 || slip != 0 {
			t.Errorf("expected zeros for empty book, got %v %v %v", avg, filled, slip)
		}
	})
}

func TestSimulateMarketSell(t *testing.T) {
	bids := []OrderBookLevel{
		{Price: 100.0, Volume: 1.0},
		{Price: 99.0, Volume: 2.0},
	}

	t.Run("walks two levels", func(t *testing.T) {
		avg, filled, slip := SimulateMarketSell(bids, 2.0)
		// (100*1 + 99*1) / 2 = 99.5
		if !floatEquals(avg, 99.5) {
			t.Errorf("avgPrice = %v, want 99.5", avg)
		}
		if !floatEquals(filled, 2.0) {
			t.Errorf("filled = %v, want 2.0", filled)
		}
		if slip >= 0 {
			t.Errorf("slippage = %v, want < 0 for sell", slip)
		}
	})

	t.Run("zero target volume", func(t *testing.T) {
		avg, filled, _ := SimulateMarketSell(bids, 0)
		if avg != 0 || filled != 0 {
			t.Errorf("expected zeros for zero volume, got %v %v", avg, filled)
		}
	})
}

// ============================================================
// Тесты StdDev
// ============================================================

func TestStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"known sample", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2.1380899352993},
		{"identical values", []float64{5, 5, 5, 5}, 0},
		{"two values", []float64{1, 3}, math.Sqrt(2)},
		{"single value", []float64{42}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StdDev(tt.values)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("StdDev(%v) = %v, want %v", tt.values, result, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты вспомогательных функций
// ============================================================

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{"within range", 5.0, 0.0, 10.0, 5.0},
		{"below min", -5.0, 0.0, 10.0, 0.0},
		{"above max", 15.0, 0.0, 10.0, 10.0},
		{"at min", 0.0, 0.0, 10.0, 0.0},
		{"at max", 10.0, 0.0, 10.0, 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clamp(tt.value, tt.min, tt.max)
			if !floatEquals(result, tt.expected) {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v",
					tt.value, tt.min, tt.max, result, tt.expected)
			}
		})
	}
}

// ============================================================
// Бенчмарки
// ============================================================

func BenchmarkSimulateMarketBuy(b *testing.B) {
	asks := make([]OrderBookLevel, 20)
	for i := range asks {
		asks[i] = OrderBookLevel{Price: 100.0 + float64(i)*0.1, Volume: 1.5}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SimulateMarketBuy(asks, 10.0)
	}
}

func BenchmarkStdDev(b *testing.B) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 100.0 + float64(i%10)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		StdDev(values)
	}
}
