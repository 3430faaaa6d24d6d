package venue

import (
	"context"
	"errors"
	"math"
	"testing"
)

func newTestSim() *SimVenue {
	sim := NewSimVenue("sim", 0.001)
	sim.SetTicker("BTC/USDT", 45000.0, 45010.0)
	sim.SetBalance("USDT", 100_000)
	sim.SetBalance("BTC", 10)
	return sim
}

// ============================================================
// Тесты исполнения ордеров
// ============================================================

func TestSimVenue_MarketableLimitBuyFills(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	order, err := sim.PlaceOrder(ctx, OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideBuy,
		Type:     OrderTypeLimit,
		Quantity: 0.1,
		Price:    45010.0, // равна ask - marketable
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if order.Status != OrderStatusFilled {
		t.Errorf("Status = %s, want %s", order.Status, OrderStatusFilled)
	}
	if order.AvgFillPrice != 45010.0 {
		t.Errorf("AvgFillPrice = %v, want 45010", order.AvgFillPrice)
	}
	if order.FilledQty != 0.1 {
		t.Errorf("FilledQty = %v, want 0.1", order.FilledQty)
	}

	// Комиссия: 0.1 × 45010 × 0.001
	wantFee := 0.1 * 45010.0 * 0.001
	if math.Abs(order.Fee-wantFee) > 1e-9 {
		t.Errorf("Fee = %v, want %v", order.Fee, wantFee)
	}
}

func TestSimVenue_PassiveLimitStaysOpen(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	order, err := sim.PlaceOrder(ctx, OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideBuy,
		Type:     OrderTypeLimit,
		Quantity: 0.1,
		Price:    44000.0, // ниже ask - остаётся в книге
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.Status != OrderStatusOpen {
		t.Fatalf("Status = %s, want %s", order.Status, OrderStatusOpen)
	}

	// Цена опускается до лимита - ордер должен исполниться
	sim.SetTicker("BTC/USDT", 43990.0, 44000.0)

	updated, err := sim.FetchOrder(ctx, "BTC/USDT", order.ID)
	if err != nil {
		t.Fatalf("FetchOrder failed: %v", err)
	}
	if updated.Status != OrderStatusFilled {
		t.Errorf("Status after price move = %s, want %s", updated.Status, OrderStatusFilled)
	}
	if updated.AvgFillPrice != 44000.0 {
		t.Errorf("AvgFillPrice = %v, want 44000", updated.AvgFillPrice)
	}
}

func TestSimVenue_BalancesSettleAfterFill(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	_, err := sim.PlaceOrder(ctx, OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideSell,
		Type:     OrderTypeLimit,
		Quantity: 1.0,
		Price:    45000.0, // равна bid - marketable
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	btc, _ := sim.FetchBalance(ctx, "BTC")
	if math.Abs(btc-9.0) > 1e-9 {
		t.Errorf("BTC balance = %v, want 9.0", btc)
	}

	// USDT: 100000 + 45000 - комиссия 45
	usdt, _ := sim.FetchBalance(ctx, "USDT")
	if math.Abs(usdt-(100_000+45_000-45)) > 1e-9 {
		t.Errorf("USDT balance = %v, want %v", usdt, 100_000+45_000-45.0)
	}
}

func TestSimVenue_CancelOpenOrder(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	order, err := sim.PlaceOrder(ctx, OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideSell,
		Type:     OrderTypeLimit,
		Quantity: 0.5,
		Price:    46000.0, // выше bid - пассивный
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if err := sim.CancelOrder(ctx, "BTC/USDT", order.ID); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}

	cancelled, _ := sim.FetchOrder(ctx, "BTC/USDT", order.ID)
	if cancelled.Status != OrderStatusCancelled {
		t.Errorf("Status = %s, want %s", cancelled.Status, OrderStatusCancelled)
	}

	// Отмена исполненного ордера не меняет статус
	filled, err := sim.PlaceOrder(ctx, OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     SideBuy,
		Type:     OrderTypeLimit,
		Quantity: 0.1,
		Price:    45010.0,
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if err := sim.CancelOrder(ctx, "BTC/USDT", filled.ID); err != nil {
		t.Fatalf("CancelOrder on filled order failed: %v", err)
	}
	after, _ := sim.FetchOrder(ctx, "BTC/USDT", filled.ID)
	if after.Status != OrderStatusFilled {
		t.Errorf("Status = %s, want %s (cancel must not undo fill)", after.Status, OrderStatusFilled)
	}
}

// ============================================================
// Тесты ошибок
// ============================================================

func TestSimVenue_Errors(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := sim.FetchTicker(ctx, "XRP/USDT")
		if !errors.Is(err, ErrSymbolNotSupported) {
			t.Errorf("expected ErrSymbolNotSupported, got %v", err)
		}
		if IsTransient(err) {
			t.Error("symbol error must be permanent")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := sim.FetchOrder(ctx, "BTC/USDT", "no-such-id")
		if !errors.Is(err, ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := sim.PlaceOrder(ctx, OrderRequest{
			Symbol: "BTC/USDT", Side: SideBuy, Type: OrderTypeLimit, Quantity: 0, Price: 45010,
		})
		if err == nil {
			t.Fatal("expected error for zero quantity")
		}
	})

	t.Run("injected transient failure", func(t *testing.T) {
		sim.FailNextOrder = errors.New("network timeout")
		_, err := sim.PlaceOrder(ctx, OrderRequest{
			Symbol: "BTC/USDT", Side: SideBuy, Type: OrderTypeLimit, Quantity: 0.1, Price: 45010,
		})
		if err == nil {
			t.Fatal("expected injected error")
		}
		if !IsTransient(err) {
			t.Error("injected failure must be transient")
		}

		// Следующий ордер проходит нормально
		_, err = sim.PlaceOrder(ctx, OrderRequest{
			Symbol: "BTC/USDT", Side: SideBuy, Type: OrderTypeLimit, Quantity: 0.1, Price: 45010,
		})
		if err != nil {
			t.Errorf("second order should succeed, got %v", err)
		}
	})
}

// ============================================================
// Тесты стакана
// ============================================================

func TestSimVenue_OrderBook(t *testing.T) {
	sim := newTestSim()
	ctx := context.Background()

	t.Run("synthesized from ticker", func(t *testing.T) {
		book, err := sim.FetchOrderBook(ctx, "BTC/USDT", 20)
		if err != nil {
			t.Fatalf("FetchOrderBook failed: %v", err)
		}
		if len(book.Bids) != 1 || len(book.Asks) != 1 {
			t.Fatalf("synthesized book should have 1 level per side, got %d/%d",
				len(book.Bids), len(book.Asks))
		}
		if book.Asks[0].Price != 45010.0 {
			t.Errorf("ask = %v, want 45010", book.Asks[0].Price)
		}
	})

	t.Run("explicit book with depth limit", func(t *testing.T) {
		sim.SetOrderBook("BTC/USDT",
			[]PriceLevel{{45000, 1}, {44990, 2}, {44980, 3}},
			[]PriceLevel{{45010, 1}, {45020, 2}, {45030, 3}},
		)

		book, err := sim.FetchOrderBook(ctx, "BTC/USDT", 2)
		if err != nil {
			t.Fatalf("FetchOrderBook failed: %v", err)
		}
		if len(book.Bids) != 2 || len(book.Asks) != 2 {
			t.Errorf("depth limit not applied: %d/%d levels", len(book.Bids), len(book.Asks))
		}
	})
}

// ============================================================
// Тесты Ticker helpers
// ============================================================

func TestTickerMidPrice(t *testing.T) {
	ticker := &Ticker{BidPrice: 45000, AskPrice: 45010}
	if mid := ticker.MidPrice(); mid != 45005 {
		t.Errorf("MidPrice = %v, want 45005", mid)
	}
}
