package execution

import (
	"context"
	"testing"
)

func newMonitorFixture(t *testing.T) (*Executor, *fakeQuotes, *memStore) {
	t.Helper()
	quotes := &fakeQuotes{prices: map[string]float64{"BTCUSDT": 100}}
	store := &memStore{}
	exec := NewExecutor(testLimits(), &fakeOrders{}, quotes, &fakeBalance{available: 1000}, store, nil, true)
	if _, err := exec.ExecuteBuy(context.Background(), "BTCUSDT", 100); err != nil {
		t.Fatalf("open position: %v", err)
	}
	return exec, quotes, store
}

func TestMonitorStopLoss(t *testing.T) {
	exec, quotes, store := newMonitorFixture(t)
	mon := NewMonitor(exec, quotes)

	// Entry 100, stop loss at 2%: 97.5 is a -2.5% move.
	quotes.prices["BTCUSDT"] = 97.5
	mon.Check(context.Background())

	if _, ok := exec.Position("BTCUSDT"); ok {
		t.Fatal("position still open after stop loss")
	}
	if len(store.closed) != 1 {
		t.Fatalf("closed trades = %d, want 1", len(store.closed))
	}
	if store.closed[0].Reason != ReasonStopLoss {
		t.Errorf("reason = %q, want %q", store.closed[0].Reason, ReasonStopLoss)
	}
	if store.closed[0].PnL >= 0 {
		t.Errorf("pnl = %.4f, want negative", store.closed[0].PnL)
	}
}

func TestMonitorTakeProfit(t *testing.T) {
	exec, quotes, store := newMonitorFixture(t)
	mon := NewMonitor(exec, quotes)

	// Entry 100, take profit at 3%: 103.5 is a +3.5% move.
	quotes.prices["BTCUSDT"] = 103.5
	mon.Check(context.Background())

	if _, ok := exec.Position("BTCUSDT"); ok {
		t.Fatal("position still open after take profit")
	}
	if len(store.closed) != 1 || store.closed[0].Reason != ReasonTakeProfit {
		t.Fatalf("closed = %+v, want one take profit exit", store.closed)
	}
	if store.closed[0].PnL <= 0 {
		t.Errorf("pnl = %.4f, want positive", store.closed[0].PnL)
	}
}

func TestMonitorExactThresholdTriggers(t *testing.T) {
	exec, quotes, store := newMonitorFixture(t)
	mon := NewMonitor(exec, quotes)

	// Exactly -2% must trigger, the comparison is inclusive.
	quotes.prices["BTCUSDT"] = 98
	mon.Check(context.Background())

	if len(store.closed) != 1 || store.closed[0].Reason != ReasonStopLoss {
		t.Fatalf("closed = %+v, want one stop loss exit at the exact threshold", store.closed)
	}
}

func TestMonitorHoldsInsideBand(t *testing.T) {
	exec, quotes, store := newMonitorFixture(t)
	mon := NewMonitor(exec, quotes)

	for _, price := range []float64{99.0, 100.0, 102.9} {
		quotes.prices["BTCUSDT"] = price
		mon.Check(context.Background())
	}

	if _, ok := exec.Position("BTCUSDT"); !ok {
		t.Fatal("position closed inside the threshold band")
	}
	if len(store.closed) != 0 {
		t.Errorf("closed trades = %d, want 0", len(store.closed))
	}
}

func TestMonitorPriceUnavailableSkipsPosition(t *testing.T) {
	exec, quotes, store := newMonitorFixture(t)
	mon := NewMonitor(exec, quotes)

	delete(quotes.prices, "BTCUSDT")
	mon.Check(context.Background())

	if _, ok := exec.Position("BTCUSDT"); !ok {
		t.Fatal("position closed without a price sample")
	}
	if len(store.closed) != 0 {
		t.Errorf("closed trades = %d, want 0", len(store.closed))
	}
}
