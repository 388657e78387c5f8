package execution

import (
	"context"
	"errors"
	"log"

	"trading-intelligence/internal/market"
	"trading-intelligence/internal/risk"
)

// Exit reasons reported on triggered sells.
const (
	ReasonStopLoss   = "stop loss"
	ReasonTakeProfit = "take profit"
)

// Monitor scans open positions once per scheduler tick and triggers exits at
// the configured stop-loss/take-profit thresholds.
type Monitor struct {
	exec   *Executor
	market market.Data
	limits risk.Limits
}

// NewMonitor creates a stop-loss/take-profit monitor sharing the executor's
// limits.
func NewMonitor(exec *Executor, marketData market.Data) *Monitor {
	return &Monitor{exec: exec, market: marketData, limits: exec.Limits()}
}

// Check runs one pass over every open position. Both thresholds are evaluated
// against the same price sample and at most one exit fires per position.
func (m *Monitor) Check(ctx context.Context) {
	for _, pos := range m.exec.Positions() {
		price, err := m.market.CurrentPrice(ctx, pos.Symbol)
		if err != nil {
			log.Printf("monitor: price for %s unavailable: %v", pos.Symbol, err)
			continue
		}
		if pos.EntryPrice <= 0 {
			continue
		}

		pctChange := (price - pos.EntryPrice) / pos.EntryPrice * 100

		var reason string
		switch {
		case pctChange <= -m.limits.StopLossPercent:
			reason = ReasonStopLoss
		case pctChange >= m.limits.TakeProfitPercent:
			reason = ReasonTakeProfit
		default:
			continue
		}

		closed, err := m.exec.ExecuteSell(ctx, pos.Symbol, price, reason)
		if err != nil {
			if errors.Is(err, ErrNoPosition) {
				continue // closed concurrently
			}
			log.Printf("monitor: exit %s (%s) failed: %v", pos.Symbol, reason, err)
			continue
		}
		log.Printf("monitor: %s %s at %.2f (%+.2f%%) pnl=%.2f", reason, pos.Symbol, price, pctChange, closed.PnL)
	}
}
