// Package risk holds the process-wide risk limits shared by the executor and
// the stop-loss/take-profit monitor. Limits are read-only after load.
package risk

// Limits defines the safety gates applied before any order is submitted.
type Limits struct {
	// PositionSizePercent is the share of the account balance committed per
	// BUY, in percent (1.0 means 1%).
	PositionSizePercent float64 `json:"position_size_percent"`
	// MaxDailyTrades caps filled orders per calendar day, buys and sells
	// counted alike.
	MaxDailyTrades int `json:"max_daily_trades"`
	// StopLossPercent exits a position once it moves this far against the
	// entry, in percent.
	StopLossPercent float64 `json:"stop_loss_percent"`
	// TakeProfitPercent exits a position once it moves this far in favour of
	// the entry, in percent.
	TakeProfitPercent float64 `json:"take_profit_percent"`
	// MinAccountBalance blocks buys while the balance sits below this floor.
	MinAccountBalance float64 `json:"min_account_balance"`
	// MaxPositionNotional caps the quote-currency value of a single order.
	MaxPositionNotional float64 `json:"max_position_notional"`
}

// Default returns conservative limits suitable for testnet trading.
func Default() Limits {
	return Limits{
		PositionSizePercent: 1.0,
		MaxDailyTrades:      10,
		StopLossPercent:     2.0,
		TakeProfitPercent:   3.0,
		MinAccountBalance:   100.0,
		MaxPositionNotional: 100.0,
	}
}
