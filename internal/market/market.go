// Package market defines the market data contract consumed by the decision
// engine and the execution layer.
package market

import "context"

// Ticker24h is a rolling 24 hour statistics snapshot for one symbol.
type Ticker24h struct {
	Symbol             string  `json:"symbol"`
	PriceChangePercent float64 `json:"price_change_percent"`
	Volume             float64 `json:"volume"`
}

// Data provides price quotes and symbol metadata. Implementations must be
// safe for concurrent use; every call is a potential suspension point.
type Data interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	Ticker24h(ctx context.Context, symbol string) (Ticker24h, error)
	// LotStep returns the exchange's minimum quantity increment for symbol.
	LotStep(ctx context.Context, symbol string) (float64, error)
}
