// Package decision holds the immutable trading decision value object and the
// engine that produces it from a prediction signal and a market quote.
package decision

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Validation failures raised at construction time. A Decision that violates
// any invariant is never returned to the caller.
var (
	ErrProbabilityRange = errors.New("probability out of [0,1] range")
	ErrProbabilitySum   = errors.New("buy and sell probabilities exceed 100%")
	ErrPositionFraction = errors.New("position fraction must be in (0,1]")
	ErrNegativePrice    = errors.New("price must be non-negative")
	ErrNegativeATR      = errors.New("atr percentage must be non-negative")
)

// Decision is one immutable directional (or flat) signal produced at a point
// in time. Construct it with New; direct literals skip invariant checks and
// must not leave this package's tests.
type Decision struct {
	ID               string    `json:"decision_id"`
	Symbol           string    `json:"symbol"`
	Action           Action    `json:"action"`
	Timestamp        time.Time `json:"timestamp"`
	BuyProbability   float64   `json:"buy_probability"`
	SellProbability  float64   `json:"sell_probability"`
	Price            float64   `json:"current_price"`
	Quote            string    `json:"quote"` // currency the price is tagged with
	PositionFraction float64   `json:"position_fraction"`
	ATRPercent       float64   `json:"atr_percentage"`
	Timeframe        string    `json:"timeframe"`
	Confidence       float64   `json:"confidence_score"`
	RiskScore        float64   `json:"risk_score"`
}

// New validates d and returns it with defaults filled in. Any invariant
// violation fails construction.
func New(d Decision) (Decision, error) {
	if d.BuyProbability < 0 || d.BuyProbability > 1 {
		return Decision{}, fmt.Errorf("%w: buy=%.4f", ErrProbabilityRange, d.BuyProbability)
	}
	if d.SellProbability < 0 || d.SellProbability > 1 {
		return Decision{}, fmt.Errorf("%w: sell=%.4f", ErrProbabilityRange, d.SellProbability)
	}
	if d.BuyProbability+d.SellProbability > 1 {
		return Decision{}, fmt.Errorf("%w: %.4f+%.4f", ErrProbabilitySum, d.BuyProbability, d.SellProbability)
	}
	if d.PositionFraction <= 0 || d.PositionFraction > 1 {
		return Decision{}, fmt.Errorf("%w: got %.4f", ErrPositionFraction, d.PositionFraction)
	}
	if d.Price < 0 {
		return Decision{}, fmt.Errorf("%w: got %.4f", ErrNegativePrice, d.Price)
	}
	if d.ATRPercent < 0 {
		return Decision{}, fmt.Errorf("%w: got %.4f", ErrNegativeATR, d.ATRPercent)
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	if d.Quote == "" {
		d.Quote = "USDT"
	}
	if d.Timeframe == "" {
		d.Timeframe = "1h"
	}
	return d, nil
}
