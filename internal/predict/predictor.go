// Package predict defines the prediction collaborator contract and its
// reference implementations.
package predict

import "context"

// Prediction is one model output for a symbol/timeframe pair.
type Prediction struct {
	Symbol           string  `json:"symbol"`
	Timeframe        string  `json:"timeframe"`
	ProbaBuy         float64 `json:"proba_buy"`
	ProbaSell        float64 `json:"proba_sell"`
	PositionFraction float64 `json:"position_fraction"`
	ATRPct           float64 `json:"atr_pct"`
	RiskScore        float64 `json:"risk_score"`
}

// Predictor produces a prediction signal for a symbol. Implementations must
// be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, symbol, timeframe string) (Prediction, error)
}
