package predict

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Stub generates synthetic predictions. It stands in for a trained model
// during development and in paper mode; the value distribution mirrors what a
// calibrated classifier would emit (probabilities summing below 1, an ATR in
// the low single digits, a volatility-targeted position fraction).
type Stub struct {
	VolTargetAnnual float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStub creates a stub predictor seeded from the wall clock.
func NewStub() *Stub {
	return &Stub{
		VolTargetAnnual: DefaultVolTargetAnnual,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Stub) Predict(_ context.Context, symbol, timeframe string) (Prediction, error) {
	s.mu.Lock()
	base := s.rng.Float64()*0.5 + 0.3  // 0.3..0.8
	noise := s.rng.Float64()*0.4 - 0.2 // -0.2..0.2
	atrPct := s.rng.Float64()*0.04 + 0.01
	s.mu.Unlock()

	probaBuy := clamp01(base + noise)
	probaSell := clamp01(1.0 - base + noise)

	// Leave headroom for a flat outcome when both signals are strong.
	if total := probaBuy + probaSell; total > 1.0 {
		factor := 0.9 / total
		probaBuy *= factor
		probaSell *= factor
	}

	return Prediction{
		Symbol:           symbol,
		Timeframe:        timeframe,
		ProbaBuy:         probaBuy,
		ProbaSell:        probaSell,
		PositionFraction: VolatilityTargetPosition(atrPct, s.VolTargetAnnual, MinPositionFraction, MaxPositionFraction),
		ATRPct:           atrPct,
		RiskScore:        max(probaBuy, probaSell),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
