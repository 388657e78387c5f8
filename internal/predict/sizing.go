package predict

import "math"

// Volatility targeting defaults.
const (
	DefaultVolTargetAnnual = 0.20
	MinPositionFraction    = 0.02
	MaxPositionFraction    = 0.30
)

// VolatilityTargetPosition sizes a position inversely to volatility measured
// via ATR%, targeting a constant annualized risk. The annual target is scaled
// to a daily one by sqrt(252) trading days even though crypto markets trade
// continuously; the result is clamped to [minFrac, maxFrac].
func VolatilityTargetPosition(atrPct, volTargetAnnual, minFrac, maxFrac float64) float64 {
	if volTargetAnnual <= 0 {
		volTargetAnnual = DefaultVolTargetAnnual
	}
	volTargetDaily := volTargetAnnual / math.Sqrt(252)
	currentVol := math.Max(atrPct, 1e-6)
	frac := volTargetDaily / currentVol
	return math.Max(minFrac, math.Min(maxFrac, frac))
}
