package decision

import (
	"context"
	"errors"
	"fmt"
	"math"

	"trading-intelligence/internal/market"
	"trading-intelligence/internal/predict"
)

// ErrUnavailable wraps a collaborator failure (prediction or market data).
// Callers treat it as transient and retry after a backoff.
var ErrUnavailable = errors.New("collaborator unavailable")

// Repository persists generated decisions.
type Repository interface {
	SaveDecision(ctx context.Context, sessionID string, d Decision) error
	RecentDecisions(ctx context.Context, limit int) ([]Decision, error)
}

// Request carries the parameters for one decision generation.
type Request struct {
	SessionID     string
	Symbol        string
	Timeframe     string
	BuyThreshold  float64
	SellThreshold float64
}

// Engine combines a prediction signal and a price quote into a validated
// Decision.
type Engine struct {
	predictor predict.Predictor
	market    market.Data
	repo      Repository
}

// NewEngine creates a decision engine. repo may be nil when persistence is
// handled elsewhere (tests).
func NewEngine(predictor predict.Predictor, marketData market.Data, repo Repository) *Engine {
	return &Engine{predictor: predictor, market: marketData, repo: repo}
}

// Generate runs one prediction cycle. Collaborator failures come back wrapped
// in ErrUnavailable; invariant violations surface as the validation errors
// from New. The caller is never crashed.
func (e *Engine) Generate(ctx context.Context, req Request) (Decision, error) {
	pred, err := e.predictor.Predict(ctx, req.Symbol, req.Timeframe)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: predict %s: %v", ErrUnavailable, req.Symbol, err)
	}

	price, err := e.market.CurrentPrice(ctx, req.Symbol)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: current price %s: %v", ErrUnavailable, req.Symbol, err)
	}

	action := ActionFromProbabilities(pred.ProbaBuy, pred.ProbaSell, req.BuyThreshold, req.SellThreshold)

	dec, err := New(Decision{
		Symbol:           req.Symbol,
		Action:           action,
		BuyProbability:   pred.ProbaBuy,
		SellProbability:  pred.ProbaSell,
		Price:            price,
		PositionFraction: pred.PositionFraction,
		ATRPercent:       pred.ATRPct,
		Timeframe:        req.Timeframe,
		Confidence:       math.Max(pred.ProbaBuy, pred.ProbaSell),
		RiskScore:        pred.RiskScore,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("construct decision for %s: %w", req.Symbol, err)
	}

	if e.repo != nil {
		if err := e.repo.SaveDecision(ctx, req.SessionID, dec); err != nil {
			return Decision{}, fmt.Errorf("%w: save decision %s: %v", ErrUnavailable, dec.ID, err)
		}
	}
	return dec, nil
}
