package session

import (
	"errors"
	"testing"
	"time"

	"trading-intelligence/internal/decision"
)

func testDecision(t *testing.T, symbol string) decision.Decision {
	t.Helper()
	d, err := decision.New(decision.Decision{
		Symbol:           symbol,
		Action:           decision.ActionBuy,
		BuyProbability:   0.7,
		SellProbability:  0.1,
		Price:            100,
		PositionFraction: 0.1,
	})
	if err != nil {
		t.Fatalf("build decision: %v", err)
	}
	return d
}

func TestLifecycleTransitions(t *testing.T) {
	s := New("BTCUSDT", Config{})
	if s.Status() != StatusCreated {
		t.Fatalf("status = %s, want CREATED", s.Status())
	}

	if err := s.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pause from CREATED: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume from CREATED: err = %v, want ErrInvalidTransition", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status() != StatusActive {
		t.Fatalf("status = %s, want ACTIVE", s.Status())
	}
	if err := s.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start: err = %v, want ErrInvalidTransition", err)
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double pause: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	s.Stop()
	if s.Status() != StatusStopped {
		t.Fatalf("status = %s, want STOPPED", s.Status())
	}
	// Stopping again is a no-op success.
	s.Stop()
	if s.Status() != StatusStopped {
		t.Fatalf("status after second stop = %s, want STOPPED", s.Status())
	}
	if err := s.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume stopped session: err = %v, want ErrInvalidTransition", err)
	}
}

func TestMarkErrorIsTerminal(t *testing.T) {
	s := New("BTCUSDT", Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.MarkError("predictor exploded")
	if s.Status() != StatusError {
		t.Fatalf("status = %s, want ERROR", s.Status())
	}
	// Stop must not overwrite the ERROR state.
	s.Stop()
	if s.Status() != StatusError {
		t.Fatalf("status after stop = %s, want ERROR preserved", s.Status())
	}
	if snap := s.Snapshot(); snap.Error != "predictor exploded" {
		t.Errorf("snapshot error = %q", snap.Error)
	}
}

func TestAddDecisionAdmission(t *testing.T) {
	s := New("BTCUSDT", Config{MaxDecisions: 2})

	if err := s.AddDecision(testDecision(t, "BTCUSDT")); !errors.Is(err, ErrNotActive) {
		t.Errorf("add before start: err = %v, want ErrNotActive", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.AddDecision(testDecision(t, "ETHUSDT")); !errors.Is(err, ErrSymbolMismatch) {
		t.Errorf("mismatched symbol: err = %v, want ErrSymbolMismatch", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddDecision(testDecision(t, "BTCUSDT")); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := s.AddDecision(testDecision(t, "BTCUSDT")); !errors.Is(err, ErrMaxDecisions) {
		t.Errorf("add past limit: err = %v, want ErrMaxDecisions", err)
	}
	if s.DecisionCount() != 2 {
		t.Errorf("decision count = %d, want 2", s.DecisionCount())
	}
	// The limit never changes the lifecycle state.
	if s.Status() != StatusActive {
		t.Errorf("status = %s, want ACTIVE", s.Status())
	}

	s.Stop()
	if err := s.AddDecision(testDecision(t, "BTCUSDT")); !errors.Is(err, ErrNotActive) {
		t.Errorf("add after stop: err = %v, want ErrNotActive", err)
	}
}

func TestSnapshotCounts(t *testing.T) {
	s := New("BTCUSDT", Config{DecisionInterval: 30 * time.Second, MaxDecisions: 10})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	actions := []decision.Action{decision.ActionBuy, decision.ActionBuy, decision.ActionSell, decision.ActionFlat}
	for _, a := range actions {
		d := testDecision(t, "BTCUSDT")
		d.Action = a
		if err := s.AddDecision(d); err != nil {
			t.Fatalf("add %s: %v", a, err)
		}
	}

	snap := s.Snapshot()
	if snap.BuyCount != 2 || snap.SellCount != 1 || snap.FlatCount != 1 {
		t.Errorf("counts = buy:%d sell:%d flat:%d, want 2/1/1", snap.BuyCount, snap.SellCount, snap.FlatCount)
	}
	if snap.DecisionCount != 4 {
		t.Errorf("decision count = %d, want 4", snap.DecisionCount)
	}
	if snap.IntervalSeconds != 30 {
		t.Errorf("interval seconds = %d, want 30", snap.IntervalSeconds)
	}
	if snap.LatestDecision == nil || snap.LatestDecision.Action != decision.ActionFlat {
		t.Errorf("latest decision = %+v, want the last appended FLAT", snap.LatestDecision)
	}
}

func TestDefaultsApplied(t *testing.T) {
	s := New("BTCUSDT", Config{})
	cfg := s.Config()
	if cfg.MaxDecisions != 1000 {
		t.Errorf("max decisions = %d, want 1000", cfg.MaxDecisions)
	}
	if cfg.DecisionInterval != time.Minute {
		t.Errorf("interval = %s, want 1m", cfg.DecisionInterval)
	}
}
