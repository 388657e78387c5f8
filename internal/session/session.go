// Package session owns the trading session lifecycle: the per-symbol state
// machine, the manager enforcing one active session per symbol, and the
// periodic decision scheduler.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-intelligence/internal/decision"
)

// Status is the lifecycle state of a trading session.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusActive  Status = "ACTIVE"
	StatusPaused  Status = "PAUSED"
	StatusStopped Status = "STOPPED"
	StatusError   Status = "ERROR"
)

// Validation failures for lifecycle transitions and decision admission. Each
// admission rule reports its own error so callers can tell them apart.
var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotActive         = errors.New("session is not active")
	ErrMaxDecisions      = errors.New("session reached its decision limit")
	ErrSymbolMismatch    = errors.New("decision symbol does not match session")
)

// Config holds per-session scheduling parameters.
type Config struct {
	Timeframe        string
	DecisionInterval time.Duration
	MaxDecisions     int
	BuyThreshold     float64
	SellThreshold    float64
}

// Session is the lifecycle container for one symbol's ordered sequence of
// trading decisions. All state is guarded by an internal mutex: the owning
// scheduler appends decisions while administrative commands (pause/stop) may
// arrive from other goroutines.
type Session struct {
	mu        sync.Mutex
	id        string
	symbol    string
	status    Status
	errMsg    string
	createdAt time.Time
	startedAt time.Time
	stoppedAt time.Time
	decisions []decision.Decision
	cfg       Config
}

// New creates a session in the CREATED state.
func New(symbol string, cfg Config) *Session {
	if cfg.MaxDecisions <= 0 {
		cfg.MaxDecisions = 1000
	}
	if cfg.DecisionInterval <= 0 {
		cfg.DecisionInterval = time.Minute
	}
	return &Session{
		id:        uuid.NewString(),
		symbol:    symbol,
		status:    StatusCreated,
		createdAt: time.Now().UTC(),
		cfg:       cfg,
	}
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Symbol returns the session's symbol.
func (s *Session) Symbol() string { return s.symbol }

// Config returns the scheduling parameters, fixed at creation.
func (s *Session) Config() Config { return s.cfg }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start moves CREATED -> ACTIVE.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return fmt.Errorf("%w: cannot start session in %s state", ErrInvalidTransition, s.status)
	}
	s.status = StatusActive
	s.startedAt = time.Now().UTC()
	return nil
}

// Pause moves ACTIVE -> PAUSED.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return fmt.Errorf("%w: cannot pause session in %s state", ErrInvalidTransition, s.status)
	}
	s.status = StatusPaused
	return nil
}

// Resume moves PAUSED -> ACTIVE.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPaused {
		return fmt.Errorf("%w: cannot resume session in %s state", ErrInvalidTransition, s.status)
	}
	s.status = StatusActive
	return nil
}

// Stop moves any non-terminal state to STOPPED. Stopping an already
// stopped or errored session is a no-op success.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusStopped || s.status == StatusError {
		return
	}
	s.status = StatusStopped
	s.stoppedAt = time.Now().UTC()
}

// MarkError moves the session to the terminal ERROR state from anywhere.
func (s *Session) MarkError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.errMsg = msg
	s.stoppedAt = time.Now().UTC()
}

// AddDecision appends d to the session. It fails when the session is not
// ACTIVE, when the decision limit is reached, or when the symbol does not
// match; the status is re-checked here, under the lock, so a concurrent stop
// cannot race an append.
func (s *Session) AddDecision(d decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return fmt.Errorf("%w: status is %s", ErrNotActive, s.status)
	}
	if len(s.decisions) >= s.cfg.MaxDecisions {
		return fmt.Errorf("%w: %d", ErrMaxDecisions, s.cfg.MaxDecisions)
	}
	if d.Symbol != s.symbol {
		return fmt.Errorf("%w: %s != %s", ErrSymbolMismatch, d.Symbol, s.symbol)
	}
	s.decisions = append(s.decisions, d)
	return nil
}

// DecisionCount returns the number of recorded decisions.
func (s *Session) DecisionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

// Snapshot is a read-only copy of session state for persistence and the API.
type Snapshot struct {
	ID               string             `json:"session_id"`
	Symbol           string             `json:"symbol"`
	Status           Status             `json:"status"`
	Error            string             `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	StartedAt        time.Time          `json:"started_at,omitzero"`
	StoppedAt        time.Time          `json:"stopped_at,omitzero"`
	DecisionInterval time.Duration      `json:"-"`
	IntervalSeconds  int                `json:"decision_interval_seconds"`
	MaxDecisions     int                `json:"max_decisions"`
	DecisionCount    int                `json:"decision_count"`
	BuyCount         int                `json:"buy_count"`
	SellCount        int                `json:"sell_count"`
	FlatCount        int                `json:"flat_count"`
	DurationSeconds  int                `json:"duration_seconds"`
	LatestDecision   *decision.Decision `json:"latest_decision,omitempty"`
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		Symbol:           s.symbol,
		Status:           s.status,
		Error:            s.errMsg,
		CreatedAt:        s.createdAt,
		StartedAt:        s.startedAt,
		StoppedAt:        s.stoppedAt,
		DecisionInterval: s.cfg.DecisionInterval,
		IntervalSeconds:  int(s.cfg.DecisionInterval / time.Second),
		MaxDecisions:     s.cfg.MaxDecisions,
		DecisionCount:    len(s.decisions),
	}
	for i := range s.decisions {
		switch s.decisions[i].Action {
		case decision.ActionBuy:
			snap.BuyCount++
		case decision.ActionSell:
			snap.SellCount++
		default:
			snap.FlatCount++
		}
	}
	if n := len(s.decisions); n > 0 {
		latest := s.decisions[n-1]
		snap.LatestDecision = &latest
	}
	if !s.startedAt.IsZero() {
		end := s.stoppedAt
		if end.IsZero() {
			end = time.Now().UTC()
		}
		snap.DurationSeconds = int(end.Sub(s.startedAt) / time.Second)
	}
	return snap
}
