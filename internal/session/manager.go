package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/events"
)

// ErrSessionExists is returned when a start request hits a symbol that
// already has an ACTIVE or PAUSED session.
var ErrSessionExists = errors.New("active session already exists for symbol")

// Engine generates one decision per tick.
type Engine interface {
	Generate(ctx context.Context, req decision.Request) (decision.Decision, error)
}

// Trader acts on directional decisions. Nil when live execution is disabled.
type Trader interface {
	Execute(ctx context.Context, d decision.Decision) error
}

// ExitMonitor runs the stop-loss/take-profit pass each tick.
type ExitMonitor interface {
	Check(ctx context.Context)
}

// Defaults are the session parameters applied when a start request leaves
// them unset.
type Defaults struct {
	Timeframe     string
	Interval      time.Duration
	MaxDecisions  int
	BuyThreshold  float64
	SellThreshold float64
}

// Manager owns every trading session and its scheduler goroutine. It
// enforces the system-wide invariant of at most one ACTIVE/PAUSED session per
// symbol; the check-then-create in Start is atomic under the manager mutex.
type Manager struct {
	engine   Engine
	repo     Repository
	bus      *events.Bus
	trader   Trader
	monitor  ExitMonitor
	defaults Defaults

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session // latest session per symbol
	runners  map[string]*runner  // running scheduler per symbol
}

// runner retains the cancellation handle of one scheduler loop so stop can be
// awaited, never just requested.
type runner struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a session manager. trader and monitor may be nil (paper
// mode without execution).
func NewManager(engine Engine, repo Repository, bus *events.Bus, trader Trader, monitor ExitMonitor, defaults Defaults) *Manager {
	if defaults.Timeframe == "" {
		defaults.Timeframe = "1h"
	}
	if defaults.Interval <= 0 {
		defaults.Interval = time.Minute
	}
	if defaults.MaxDecisions <= 0 {
		defaults.MaxDecisions = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		engine:   engine,
		repo:     repo,
		bus:      bus,
		trader:   trader,
		monitor:  monitor,
		defaults: defaults,
		baseCtx:  ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		runners:  make(map[string]*runner),
	}
}

// StartOptions override the manager defaults for one session.
type StartOptions struct {
	Interval      time.Duration
	MaxDecisions  int
	Timeframe     string
	BuyThreshold  float64
	SellThreshold float64
}

// Start creates and activates a session for symbol and launches its decision
// scheduler. It fails with ErrSessionExists when the symbol already has an
// ACTIVE or PAUSED session.
func (m *Manager) Start(ctx context.Context, symbol string, opts StartOptions) (Snapshot, error) {
	cfg := Config{
		Timeframe:        m.defaults.Timeframe,
		DecisionInterval: m.defaults.Interval,
		MaxDecisions:     m.defaults.MaxDecisions,
		BuyThreshold:     m.defaults.BuyThreshold,
		SellThreshold:    m.defaults.SellThreshold,
	}
	if opts.Interval > 0 {
		cfg.DecisionInterval = opts.Interval
	}
	if opts.MaxDecisions > 0 {
		cfg.MaxDecisions = opts.MaxDecisions
	}
	if opts.Timeframe != "" {
		cfg.Timeframe = opts.Timeframe
	}
	if opts.BuyThreshold > 0 {
		cfg.BuyThreshold = opts.BuyThreshold
	}
	if opts.SellThreshold > 0 {
		cfg.SellThreshold = opts.SellThreshold
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[symbol]; ok {
		switch existing.Status() {
		case StatusActive, StatusPaused:
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionExists, symbol)
		}
	}

	sess := New(symbol, cfg)
	if err := sess.Start(); err != nil {
		return Snapshot{}, err
	}
	if err := m.repo.SaveSession(ctx, sess.Snapshot()); err != nil {
		return Snapshot{}, fmt.Errorf("save session: %w", err)
	}

	runCtx, cancel := context.WithCancel(m.baseCtx)
	r := &runner{cancel: cancel, done: make(chan struct{})}
	m.sessions[symbol] = sess
	m.runners[symbol] = r
	go m.runLoop(runCtx, sess, r.done)

	m.publishSessionEvent(sess)
	log.Printf("session: started %s for %s interval=%s", sess.ID(), symbol, cfg.DecisionInterval)
	return sess.Snapshot(), nil
}

// Stop cancels the symbol's scheduler, waits for the loop to vacate, then
// marks the session stopped and persists it. Stopping an already stopped
// session succeeds idempotently.
func (m *Manager) Stop(ctx context.Context, symbol string) (Snapshot, error) {
	m.mu.Lock()
	sess, ok := m.sessions[symbol]
	r := m.runners[symbol]
	delete(m.runners, symbol)
	m.mu.Unlock()

	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	if r != nil {
		r.cancel()
		<-r.done // no ticks run past this point
	}

	sess.Stop()
	if err := m.repo.SaveSession(ctx, sess.Snapshot()); err != nil {
		log.Printf("session: persist stopped %s: %v", sess.ID(), err)
	}
	m.publishSessionEvent(sess)
	log.Printf("session: stopped %s for %s", sess.ID(), symbol)
	return sess.Snapshot(), nil
}

// Pause suspends decision generation for symbol; the scheduler keeps ticking
// but skips work until Resume.
func (m *Manager) Pause(ctx context.Context, symbol string) (Snapshot, error) {
	sess, err := m.liveSession(symbol)
	if err != nil {
		return Snapshot{}, err
	}
	if err := sess.Pause(); err != nil {
		return Snapshot{}, err
	}
	m.persist(ctx, sess)
	m.publishSessionEvent(sess)
	return sess.Snapshot(), nil
}

// Resume reactivates a paused session.
func (m *Manager) Resume(ctx context.Context, symbol string) (Snapshot, error) {
	sess, err := m.liveSession(symbol)
	if err != nil {
		return Snapshot{}, err
	}
	if err := sess.Resume(); err != nil {
		return Snapshot{}, err
	}
	m.persist(ctx, sess)
	m.publishSessionEvent(sess)
	return sess.Snapshot(), nil
}

// Status returns the latest session snapshot for symbol.
func (m *Manager) Status(symbol string) (Snapshot, error) {
	sess, err := m.liveSession(symbol)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// ActiveSymbols lists symbols with an ACTIVE or PAUSED session.
func (m *Manager) ActiveSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for sym, sess := range m.sessions {
		switch sess.Status() {
		case StatusActive, StatusPaused:
			out = append(out, sym)
		}
	}
	return out
}

// Shutdown stops every running scheduler and waits for each loop to vacate.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.runners))
	for sym := range m.runners {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()

	for _, sym := range symbols {
		if _, err := m.Stop(ctx, sym); err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("session: shutdown stop %s: %v", sym, err)
		}
	}
	m.cancel()
}

func (m *Manager) liveSession(symbol string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return sess, nil
}

func (m *Manager) persist(ctx context.Context, sess *Session) {
	if err := m.repo.SaveSession(ctx, sess.Snapshot()); err != nil {
		log.Printf("session: persist %s: %v", sess.ID(), err)
	}
}

func (m *Manager) publishSessionEvent(sess *Session) {
	if m.bus == nil {
		return
	}
	snap := sess.Snapshot()
	m.bus.Publish(events.EventSessionUpdate, events.SessionEvent{
		Type:      string(events.EventSessionUpdate),
		SessionID: snap.ID,
		Symbol:    snap.Symbol,
		Status:    string(snap.Status),
		Timestamp: time.Now().UTC(),
	})
}
