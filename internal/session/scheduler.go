package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/events"
)

// retryBackoff is the pause after a transient failure before the next tick.
const retryBackoff = 5 * time.Second

// errFatal marks an unexpected failure that must take the session to ERROR.
var errFatal = errors.New("fatal scheduler failure")

// runLoop is the single scheduler task for one session. It ticks at the
// session's interval until ctx is cancelled; done is closed on exit so Stop
// can await full vacation.
func (m *Manager) runLoop(ctx context.Context, sess *Session, done chan struct{}) {
	defer close(done)

	interval := sess.Config().DecisionInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	log.Printf("scheduler: loop started for %s (%s)", sess.Symbol(), sess.ID())
	defer log.Printf("scheduler: loop ended for %s (%s)", sess.Symbol(), sess.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := m.tick(ctx, sess)
		switch {
		case err == nil:
			timer.Reset(interval)
		case errors.Is(err, errFatal):
			sess.MarkError(err.Error())
			m.persist(ctx, sess)
			m.publishSessionEvent(sess)
			log.Printf("scheduler: fatal failure, session %s marked ERROR: %v", sess.ID(), err)
			return
		case errors.Is(err, ErrNotActive):
			// A stop or error transition raced the tick; the loop is being
			// torn down by its issuer.
			return
		case errors.Is(err, ErrMaxDecisions):
			// Decision limit reached; the session stays ACTIVE until an
			// explicit stop, no further decisions are recorded.
			log.Printf("scheduler: %s reached its decision limit", sess.ID())
			timer.Reset(interval)
		default:
			// Transient: collaborator failure or invalid signal. Retry after
			// a short backoff; the session remains ACTIVE.
			log.Printf("scheduler: tick for %s failed, retrying in %s: %v", sess.Symbol(), retryBackoff, err)
			timer.Reset(retryBackoff)
		}
	}
}

// tick runs one decision cycle: monitor pass, generate, append, persist,
// publish, execute. Panics are converted into errFatal.
func (m *Manager) tick(ctx context.Context, sess *Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errFatal, r)
		}
	}()

	// Exit monitoring runs every tick, including paused ones: open positions
	// stay protected while decision generation is suspended.
	if m.monitor != nil {
		m.monitor.Check(ctx)
	}

	switch sess.Status() {
	case StatusPaused:
		return nil
	case StatusActive:
	default:
		return fmt.Errorf("%w: status is %s", ErrNotActive, sess.Status())
	}

	// Suppress the engine call once the limit is reached instead of failing
	// the append each tick.
	if sess.DecisionCount() >= sess.Config().MaxDecisions {
		return fmt.Errorf("%w: %d", ErrMaxDecisions, sess.Config().MaxDecisions)
	}

	cfg := sess.Config()
	dec, err := m.engine.Generate(ctx, decision.Request{
		SessionID:     sess.ID(),
		Symbol:        sess.Symbol(),
		Timeframe:     cfg.Timeframe,
		BuyThreshold:  cfg.BuyThreshold,
		SellThreshold: cfg.SellThreshold,
	})
	if err != nil {
		return err
	}

	// Status may have changed while the engine was suspended on I/O;
	// AddDecision re-validates under the session lock.
	if err := sess.AddDecision(dec); err != nil {
		return err
	}
	if err := m.repo.SaveSession(ctx, sess.Snapshot()); err != nil {
		return fmt.Errorf("persist session %s: %w", sess.ID(), err)
	}

	if m.bus != nil {
		m.bus.Publish(events.EventDecision, events.DecisionEvent{
			Type:             string(events.EventDecision),
			Symbol:           dec.Symbol,
			Action:           string(dec.Action),
			BuyProbability:   dec.BuyProbability,
			SellProbability:  dec.SellProbability,
			Price:            dec.Price,
			PositionFraction: dec.PositionFraction,
			Timestamp:        dec.Timestamp,
		})
	}

	log.Printf("scheduler: %s decision for %s at %.2f (buy=%.2f sell=%.2f)",
		dec.Action, dec.Symbol, dec.Price, dec.BuyProbability, dec.SellProbability)

	if m.trader != nil && dec.Action.IsDirectional() {
		if err := m.trader.Execute(ctx, dec); err != nil {
			// Safety gates and submission failures are expected here; they
			// never tear down the session.
			log.Printf("scheduler: execution for %s skipped: %v", dec.Symbol, err)
		}
	}
	return nil
}
