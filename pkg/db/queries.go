package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/execution"
	"trading-intelligence/internal/session"
)

// SaveSession upserts a session snapshot. Implements session.Repository.
func (d *Database) SaveSession(ctx context.Context, snap session.Snapshot) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO sessions (
			id, symbol, status, error, decision_interval_seconds, max_decisions,
			decision_count, buy_count, sell_count, flat_count,
			created_at, started_at, stopped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			decision_count = excluded.decision_count,
			buy_count = excluded.buy_count,
			sell_count = excluded.sell_count,
			flat_count = excluded.flat_count,
			started_at = excluded.started_at,
			stopped_at = excluded.stopped_at
	`,
		snap.ID, snap.Symbol, string(snap.Status), snap.Error,
		snap.IntervalSeconds, snap.MaxDecisions,
		snap.DecisionCount, snap.BuyCount, snap.SellCount, snap.FlatCount,
		snap.CreatedAt, nullTime(snap.StartedAt), nullTime(snap.StoppedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// FindSession returns the stored snapshot for id.
func (d *Database) FindSession(ctx context.Context, id string) (session.Snapshot, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, symbol, status, error, decision_interval_seconds, max_decisions,
		       decision_count, buy_count, sell_count, flat_count,
		       created_at, started_at, stopped_at
		FROM sessions WHERE id = ?
	`, id)
	snap, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Snapshot{}, session.ErrNotFound
	}
	return snap, err
}

// RecentSessions returns the newest sessions first.
func (d *Database) RecentSessions(ctx context.Context, limit int) ([]session.Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, status, error, decision_interval_seconds, max_decisions,
		       decision_count, buy_count, sell_count, flat_count,
		       created_at, started_at, stopped_at
		FROM sessions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Snapshot
	for rows.Next() {
		snap, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (session.Snapshot, error) {
	var (
		snap               session.Snapshot
		status             string
		started, stopped   sql.NullTime
	)
	err := row.Scan(
		&snap.ID, &snap.Symbol, &status, &snap.Error,
		&snap.IntervalSeconds, &snap.MaxDecisions,
		&snap.DecisionCount, &snap.BuyCount, &snap.SellCount, &snap.FlatCount,
		&snap.CreatedAt, &started, &stopped,
	)
	if err != nil {
		return session.Snapshot{}, err
	}
	snap.Status = session.Status(status)
	snap.DecisionInterval = time.Duration(snap.IntervalSeconds) * time.Second
	if started.Valid {
		snap.StartedAt = started.Time
	}
	if stopped.Valid {
		snap.StoppedAt = stopped.Time
	}
	return snap, nil
}

// SaveDecision stores one generated decision. Implements decision.Repository.
func (d *Database) SaveDecision(ctx context.Context, sessionID string, dec decision.Decision) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO decisions (
			id, session_id, symbol, action, buy_probability, sell_probability,
			price, quote, position_fraction, atr_percent, timeframe,
			confidence, risk_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		dec.ID, sessionID, dec.Symbol, string(dec.Action),
		dec.BuyProbability, dec.SellProbability,
		dec.Price, dec.Quote, dec.PositionFraction, dec.ATRPercent,
		dec.Timeframe, dec.Confidence, dec.RiskScore, dec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest decisions first.
func (d *Database) RecentDecisions(ctx context.Context, limit int) ([]decision.Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, action, buy_probability, sell_probability,
		       price, quote, position_fraction, atr_percent, timeframe,
		       confidence, risk_score, created_at
		FROM decisions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []decision.Decision
	for rows.Next() {
		var (
			dec    decision.Decision
			action string
		)
		if err := rows.Scan(
			&dec.ID, &dec.Symbol, &action,
			&dec.BuyProbability, &dec.SellProbability,
			&dec.Price, &dec.Quote, &dec.PositionFraction, &dec.ATRPercent,
			&dec.Timeframe, &dec.Confidence, &dec.RiskScore, &dec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		dec.Action = decision.Action(action)
		out = append(out, dec)
	}
	return out, rows.Err()
}

// SaveOrder stores a submitted order. Implements execution.TradeStore.
func (d *Database) SaveOrder(ctx context.Context, o execution.OrderRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (id, symbol, side, qty, price, exchange_order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.Symbol, o.Side, o.Quantity, o.Price, o.ExchangeOrderID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// SaveClosedTrade stores a realized round trip.
func (d *Database) SaveClosedTrade(ctx context.Context, t execution.ClosedTrade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO closed_trades (id, symbol, qty, entry_price, exit_price, pnl, reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.PnL, t.Reason, t.OpenedAt, t.ClosedAt)
	if err != nil {
		return fmt.Errorf("save closed trade: %w", err)
	}
	return nil
}

// User is an application user row.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new user.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up a user for login.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
