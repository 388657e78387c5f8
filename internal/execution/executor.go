// Package execution turns directional decisions into exchange orders under
// strict risk gates and tracks the resulting positions.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/events"
	"trading-intelligence/internal/market"
	"trading-intelligence/internal/risk"
)

// Safety gate failures. These mean the order was never submitted; they are
// distinct from submission failures, which wrap the order client's error.
var (
	ErrTradingDisabled     = errors.New("live execution not enabled")
	ErrDailyTradeLimit     = errors.New("daily trade limit reached")
	ErrInsufficientBalance = errors.New("account balance below minimum")
	ErrOrderTooSmall       = errors.New("computed quantity rounds to zero")
	ErrNoPosition          = errors.New("no open position for symbol")
)

// OrderClient submits market orders to the exchange. Failures are typed and
// non-retrying.
type OrderClient interface {
	MarketBuy(ctx context.Context, symbol string, qty float64) (orderID string, err error)
	MarketSell(ctx context.Context, symbol string, qty float64) (orderID string, err error)
}

// BalanceSource reports the free quote balance used for sizing.
type BalanceSource interface {
	Available(ctx context.Context) (float64, error)
}

// Ledger adjusts a cached balance after fills so successive orders size
// against what is actually left, not a stale snapshot. Balance sources that
// track real exchange state may skip it; the next sync reconciles.
type Ledger interface {
	Spend(amount float64)
	Credit(amount float64)
}

// TradeStore persists order and closed-trade records. Optional; persistence
// failures are logged but never undo an already-filled order.
type TradeStore interface {
	SaveOrder(ctx context.Context, o OrderRecord) error
	SaveClosedTrade(ctx context.Context, t ClosedTrade) error
}

// Position is an open, risk-bearing holding from a filled buy order.
type Position struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	OrderID    string    `json:"order_id"`
}

// OrderRecord is the persisted form of a submitted order.
type OrderRecord struct {
	ID              string
	Symbol          string
	Side            string
	Quantity        float64
	Price           float64
	ExchangeOrderID string
	CreatedAt       time.Time
}

// ClosedTrade is a realized round trip.
type ClosedTrade struct {
	ID         string
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Executor validates safety preconditions, sizes positions, submits orders
// and tracks open positions. A single mutex serializes all order flow so that
// concurrent sessions cannot jointly overdraw the shared balance or the daily
// trade counter.
type Executor struct {
	limits  risk.Limits
	orders  OrderClient
	market  market.Data
	balance BalanceSource
	store   TradeStore
	bus     *events.Bus
	enabled bool

	mu          sync.Mutex
	positions   map[string]Position
	dailyTrades int
	tradeDay    string // yyyy-mm-dd of the counter
}

// NewExecutor creates a risk-gated executor. enabled must be explicitly true
// for any order to be submitted.
func NewExecutor(limits risk.Limits, orders OrderClient, marketData market.Data, balance BalanceSource, store TradeStore, bus *events.Bus, enabled bool) *Executor {
	return &Executor{
		limits:    limits,
		orders:    orders,
		market:    marketData,
		balance:   balance,
		store:     store,
		bus:       bus,
		enabled:   enabled,
		positions: make(map[string]Position),
	}
}

// Execute acts on a directional decision at its quoted price. FLAT decisions
// are ignored.
func (e *Executor) Execute(ctx context.Context, d decision.Decision) error {
	switch d.Action {
	case decision.ActionBuy:
		_, err := e.ExecuteBuy(ctx, d.Symbol, d.Price)
		return err
	case decision.ActionSell:
		_, err := e.ExecuteSell(ctx, d.Symbol, d.Price, "sell signal")
		return err
	default:
		return nil
	}
}

// ExecuteBuy runs the safety gates, sizes the order and submits a market buy.
// On success the position is recorded and the daily counter incremented; on
// any failure no state changes.
func (e *Executor) ExecuteBuy(ctx context.Context, symbol string, price float64) (Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rollTradeDayLocked()

	if !e.enabled {
		return Position{}, ErrTradingDisabled
	}
	if e.dailyTrades >= e.limits.MaxDailyTrades {
		return Position{}, fmt.Errorf("%w: %d/%d", ErrDailyTradeLimit, e.dailyTrades, e.limits.MaxDailyTrades)
	}

	bal, err := e.balance.Available(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("fetch balance: %w", err)
	}
	if bal < e.limits.MinAccountBalance {
		return Position{}, fmt.Errorf("%w: %.2f < %.2f", ErrInsufficientBalance, bal, e.limits.MinAccountBalance)
	}

	notional := math.Min(bal*e.limits.PositionSizePercent/100, e.limits.MaxPositionNotional)
	if price <= 0 {
		return Position{}, fmt.Errorf("%w: price %.8f", ErrOrderTooSmall, price)
	}

	step, err := e.market.LotStep(ctx, symbol)
	if err != nil {
		return Position{}, fmt.Errorf("fetch lot step for %s: %w", symbol, err)
	}
	qty := truncateToStep(notional/price, step)
	if qty <= 0 {
		return Position{}, fmt.Errorf("%w: notional %.2f at price %.2f", ErrOrderTooSmall, notional, price)
	}

	orderID, err := e.orders.MarketBuy(ctx, symbol, qty)
	if err != nil {
		// Submission failure: no state mutation.
		return Position{}, fmt.Errorf("submit market buy %s: %w", symbol, err)
	}

	pos := Position{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  time.Now().UTC(),
		OrderID:    orderID,
	}
	e.positions[symbol] = pos // replace, don't mutate, on re-entry
	e.dailyTrades++
	if ledger, ok := e.balance.(Ledger); ok {
		ledger.Spend(qty * price)
	}

	e.persistOrder(ctx, OrderRecord{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Side:            "BUY",
		Quantity:        qty,
		Price:           price,
		ExchangeOrderID: orderID,
		CreatedAt:       pos.EntryTime,
	})
	if e.bus != nil {
		e.bus.Publish(events.EventPositionOpened, events.PositionOpenedEvent{
			Type:       string(events.EventPositionOpened),
			Symbol:     symbol,
			Quantity:   qty,
			EntryPrice: price,
			Timestamp:  pos.EntryTime,
		})
	}

	log.Printf("executor: BUY %s qty=%.8f notional=%.2f order=%s", symbol, qty, qty*price, orderID)
	return pos, nil
}

// ExecuteSell closes the open position for symbol at exitPrice and realizes
// its PnL. Fails with ErrNoPosition when none is open; submission failures
// leave the position untouched.
func (e *Executor) ExecuteSell(ctx context.Context, symbol string, exitPrice float64, reason string) (ClosedTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rollTradeDayLocked()

	pos, ok := e.positions[symbol]
	if !ok {
		return ClosedTrade{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}

	if _, err := e.orders.MarketSell(ctx, symbol, pos.Quantity); err != nil {
		return ClosedTrade{}, fmt.Errorf("submit market sell %s: %w", symbol, err)
	}

	pnl := (exitPrice - pos.EntryPrice) * pos.Quantity
	closed := ClosedTrade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		Reason:     reason,
		OpenedAt:   pos.EntryTime,
		ClosedAt:   time.Now().UTC(),
	}
	delete(e.positions, symbol)
	e.dailyTrades++
	if ledger, ok := e.balance.(Ledger); ok {
		ledger.Credit(exitPrice * pos.Quantity)
	}

	if e.store != nil {
		if err := e.store.SaveClosedTrade(ctx, closed); err != nil {
			log.Printf("executor: store closed trade: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.EventPositionClosed, events.PositionClosedEvent{
			Type:      string(events.EventPositionClosed),
			Symbol:    symbol,
			Quantity:  pos.Quantity,
			PnL:       pnl,
			Reason:    reason,
			Timestamp: closed.ClosedAt,
		})
	}

	log.Printf("executor: SELL %s qty=%.8f pnl=%.2f reason=%q", symbol, pos.Quantity, pnl, reason)
	return closed, nil
}

// CloseAll exits every open position, used on graceful shutdown so nothing is
// left unmonitored. Failures are logged per position; the rest still close.
func (e *Executor) CloseAll(ctx context.Context, reason string) {
	for _, pos := range e.Positions() {
		price, err := e.market.CurrentPrice(ctx, pos.Symbol)
		if err != nil {
			log.Printf("executor: close %s: price unavailable: %v", pos.Symbol, err)
			price = pos.EntryPrice
		}
		if _, err := e.ExecuteSell(ctx, pos.Symbol, price, reason); err != nil {
			log.Printf("executor: close %s failed: %v", pos.Symbol, err)
		}
	}
}

// Positions returns a snapshot of all open positions.
func (e *Executor) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	return out
}

// Position returns the open position for symbol, if any.
func (e *Executor) Position(symbol string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[symbol]
	return p, ok
}

// DailyTrades returns today's filled order count.
func (e *Executor) DailyTrades() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollTradeDayLocked()
	return e.dailyTrades
}

// Limits exposes the configured risk limits.
func (e *Executor) Limits() risk.Limits { return e.limits }

func (e *Executor) persistOrder(ctx context.Context, rec OrderRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveOrder(ctx, rec); err != nil {
		log.Printf("executor: store order: %v", err)
	}
}

// rollTradeDayLocked resets the daily counter on date change. Caller holds
// e.mu.
func (e *Executor) rollTradeDayLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if e.tradeDay != today {
		if e.tradeDay != "" && e.dailyTrades > 0 {
			log.Printf("executor: daily counter reset, previous day %s trades=%d", e.tradeDay, e.dailyTrades)
		}
		e.tradeDay = today
		e.dailyTrades = 0
	}
}

// truncateToStep rounds qty down to the exchange's minimum step size.
// Truncation, never rounding up, avoids over-allocating.
func truncateToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	return math.Floor(qty/step) * step
}
