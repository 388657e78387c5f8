package events

import "time"

// Event enumerates high-level topics inside the trading service.
type Event string

const (
	EventDecision       Event = "decision"
	EventSessionUpdate  Event = "session_update"
	EventPositionOpened Event = "position_opened"
	EventPositionClosed Event = "position_closed"
	EventPriceTick      Event = "price_tick"
)

// DecisionEvent is published once per scheduler tick for every generated decision.
type DecisionEvent struct {
	Type             string    `json:"type"` // always "decision"
	Symbol           string    `json:"symbol"`
	Action           string    `json:"action"`
	BuyProbability   float64   `json:"buy_probability"`
	SellProbability  float64   `json:"sell_probability"`
	Price            float64   `json:"price"`
	PositionFraction float64   `json:"position_fraction"`
	Timestamp        time.Time `json:"timestamp"`
}

// PositionClosedEvent is published when the executor exits a position.
type PositionClosedEvent struct {
	Type      string    `json:"type"` // always "position_closed"
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	PnL       float64   `json:"pnl"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionOpenedEvent is published when the executor records a new position.
type PositionOpenedEvent struct {
	Type       string    `json:"type"` // always "position_opened"
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionEvent mirrors a session lifecycle change.
type SessionEvent struct {
	Type      string    `json:"type"` // always "session_update"
	SessionID string    `json:"session_id"`
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
