package decision

// Action is the directional outcome of a decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionFlat Action = "FLAT"
)

// ActionFromProbabilities applies the threshold rule to a buy/sell probability
// pair. A signal must both clear its threshold and beat the opposite signal;
// equal probabilities or sub-threshold signals resolve to FLAT.
func ActionFromProbabilities(buyProb, sellProb, buyThreshold, sellThreshold float64) Action {
	switch {
	case buyProb >= buyThreshold && buyProb > sellProb:
		return ActionBuy
	case sellProb >= sellThreshold && sellProb > buyProb:
		return ActionSell
	default:
		return ActionFlat
	}
}

// IsDirectional reports whether the action implies an order (BUY or SELL).
func (a Action) IsDirectional() bool {
	return a == ActionBuy || a == ActionSell
}
