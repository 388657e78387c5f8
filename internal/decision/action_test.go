package decision

import "testing"

func TestActionFromProbabilities(t *testing.T) {
	tests := []struct {
		name            string
		buy, sell       float64
		buyThr, sellThr float64
		want            Action
	}{
		{"strong buy", 0.7, 0.1, 0.6, 0.6, ActionBuy},
		{"strong sell", 0.1, 0.7, 0.6, 0.6, ActionSell},
		{"both below threshold", 0.4, 0.3, 0.6, 0.6, ActionFlat},
		{"buy at exact threshold", 0.6, 0.1, 0.6, 0.6, ActionBuy},
		{"sell at exact threshold", 0.1, 0.6, 0.6, 0.6, ActionSell},
		{"tie above threshold stays flat", 0.5, 0.5, 0.4, 0.4, ActionFlat},
		{"buy above threshold but below sell", 0.61, 0.62, 0.6, 0.7, ActionFlat},
		{"asymmetric thresholds", 0.45, 0.2, 0.4, 0.8, ActionBuy},
		{"zero everything", 0, 0, 0.6, 0.6, ActionFlat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActionFromProbabilities(tt.buy, tt.sell, tt.buyThr, tt.sellThr)
			if got != tt.want {
				t.Errorf("ActionFromProbabilities(%.2f, %.2f, %.2f, %.2f) = %s, want %s",
					tt.buy, tt.sell, tt.buyThr, tt.sellThr, got, tt.want)
			}
		})
	}
}

func TestIsDirectional(t *testing.T) {
	if !ActionBuy.IsDirectional() || !ActionSell.IsDirectional() {
		t.Error("BUY and SELL must be directional")
	}
	if ActionFlat.IsDirectional() {
		t.Error("FLAT must not be directional")
	}
}
