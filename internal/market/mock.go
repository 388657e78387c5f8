package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trading-intelligence/internal/events"
)

// Mock is a synthetic market data source for paper trading and local
// development. Prices follow a simple random walk per symbol.
type Mock struct {
	StartPrice float64
	Step       float64
	LotSize    float64

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewMock creates a mock data source seeded from the wall clock.
func NewMock(startPrice, step float64) *Mock {
	return &Mock{
		StartPrice: startPrice,
		Step:       step,
		LotSize:    0.00001,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		prices:     make(map[string]float64),
	}
}

func (m *Mock) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walk(symbol), nil
}

func (m *Mock) Ticker24h(_ context.Context, symbol string) (Ticker24h, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price := m.walk(symbol)
	changePct := (price/m.StartPrice - 1) * 100
	return Ticker24h{
		Symbol:             symbol,
		PriceChangePercent: changePct,
		Volume:             m.rng.Float64() * 10000,
	}, nil
}

func (m *Mock) LotStep(_ context.Context, _ string) (float64, error) {
	return m.LotSize, nil
}

// walk advances the random walk for symbol. Caller holds m.mu.
func (m *Mock) walk(symbol string) float64 {
	price, ok := m.prices[symbol]
	if !ok {
		price = m.StartPrice
		if price == 0 {
			price = 100.0
		}
	}
	step := m.Step
	if step == 0 {
		step = 0.5
	}
	price += (m.rng.Float64()*2 - 1) * step
	if price <= 0 {
		price = step
	}
	m.prices[symbol] = price
	return price
}

// StreamTicks publishes one price tick per symbol at the given interval until
// ctx is cancelled. Used to drive the websocket price stream in paper mode.
func (m *Mock) StreamTicks(ctx context.Context, bus *events.Bus, symbols []string, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, sym := range symbols {
					price, _ := m.CurrentPrice(ctx, sym)
					bus.Publish(events.EventPriceTick, struct {
						Symbol string  `json:"symbol"`
						Price  float64 `json:"price"`
					}{Symbol: sym, Price: price})
				}
			}
		}
	}()
}
