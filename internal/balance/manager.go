// Package balance tracks the quote-currency balance the executor sizes
// positions against.
package balance

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNotSynced is returned before the first successful exchange sync.
var ErrNotSynced = errors.New("balance: not synced yet")

// ExchangeClient fetches the free balance for an asset from the exchange.
type ExchangeClient interface {
	FreeBalance(ctx context.Context, asset string) (float64, error)
}

// Manager caches the account balance, refreshing it from the exchange on a
// fixed interval. With no exchange configured it serves a fixed balance
// (paper mode).
type Manager struct {
	exchange     ExchangeClient
	asset        string
	syncInterval time.Duration

	mu        sync.RWMutex
	available float64
	lastSync  time.Time
}

// NewManager creates an exchange-backed balance manager.
func NewManager(exchange ExchangeClient, asset string, syncInterval time.Duration) *Manager {
	if syncInterval <= 0 {
		syncInterval = time.Minute
	}
	return &Manager{exchange: exchange, asset: asset, syncInterval: syncInterval}
}

// NewFixed creates a manager that always reports the given balance.
func NewFixed(available float64) *Manager {
	return &Manager{available: available, lastSync: time.Now()}
}

// Start performs an initial sync and then refreshes periodically until ctx is
// cancelled. No-op for fixed balances.
func (m *Manager) Start(ctx context.Context) {
	if m.exchange == nil {
		return
	}
	if err := m.Sync(ctx); err != nil {
		log.Printf("balance: initial sync failed: %v", err)
	}

	go func() {
		t := time.NewTicker(m.syncInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := m.Sync(ctx); err != nil {
					log.Printf("balance: sync failed: %v", err)
				}
			}
		}
	}()
}

// Sync fetches the latest balance from the exchange.
func (m *Manager) Sync(ctx context.Context) error {
	if m.exchange == nil {
		return nil
	}
	free, err := m.exchange.FreeBalance(ctx, m.asset)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.available = free
	m.lastSync = time.Now()
	m.mu.Unlock()

	log.Printf("balance: synced %s available=%.2f", m.asset, free)
	return nil
}

// Available returns the cached free balance, performing a blocking sync when
// the cache has never been filled.
func (m *Manager) Available(ctx context.Context) (float64, error) {
	m.mu.RLock()
	synced := !m.lastSync.IsZero()
	avail := m.available
	m.mu.RUnlock()

	if synced {
		return avail, nil
	}
	if err := m.Sync(ctx); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastSync.IsZero() {
		return 0, ErrNotSynced
	}
	return m.available, nil
}

// Spend reduces the cached balance after a buy fill; Credit adds back after a
// sell. Keeps paper-mode balances coherent between syncs.
func (m *Manager) Spend(amount float64) {
	m.mu.Lock()
	m.available -= amount
	m.mu.Unlock()
}

// Credit increases the cached balance.
func (m *Manager) Credit(amount float64) {
	m.mu.Lock()
	m.available += amount
	m.mu.Unlock()
}
