package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a session lookup comes up empty.
var ErrNotFound = errors.New("session not found")

// Repository persists session snapshots.
type Repository interface {
	SaveSession(ctx context.Context, snap Snapshot) error
	FindSession(ctx context.Context, id string) (Snapshot, error)
	RecentSessions(ctx context.Context, limit int) ([]Snapshot, error)
}

// MemoryRepository is an in-memory Repository for tests and ephemeral runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Snapshot
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]Snapshot)}
}

func (r *MemoryRepository) SaveSession(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[snap.ID] = snap
	return nil
}

func (r *MemoryRepository) FindSession(_ context.Context, id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (r *MemoryRepository) RecentSessions(_ context.Context, limit int) ([]Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.sessions))
	for _, snap := range r.sessions {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
