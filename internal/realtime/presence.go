package realtime

import (
	"context"
	"sync"
)

// PresenceRegistry tracks which subjects currently hold a live connection.
// The in-memory implementation covers a single-process deployment; a
// multi-instance deployment swaps in the Redis-backed one without touching
// handler logic.
type PresenceRegistry interface {
	MarkOnline(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64) error
	FilterOnline(ctx context.Context, userIDs []int64) ([]int64, error)
}

type MemoryPresence struct {
	mu     sync.RWMutex
	online map[int64]struct{}
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{online: make(map[int64]struct{})}
}

func (p *MemoryPresence) MarkOnline(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = struct{}{}
	return nil
}

func (p *MemoryPresence) MarkOffline(_ context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

func (p *MemoryPresence) FilterOnline(_ context.Context, userIDs []int64) ([]int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	online := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := p.online[id]; ok {
			online = append(online, id)
		}
	}
	return online, nil
}
