package memory

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist is a mutex-guarded set of invalidated token IDs. Entries are
// pruned lazily once their retention time has passed.
type TokenBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *TokenBlacklist) Add(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, id)
		}
	}
	if now.After(until) {
		return false, nil
	}
	if _, ok := b.entries[tokenID]; ok {
		return false, nil
	}
	b.entries[tokenID] = until
	return true, nil
}

func (b *TokenBlacklist) Contains(ctx context.Context, tokenID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	until, ok := b.entries[tokenID]
	if !ok {
		return false, nil
	}
	return !b.now().After(until), nil
}

// Len reports the number of retained entries.
func (b *TokenBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
