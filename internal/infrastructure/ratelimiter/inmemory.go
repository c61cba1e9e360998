package ratelimiter

import (
	"sync"
	"time"
)

type inMemoryEntry struct {
	state     bucketState
	expiresAt time.Time
}

type InMemory struct {
	cache     map[string]inMemoryEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	cleanOnce sync.Once
}

func NewInMemory() *InMemory {
	im := &InMemory{
		cache:     make(map[string]inMemoryEntry),
		stopClean: make(chan struct{}),
	}

	go im.cleanupExpired()

	return im
}

func (i *InMemory) Get(key string) (bucketState, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.cache[key]
	if !ok {
		return bucketState{}, ErrCacheMiss
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return bucketState{}, ErrCacheMiss
	}

	return entry.state, nil
}

func (i *InMemory) Set(key string, state bucketState, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	i.mu.Lock()
	i.cache[key] = inMemoryEntry{state: state, expiresAt: expiresAt}
	i.mu.Unlock()

	return nil
}

func (i *InMemory) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.removeExpired()
		case <-i.stopClean:
			return
		}
	}
}

func (i *InMemory) removeExpired() {
	now := time.Now()

	i.mu.Lock()
	defer i.mu.Unlock()

	for key, entry := range i.cache {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(i.cache, key)
		}
	}
}

func (i *InMemory) Close() error {
	i.cleanOnce.Do(func() {
		close(i.stopClean)
	})
	return nil
}
