package lock

import (
	"context"
	"sync"
)

// KeyedMutex hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits for them, so the map only grows with live contention.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, entry)
		return ctx.Err()
	}
}

func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-entry.sem
	k.release(key, entry)
}

func (k *KeyedMutex) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs <= 0 {
		delete(k.entries, key)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
