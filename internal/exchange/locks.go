// internal/exchange/locks.go
package exchange

import (
	"cmp"
	"slices"
	"sync"
)

// KeyedMutex hands out one mutex per key. Entries are reference counted and
// dropped once nobody holds or waits for them, so the table stays proportional
// to the number of keys in flight.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: make(map[K]*keyedEntry)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (km *KeyedMutex[K]) Lock(key K) (unlock func()) {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &keyedEntry{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		km.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

// LockAll locks every distinct key in the order given by compare, which must be
// the same total order for all callers. Unlock releases in reverse.
func (km *KeyedMutex[K]) LockAll(compare func(a, b K) int, keys ...K) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, compare)
	sorted = slices.CompactFunc(sorted, func(a, b K) bool { return compare(a, b) == 0 })

	unlocks := make([]func(), 0, len(sorted))
	for _, k := range sorted {
		unlocks = append(unlocks, km.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Held returns the number of keys currently locked or awaited.
func (km *KeyedMutex[K]) Held() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}

// CompareDates orders dates chronologically.
func CompareDates(a, b Date) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	return cmp.Compare(a.Day, b.Day)
}
