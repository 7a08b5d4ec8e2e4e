// internal/tour/capacity.go
package tour

import (
	"sync"

	"mmss/internal/exchange"
)

// Ledger counts booked participants per slot. It does no locking of the
// check-then-reserve sequence; callers hold the slot's lock around it.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	booked   map[Slot]int
}

func NewLedger(capacity int) *Ledger {
	return &Ledger{capacity: capacity, booked: make(map[Slot]int)}
}

func (l *Ledger) Capacity() int {
	return l.capacity
}

func (l *Ledger) Booked(slot Slot) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.booked[slot]
}

// Check fails with a Validation error when adding n participants to slot,
// after giving back released, would exceed the capacity.
func (l *Ledger) Check(slot Slot, n, released int) error {
	booked := l.Booked(slot) - released
	if booked+n > l.capacity {
		return exchange.Validation("number_of_participants",
			"slot %s has %d of %d seats left, %d requested", slot, l.capacity-booked, l.capacity, n)
	}
	return nil
}

func (l *Ledger) Reserve(slot Slot, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.booked[slot] += n
}

func (l *Ledger) Release(slot Slot, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.booked[slot] -= n
	if l.booked[slot] <= 0 {
		delete(l.booked, slot)
	}
}

func (l *Ledger) Availability(slot Slot) Availability {
	booked := l.Booked(slot)
	return Availability{
		Slot:      slot,
		Capacity:  l.capacity,
		Booked:    booked,
		Remaining: max(l.capacity-booked, 0),
	}
}
