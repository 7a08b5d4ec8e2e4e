// internal/chaos/target.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"mmss/internal/app"
	"mmss/internal/exchange"
	"mmss/internal/loan"
	"mmss/internal/tour"
	"mmss/internal/visitors"
)

// ErrInjected is returned by a directory while a fault is switched on.
var ErrInjected = errors.New("injected directory fault")

// faultyArtefacts fails every attempt to mark an artefact as on loan while
// enabled. Clearing a marker still works so compensations can run.
type faultyArtefacts struct {
	loan.Artefacts
	enabled atomic.Bool
}

func (f *faultyArtefacts) SetActiveLoan(ctx context.Context, id int, loanID *int) error {
	if loanID != nil && f.enabled.Load() {
		return ErrInjected
	}
	return f.Artefacts.SetActiveLoan(ctx, id, loanID)
}

// Target is the exchange engine under experiment.
type Target struct {
	services *app.Services
	faults   *faultyArtefacts
	capacity int
	visitor  string

	mu    sync.Mutex
	slots map[tour.Slot]bool
	day   int
}

// NewTarget wires the services over stores with a fault-injecting artefact
// directory and registers the visitor the experiments act as.
func NewTarget(ctx context.Context, stores app.Stores, capacity int, logger *slog.Logger) (*Target, error) {
	if capacity <= 0 {
		capacity = tour.DefaultCapacity
	}
	t := &Target{
		capacity: capacity,
		visitor:  "chaos-monkey",
		slots:    make(map[tour.Slot]bool),
	}
	services, err := app.NewServices(ctx, stores, app.Options{
		Capacity: capacity,
		Logger:   logger,
		Limiter:  rate.NewLimiter(rate.Inf, 0),
		WrapArtefacts: func(a loan.Artefacts) loan.Artefacts {
			t.faults = &faultyArtefacts{Artefacts: a}
			return t.faults
		},
	})
	if err != nil {
		return nil, err
	}
	t.services = services

	_, err = services.Visitors.RegisterVisitor(ctx, visitors.Registration{
		Username: t.visitor,
		Name:     "Chaos Monkey",
		Password: "bananas-everywhere",
	})
	if err != nil && !errors.Is(err, exchange.ErrConflict) {
		return nil, fmt.Errorf("register chaos visitor: %w", err)
	}
	return t, nil
}

// nextSlot returns a future slot no earlier experiment has used.
func (t *Target) nextSlot(shift tour.ShiftTime) tour.Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.day++
	slot := tour.Slot{Date: exchange.Clock(nil).Today().AddDays(t.day), Shift: shift}
	t.slots[slot] = true
	return slot
}

func (t *Target) touchedSlots() []tour.Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]tour.Slot, 0, len(t.slots))
	for s := range t.slots {
		out = append(out, s)
	}
	return out
}

// DuplicateOpenLoans counts artefacts holding more than one open loan.
func (t *Target) DuplicateOpenLoans(ctx context.Context) (float64, error) {
	loans, err := t.services.Loans.ListLoans(ctx)
	if err != nil {
		return 0, err
	}
	open := map[int]int{}
	for _, l := range loans {
		if l.Open() {
			open[l.ArtefactID]++
		}
	}
	duplicates := 0
	for _, n := range open {
		if n > 1 {
			duplicates++
		}
	}
	return float64(duplicates), nil
}

// MarkerDrift counts artefacts whose active-loan marker disagrees with the
// loans: an open loan the marker does not name, or a marker naming no open loan.
func (t *Target) MarkerDrift(ctx context.Context) (float64, error) {
	loans, err := t.services.Loans.ListLoans(ctx)
	if err != nil {
		return 0, err
	}
	open := map[int]int{}
	for _, l := range loans {
		if l.Open() {
			open[l.ArtefactID] = l.ID
		}
	}
	artefacts, err := t.services.Collections.ListArtefacts(ctx)
	if err != nil {
		return 0, err
	}
	drift := 0
	for _, a := range artefacts {
		holder, ok := open[a.ID]
		switch {
		case ok && (a.ActiveLoanID == nil || *a.ActiveLoanID != holder):
			drift++
		case !ok && a.ActiveLoanID != nil:
			drift++
		}
	}
	return float64(drift), nil
}

func (t *Target) seats(ctx context.Context) (map[tour.Slot]int, error) {
	tours, err := t.services.Tours.ListTours(ctx)
	if err != nil {
		return nil, err
	}
	out := map[tour.Slot]int{}
	for _, tr := range tours {
		out[tr.Slot()] += tr.NumberOfParticipants
	}
	return out, nil
}

// OverbookedSlots counts slots whose stored tours exceed the capacity.
func (t *Target) OverbookedSlots(ctx context.Context) (float64, error) {
	seats, err := t.seats(ctx)
	if err != nil {
		return 0, err
	}
	over := 0
	for _, n := range seats {
		if n > t.capacity {
			over++
		}
	}
	return float64(over), nil
}

// LedgerDrift counts slots where the capacity ledger and the stored tours
// disagree about how many seats are booked.
func (t *Target) LedgerDrift(ctx context.Context) (float64, error) {
	seats, err := t.seats(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range t.touchedSlots() {
		if _, ok := seats[s]; !ok {
			seats[s] = 0
		}
	}
	drift := 0
	for slot, n := range seats {
		avail, err := t.services.Tours.Availability(ctx, slot.Date, slot.Shift)
		if err != nil {
			return 0, err
		}
		if avail.Booked != n {
			drift++
		}
	}
	return float64(drift), nil
}
