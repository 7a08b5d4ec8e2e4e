// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"mmss/internal/collections"
	"mmss/internal/exchange"
	"mmss/internal/tour"
)

// RegisterExperiments registers every experiment against target, each
// observed for duration.
func (e *Engine) RegisterExperiments(target *Target, duration time.Duration) {
	e.RegisterExperiment(target.ConcurrentLoanRaceExperiment(64, duration))
	e.RegisterExperiment(target.SlotOverbookingExperiment(64, duration))
	e.RegisterExperiment(target.RescheduleStormExperiment(16, duration))
	e.RegisterExperiment(target.DirectoryOutageExperiment(16, duration))
}

func (t *Target) loanInvariants() []Metric {
	return []Metric{
		{Name: "duplicate_open_loans", Query: t.DuplicateOpenLoans, Threshold: Threshold{Operator: "==", Value: 0}},
		{Name: "marker_drift", Query: t.MarkerDrift, Threshold: Threshold{Operator: "==", Value: 0}},
	}
}

func (t *Target) slotInvariants() []Metric {
	return []Metric{
		{Name: "overbooked_slots", Query: t.OverbookedSlots, Threshold: Threshold{Operator: "==", Value: 0}},
		{Name: "ledger_drift", Query: t.LedgerDrift, Threshold: Threshold{Operator: "==", Value: 0}},
	}
}

func zero(metric, message string) Assertion {
	return Assertion{Metric: metric, Condition: func(v float64) bool { return v == 0 }, Message: message}
}

// fanOut runs fn n times concurrently and waits for all of them.
func fanOut(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// firstError keeps the first error reported by concurrent workers.
type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *firstError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// ConcurrentLoanRaceExperiment requests the same artefact from many goroutines at once.
func (t *Target) ConcurrentLoanRaceExperiment(concurrency int, duration time.Duration) Experiment {
	return Experiment{
		Name:        "concurrent-loan-race",
		Hypothesis:  "Exactly one of many simultaneous loan requests for one artefact succeeds",
		SteadyState: t.loanInvariants(),
		Method: []Action{{
			Type:   "concurrent-requests",
			Target: "loan-service",
			Execute: func(ctx context.Context) error {
				artefact, err := t.services.Collections.AddArtefact(ctx, collections.NewArtefact{Name: "contested artefact", Loanable: true})
				if err != nil {
					return err
				}
				var won, lost atomic.Int32
				var unexpected firstError
				fanOut(concurrency, func(int) {
					_, err := t.services.Loans.CreateLoan(ctx, artefact.ID, t.visitor)
					switch {
					case err == nil:
						won.Add(1)
					case errors.Is(err, exchange.ErrConflict):
						lost.Add(1)
					default:
						unexpected.set(err)
					}
				})
				if err := unexpected.get(); err != nil {
					return err
				}
				if won.Load() != 1 {
					return fmt.Errorf("artefact %d: %d requests won, %d lost", artefact.ID, won.Load(), lost.Load())
				}
				return nil
			},
		}},
		Validation: []Assertion{
			zero("duplicate_open_loans", "No artefact may hold two open loans"),
			zero("marker_drift", "Every open loan must be named by its artefact's marker"),
		},
		Duration: duration,
	}
}

// SlotOverbookingExperiment books one slot from many goroutines with random group sizes.
func (t *Target) SlotOverbookingExperiment(concurrency int, duration time.Duration) Experiment {
	return Experiment{
		Name:        "slot-overbooking",
		Hypothesis:  "Concurrent bookings never push a slot past its capacity",
		SteadyState: t.slotInvariants(),
		Method: []Action{{
			Type:   "concurrent-requests",
			Target: "tour-service",
			Execute: func(ctx context.Context) error {
				slot := t.nextSlot(tour.ShiftEvening)
				var unexpected firstError
				fanOut(concurrency, func(int) {
					n := 1 + rand.IntN(4)
					_, err := t.services.Tours.CreateTour(ctx, t.visitor, slot.Date, n, slot.Shift)
					if err != nil && !errors.Is(err, exchange.ErrValidation) {
						unexpected.set(err)
					}
				})
				return unexpected.get()
			},
		}},
		Validation: []Assertion{
			zero("overbooked_slots", "No slot may exceed its capacity"),
			zero("ledger_drift", "The capacity ledger must match the stored tours"),
		},
		Duration: duration,
	}
}

// RescheduleStormExperiment moves tours back and forth between two slots
// concurrently, so updates take each other's slot locks in both directions.
func (t *Target) RescheduleStormExperiment(tours int, duration time.Duration) Experiment {
	return Experiment{
		Name:        "reschedule-storm",
		Hypothesis:  "Crossing reschedules neither deadlock nor leak reserved seats",
		SteadyState: t.slotInvariants(),
		Method: []Action{{
			Type:   "concurrent-updates",
			Target: "tour-service",
			Execute: func(ctx context.Context) error {
				a := t.nextSlot(tour.ShiftMorning)
				b := t.nextSlot(tour.ShiftMorning)
				ids := make([]int, 0, tours)
				for i := 0; i < tours; i++ {
					slot := a
					if i%2 == 1 {
						slot = b
					}
					booked, err := t.services.Tours.CreateTour(ctx, t.visitor, slot.Date, 1, slot.Shift)
					if errors.Is(err, exchange.ErrValidation) {
						break
					}
					if err != nil {
						return err
					}
					ids = append(ids, booked.ID)
				}

				var unexpected firstError
				fanOut(len(ids)*4, func(i int) {
					date := a.Date
					if i%2 == 0 {
						date = b.Date
					}
					_, err := t.services.Tours.UpdateTour(ctx, ids[i%len(ids)], date, 1+rand.IntN(2))
					if err != nil && !errors.Is(err, exchange.ErrValidation) {
						unexpected.set(err)
					}
				})
				return unexpected.get()
			},
		}},
		Validation: []Assertion{
			zero("overbooked_slots", "No slot may exceed its capacity"),
			zero("ledger_drift", "Rescheduling must move seats, not copy or drop them"),
		},
		Duration: duration,
	}
}

// DirectoryOutageExperiment breaks the artefact directory while loans are
// requested. Each request must be compensated so no loan exists unmarked.
func (t *Target) DirectoryOutageExperiment(concurrency int, duration time.Duration) Experiment {
	return Experiment{
		Name:        "artefact-directory-outage",
		Hypothesis:  "Loan requests that cannot mark their artefact leave nothing behind",
		SteadyState: t.loanInvariants(),
		Method: []Action{
			{
				Type:   "inject-failure",
				Target: "artefact-directory",
				Execute: func(context.Context) error {
					t.faults.enabled.Store(true)
					return nil
				},
			},
			{
				Type:   "concurrent-requests",
				Target: "loan-service",
				Execute: func(ctx context.Context) error {
					var succeeded atomic.Int32
					fanOut(concurrency, func(int) {
						artefact, err := t.services.Collections.AddArtefact(ctx, collections.NewArtefact{Name: "unreachable artefact", Loanable: true})
						if err != nil {
							return
						}
						if _, err := t.services.Loans.CreateLoan(ctx, artefact.ID, t.visitor); err == nil {
							succeeded.Add(1)
						}
					})
					if n := succeeded.Load(); n > 0 {
						return fmt.Errorf("%d loans created while the directory was down", n)
					}
					return nil
				},
			},
		},
		Rollback: []Action{{
			Type:   "restore",
			Target: "artefact-directory",
			Execute: func(context.Context) error {
				t.faults.enabled.Store(false)
				return nil
			},
		}},
		Validation: []Assertion{
			zero("duplicate_open_loans", "No artefact may hold two open loans"),
			zero("marker_drift", "Failed requests must be compensated"),
		},
		Duration: duration,
	}
}
