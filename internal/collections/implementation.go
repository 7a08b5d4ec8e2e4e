// internal/collections/implementation.go
package collections

import (
	"context"
	"log/slog"
	"strings"

	"mmss/internal/exchange"
	"mmss/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	store    Store
	recorder *eventstore.Recorder
	logger   *slog.Logger
}

// Option configures the collections service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// NewService creates a new collections service instance. events may be nil.
func NewService(store Store, events eventstore.Store, opts ...Option) Service {
	s := &service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = eventstore.NewRecorder(events, s.logger)
	return s
}

// AddArtefact registers a new artefact with no open loan.
func (s *service) AddArtefact(ctx context.Context, req NewArtefact) (*Artefact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, exchange.Validation("name", "is required")
	}
	if req.LoanFee < 0 {
		return nil, exchange.Validation("loan_fee", "must not be negative")
	}

	a := &Artefact{
		Name:        name,
		Description: req.Description,
		Loanable:    req.Loanable,
		LoanFee:     req.LoanFee,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, entity, a.ID, a.Version, "ArtefactAdded", ArtefactAddedEvent{
		ID:       a.ID,
		Name:     a.Name,
		Loanable: a.Loanable,
		LoanFee:  a.LoanFee,
	})
	s.logger.InfoContext(ctx, "artefact added", "artefact_id", a.ID, "loanable", a.Loanable)
	return a, nil
}

func (s *service) GetArtefact(ctx context.Context, id int) (*Artefact, error) {
	return s.store.Get(ctx, id)
}

func (s *service) ListArtefacts(ctx context.Context) ([]*Artefact, error) {
	return s.store.List(ctx)
}

// SetActiveLoan points the artefact's marker at loanID, or clears it when
// loanID is nil. Pointing an artefact that is already on loan at a different
// loan is a Conflict.
func (s *service) SetActiveLoan(ctx context.Context, id int, loanID *int) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sameLoan(a.ActiveLoanID, loanID) {
		return nil
	}
	if loanID != nil && a.ActiveLoanID != nil {
		return exchange.Conflict(entity, id, "already on loan %d", *a.ActiveLoanID)
	}

	a.ActiveLoanID = loanID
	if err := s.store.Update(ctx, a); err != nil {
		return err
	}
	s.recorder.Record(ctx, entity, a.ID, a.Version, "ArtefactLoanMarked", ArtefactLoanMarkedEvent{ID: a.ID, ActiveLoanID: loanID})
	return nil
}

// RemoveArtefact deletes an artefact that is not on loan. The store repeats
// the check when deleting, so a marker set after the read still wins.
func (s *service) RemoveArtefact(ctx context.Context, id int) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.OnLoan() {
		return exchange.Conflict(entity, id, "on loan %d", *a.ActiveLoanID)
	}
	if err := s.store.Delete(ctx, id, a.Version); err != nil {
		return err
	}
	s.recorder.Record(ctx, entity, a.ID, a.Version+1, "ArtefactRemoved", ArtefactRemovedEvent{ID: a.ID})
	s.logger.InfoContext(ctx, "artefact removed", "artefact_id", id)
	return nil
}

func (s *service) History(ctx context.Context, id int) ([]eventstore.Event, error) {
	return s.recorder.History(ctx, entity, id)
}

func sameLoan(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
