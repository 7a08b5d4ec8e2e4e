// internal/loan/implementation.go
package loan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mmss/internal/exchange"
	"mmss/internal/telemetry"
	"mmss/pkg/eventstore"
)

// DefaultLoanPeriod is how long an approved loan runs before it is due.
const DefaultLoanPeriod = 14

// service implements the Service interface.
type service struct {
	store     Store
	artefacts Artefacts
	visitors  Visitors
	recorder  *eventstore.Recorder

	clock      exchange.Clock
	loanPeriod int
	locks      *exchange.KeyedMutex[int]

	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// Option configures the loan service.
type Option func(*service)

func WithClock(clock func() time.Time) Option {
	return func(s *service) { s.clock = clock }
}

// WithLoanPeriod sets the number of days between approval and due date.
func WithLoanPeriod(days int) Option {
	return func(s *service) { s.loanPeriod = days }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) { s.tracer = tp.Tracer("mmss/loan") }
}

// NewService creates a new loan service instance. events may be nil.
func NewService(store Store, artefacts Artefacts, visitors Visitors, events eventstore.Store, opts ...Option) Service {
	s := &service{
		store:      store,
		artefacts:  artefacts,
		visitors:   visitors,
		loanPeriod: DefaultLoanPeriod,
		locks:      exchange.NewKeyedMutex[int](),
		logger:     slog.Default(),
		tracer:     otel.Tracer("mmss/loan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = eventstore.NewRecorder(events, s.logger)
	return s
}

func (s *service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "loan."+op, trace.WithAttributes(attrs...))
}

// finish ends the span and accounts for a rejected operation.
func (s *service) finish(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	kind := exchange.KindOf(err)
	span.SetAttributes(attribute.String("error.kind", kind))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.Rejected(op, kind)
	s.logger.DebugContext(ctx, "loan operation rejected", "op", op, "kind", kind, "error", err)
}

// CreateLoan requests a loan of an artefact for a visitor.
func (s *service) CreateLoan(ctx context.Context, artefactID int, visitorUsername string) (loan *Loan, err error) {
	ctx, span := s.start(ctx, "CreateLoan",
		attribute.Int("artefact.id", artefactID),
		attribute.String("visitor.username", visitorUsername),
	)
	defer func() { s.finish(ctx, span, "create_loan", err) }()

	if visitorUsername == "" {
		return nil, exchange.Validation("visitor_username", "is required")
	}
	if _, err := s.visitors.GetVisitor(ctx, visitorUsername); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(artefactID)
	defer unlock()

	artefact, err := s.artefacts.GetArtefact(ctx, artefactID)
	if err != nil {
		return nil, err
	}
	if !artefact.Loanable {
		return nil, exchange.Validation("artefact_id", "artefact %d is not loanable", artefactID)
	}
	if artefact.ActiveLoanID != nil {
		if err := s.releaseStaleMarker(ctx, artefactID, *artefact.ActiveLoanID); err != nil {
			return nil, err
		}
	}

	loan = &Loan{
		Exchange: exchange.Exchange{
			Status:          exchange.StatusRequested,
			SubmittedDate:   s.clock.Today(),
			VisitorUsername: visitorUsername,
		},
		ArtefactID: artefactID,
	}
	if err := s.store.Insert(ctx, loan); err != nil {
		return nil, err
	}

	if err := s.artefacts.SetActiveLoan(ctx, artefactID, &loan.ID); err != nil {
		// Compensate: the loan must not exist without its marker.
		if delErr := s.store.Delete(ctx, loan.ID, loan.Version); delErr != nil {
			s.logger.WarnContext(ctx, "compensating loan delete failed", "loan_id", loan.ID, "error", delErr)
		}
		return nil, err
	}

	s.recorder.Record(ctx, entity, loan.ID, loan.Version, "LoanRequested", LoanRequestedEvent{
		ID:              loan.ID,
		ArtefactID:      artefactID,
		VisitorUsername: visitorUsername,
		SubmittedDate:   loan.SubmittedDate,
	})
	s.metrics.LoanTransition("", string(exchange.StatusRequested))
	span.SetAttributes(attribute.Int("loan.id", loan.ID))
	s.logger.InfoContext(ctx, "loan requested", "loan_id", loan.ID, "artefact_id", artefactID, "visitor", visitorUsername)
	return loan, nil
}

// releaseStaleMarker returns a Conflict when the marker names an open loan.
// A marker left behind by a closed or deleted loan is cleared instead.
func (s *service) releaseStaleMarker(ctx context.Context, artefactID, holderID int) error {
	holder, err := s.store.Get(ctx, holderID)
	switch {
	case err == nil && holder.Open():
		return exchange.Conflict("artefact", artefactID, "already on loan %d", holderID)
	case err != nil && !errors.Is(err, exchange.ErrNotFound):
		return err
	}
	s.logger.WarnContext(ctx, "clearing stale active-loan marker", "artefact_id", artefactID, "loan_id", holderID)
	return s.artefacts.SetActiveLoan(ctx, artefactID, nil)
}

// GetLoan retrieves a loan by id.
func (s *service) GetLoan(ctx context.Context, id int) (*Loan, error) {
	return s.store.Get(ctx, id)
}

// lockLoan loads the loan, takes its artefact's lock and reloads it so the
// caller sees the state no other writer can change until unlock.
func (s *service) lockLoan(ctx context.Context, id int) (*Loan, func(), error) {
	loan, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.Lock(loan.ArtefactID)
	loan, err = s.store.Get(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return loan, unlock, nil
}

// UpdateStatus moves a loan along the state machine.
func (s *service) UpdateStatus(ctx context.Context, id int, status exchange.Status) (loan *Loan, err error) {
	ctx, span := s.start(ctx, "UpdateStatus",
		attribute.Int("loan.id", id),
		attribute.String("loan.status.to", string(status)),
	)
	defer func() { s.finish(ctx, span, "update_loan_status", err) }()

	loan, unlock, err := s.lockLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	from := loan.Status
	if !CanTransition(from, status) {
		return nil, exchange.InvalidTransition(entity, id, from, status)
	}

	loan.Status = status
	if status == exchange.StatusApproved {
		due := s.clock.Today().AddDays(s.loanPeriod)
		loan.DueDate = &due
	}
	if err := s.store.Update(ctx, loan); err != nil {
		return nil, err
	}

	if !loan.Open() {
		s.clearMarker(ctx, loan)
	}

	s.recorder.Record(ctx, entity, loan.ID, loan.Version, "LoanStatusChanged", LoanStatusChangedEvent{
		ID:      loan.ID,
		From:    from,
		To:      status,
		DueDate: loan.DueDate,
	})
	s.metrics.LoanTransition(string(from), string(status))
	s.logger.InfoContext(ctx, "loan status changed", "loan_id", id, "from", from, "to", status)
	return loan, nil
}

// clearMarker frees the artefact if its marker still names loan. A failure is
// logged only: the next CreateLoan for the artefact clears a stale marker.
func (s *service) clearMarker(ctx context.Context, loan *Loan) {
	artefact, err := s.artefacts.GetArtefact(ctx, loan.ArtefactID)
	if err == nil && (artefact.ActiveLoanID == nil || *artefact.ActiveLoanID != loan.ID) {
		return
	}
	if err == nil {
		err = s.artefacts.SetActiveLoan(ctx, loan.ArtefactID, nil)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "active-loan marker not cleared", "loan_id", loan.ID, "artefact_id", loan.ArtefactID, "error", err)
	}
}

// DeleteLoan removes a loan that is not approved or active.
func (s *service) DeleteLoan(ctx context.Context, id int) (err error) {
	ctx, span := s.start(ctx, "DeleteLoan", attribute.Int("loan.id", id))
	defer func() { s.finish(ctx, span, "delete_loan", err) }()

	loan, unlock, err := s.lockLoan(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if !Deletable(loan.Status) {
		return exchange.Conflict(entity, id, "cannot delete a loan that is %s", loan.Status)
	}
	if err := s.store.Delete(ctx, id, loan.Version); err != nil {
		return err
	}
	if loan.Open() {
		s.clearMarker(ctx, loan)
	}

	s.recorder.Record(ctx, entity, id, loan.Version+1, "LoanDeleted", LoanDeletedEvent{ID: id, Status: loan.Status})
	s.logger.InfoContext(ctx, "loan deleted", "loan_id", id, "status", loan.Status)
	return nil
}

func (s *service) ListLoans(ctx context.Context) ([]*Loan, error) {
	return s.store.List(ctx)
}

func (s *service) ListLoansByStatus(ctx context.Context, status exchange.Status) ([]*Loan, error) {
	return s.selectLoans(ctx, exchange.ByStatus(status))
}

func (s *service) ListLoansBySubmittedDate(ctx context.Context, date exchange.Date) ([]*Loan, error) {
	return s.selectLoans(ctx, exchange.BySubmittedDate(date))
}

func (s *service) ListLoansByVisitor(ctx context.Context, username string) ([]*Loan, error) {
	return s.selectLoans(ctx, exchange.ByVisitor(username))
}

func (s *service) ListLoansByDueDate(ctx context.Context, date exchange.Date) ([]*Loan, error) {
	loans, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return exchange.Filter(loans, ByDueDate(date)), nil
}

func (s *service) selectLoans(ctx context.Context, p exchange.Predicate) ([]*Loan, error) {
	loans, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return exchange.Select(loans, p), nil
}

// History replays the audit events of a loan, including a deleted one.
func (s *service) History(ctx context.Context, id int) ([]eventstore.Event, error) {
	return s.recorder.History(ctx, entity, id)
}
