// internal/tour/implementation.go
package tour

import (
	"context"
	"fmt"
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

// service implements the Service interface.
type service struct {
	store    Store
	visitors Visitors
	recorder *eventstore.Recorder

	clock    exchange.Clock
	pricing  PricingPolicy
	capacity int
	ledger   *Ledger
	locks    *exchange.KeyedMutex[Slot]

	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// Option configures the tour service.
type Option func(*service)

func WithClock(clock func() time.Time) Option {
	return func(s *service) { s.clock = clock }
}

// WithCapacity sets the participant ceiling shared by all tours in a slot.
func WithCapacity(capacity int) Option {
	return func(s *service) { s.capacity = capacity }
}

func WithPricing(p PricingPolicy) Option {
	return func(s *service) { s.pricing = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) { s.tracer = tp.Tracer("mmss/tour") }
}

// NewService creates a tour service and rebuilds the slot ledger from the
// tours already in store. events may be nil.
func NewService(ctx context.Context, store Store, visitors Visitors, events eventstore.Store, opts ...Option) (Service, error) {
	s := &service{
		store:    store,
		visitors: visitors,
		pricing:  DefaultPricing,
		capacity: DefaultCapacity,
		locks:    exchange.NewKeyedMutex[Slot](),
		logger:   slog.Default(),
		tracer:   otel.Tracer("mmss/tour"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.capacity <= 0 {
		return nil, fmt.Errorf("tour capacity must be positive, got %d", s.capacity)
	}
	s.recorder = eventstore.NewRecorder(events, s.logger)
	s.ledger = NewLedger(s.capacity)

	tours, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tours: %w", err)
	}
	for _, t := range tours {
		s.ledger.Reserve(t.Slot(), t.NumberOfParticipants)
	}
	return s, nil
}

func (s *service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tour."+op, trace.WithAttributes(attrs...))
}

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
	s.logger.DebugContext(ctx, "tour operation rejected", "op", op, "kind", kind, "error", err)
}

// validate checks the caller-supplied fields shared by create and update.
func (s *service) validate(date exchange.Date, participants int) error {
	if date.IsZero() {
		return exchange.Validation("date", "is required")
	}
	if participants <= 0 {
		return exchange.Validation("number_of_participants", "must be positive, got %d", participants)
	}
	if today := s.clock.Today(); date.Before(today) {
		return exchange.Validation("date", "%s is in the past", date)
	}
	return nil
}

// CreateTour books a tour if its slot has room.
func (s *service) CreateTour(ctx context.Context, visitorUsername string, date exchange.Date, participants int, shift ShiftTime) (tour *Tour, err error) {
	ctx, span := s.start(ctx, "CreateTour",
		attribute.String("visitor.username", visitorUsername),
		attribute.String("tour.date", date.String()),
		attribute.String("tour.shift", string(shift)),
		attribute.Int("tour.participants", participants),
	)
	defer func() { s.finish(ctx, span, "create_tour", err) }()

	if visitorUsername == "" {
		return nil, exchange.Validation("visitor_username", "is required")
	}
	if _, err := s.visitors.GetVisitor(ctx, visitorUsername); err != nil {
		return nil, err
	}
	if _, err := ParseShift(string(shift)); err != nil {
		return nil, err
	}
	if err := s.validate(date, participants); err != nil {
		return nil, err
	}
	slot := Slot{Date: date, Shift: shift}
	price, err := s.pricing.PricePerPerson(slot)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(slot)
	defer unlock()

	if err := s.ledger.Check(slot, participants, 0); err != nil {
		return nil, err
	}
	tour = &Tour{
		Exchange: exchange.Exchange{
			Status:          exchange.StatusBooked,
			SubmittedDate:   s.clock.Today(),
			VisitorUsername: visitorUsername,
		},
		PricePerPerson:       price,
		NumberOfParticipants: participants,
		ShiftTime:            shift,
		Date:                 date,
	}
	if err := s.store.Insert(ctx, tour); err != nil {
		return nil, err
	}
	s.ledger.Reserve(slot, participants)

	s.recorder.Record(ctx, entity, tour.ID, tour.Version, "TourBooked", TourBookedEvent{
		ID:                   tour.ID,
		VisitorUsername:      visitorUsername,
		Date:                 date,
		ShiftTime:            shift,
		NumberOfParticipants: participants,
		PricePerPerson:       price,
	})
	s.metrics.SeatsBooked(string(shift), participants)
	span.SetAttributes(attribute.Int("tour.id", tour.ID))
	s.logger.InfoContext(ctx, "tour booked", "tour_id", tour.ID, "slot", slot.String(), "participants", participants, "visitor", visitorUsername)
	return tour, nil
}

func (s *service) GetTour(ctx context.Context, id int) (*Tour, error) {
	return s.store.Get(ctx, id)
}

// lockTour loads the tour and locks its current slot plus the extra slots,
// retrying if a concurrent update moved the tour before the locks were taken.
func (s *service) lockTour(ctx context.Context, id int, extra ...Slot) (*Tour, func(), error) {
	for {
		tour, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		slot := tour.Slot()
		unlock := s.locks.LockAll(CompareSlots, append([]Slot{slot}, extra...)...)
		tour, err = s.store.Get(ctx, id)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if tour.Slot() == slot {
			return tour, unlock, nil
		}
		unlock()
	}
}

// UpdateTour moves a tour to a new date and group size within its shift. The
// old reservation is kept unless the new one fits.
func (s *service) UpdateTour(ctx context.Context, id int, date exchange.Date, participants int) (tour *Tour, err error) {
	ctx, span := s.start(ctx, "UpdateTour",
		attribute.Int("tour.id", id),
		attribute.String("tour.date", date.String()),
		attribute.Int("tour.participants", participants),
	)
	defer func() { s.finish(ctx, span, "update_tour", err) }()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(date, participants); err != nil {
		return nil, err
	}

	target := Slot{Date: date, Shift: current.ShiftTime}
	tour, unlock, err := s.lockTour(ctx, id, target)
	if err != nil {
		return nil, err
	}
	defer unlock()

	from := tour.Slot()
	released := 0
	if from == target {
		released = tour.NumberOfParticipants
	}
	if err := s.ledger.Check(target, participants, released); err != nil {
		return nil, err
	}

	event := TourRescheduledEvent{
		ID:               id,
		FromDate:         tour.Date,
		ToDate:           date,
		FromParticipants: tour.NumberOfParticipants,
		ToParticipants:   participants,
	}
	next := *tour
	next.Date = date
	next.NumberOfParticipants = participants
	if err := s.store.Update(ctx, &next); err != nil {
		return nil, err
	}
	s.ledger.Release(from, tour.NumberOfParticipants)
	s.ledger.Reserve(target, participants)

	s.recorder.Record(ctx, entity, id, next.Version, "TourRescheduled", event)
	if delta := participants - tour.NumberOfParticipants; delta > 0 {
		s.metrics.SeatsBooked(string(next.ShiftTime), delta)
	}
	s.logger.InfoContext(ctx, "tour rescheduled", "tour_id", id, "from", from.String(), "to", target.String(), "participants", participants)
	return &next, nil
}

// DeleteTour cancels a tour and frees its seats.
func (s *service) DeleteTour(ctx context.Context, id int) (err error) {
	ctx, span := s.start(ctx, "DeleteTour", attribute.Int("tour.id", id))
	defer func() { s.finish(ctx, span, "delete_tour", err) }()

	tour, unlock, err := s.lockTour(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, id, tour.Version); err != nil {
		return err
	}
	s.ledger.Release(tour.Slot(), tour.NumberOfParticipants)

	s.recorder.Record(ctx, entity, id, tour.Version+1, "TourCancelled", TourCancelledEvent{
		ID:                   id,
		Date:                 tour.Date,
		ShiftTime:            tour.ShiftTime,
		NumberOfParticipants: tour.NumberOfParticipants,
	})
	s.logger.InfoContext(ctx, "tour cancelled", "tour_id", id, "slot", tour.Slot().String())
	return nil
}

func (s *service) ListTours(ctx context.Context) ([]*Tour, error) {
	return s.store.List(ctx)
}

func (s *service) ListToursByVisitor(ctx context.Context, username string) ([]*Tour, error) {
	tours, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return exchange.Select(tours, exchange.ByVisitor(username)), nil
}

// Availability reports the seats left in a slot.
func (s *service) Availability(_ context.Context, date exchange.Date, shift ShiftTime) (Availability, error) {
	if _, err := ParseShift(string(shift)); err != nil {
		return Availability{}, err
	}
	return s.ledger.Availability(Slot{Date: date, Shift: shift}), nil
}

// History replays the audit events of a tour, including a cancelled one.
func (s *service) History(ctx context.Context, id int) ([]eventstore.Event, error) {
	return s.recorder.History(ctx, entity, id)
}
