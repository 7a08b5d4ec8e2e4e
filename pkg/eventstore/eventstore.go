package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event represents a domain event with full metadata
type Event struct {
	ID            int64                  `json:"id" db:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type" db:"aggregate_type"`
	EventType     string                 `json:"event_type" db:"event_type"`
	EventData     json.RawMessage        `json:"event_data" db:"event_data"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" db:"-"`
	Version       int                    `json:"version" db:"version"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
}

// Store is the append/replay contract shared by the SQL and in-memory stores.
type Store interface {
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error
	LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error)
}

var aggregateNamespace = uuid.MustParse("6f1c7a52-3f55-4f7e-9d8e-2b0c1b6a4e10")

// AggregateID derives a stable aggregate UUID from an entity type and its key.
func AggregateID(aggregateType string, key any) uuid.UUID {
	return uuid.NewSHA1(aggregateNamespace, []byte(fmt.Sprintf("%s/%v", aggregateType, key)))
}

// NewEvent marshals data into an event and stamps it with a correlation id.
func NewEvent(eventType string, data interface{}) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{
		EventType: eventType,
		EventData: jsonData,
		Metadata:  map[string]interface{}{"correlation_id": uuid.NewString()},
	}, nil
}

// EventStore provides ACID guarantees for event sourcing
type EventStore struct {
	db       *sqlx.DB
	tracer   trace.Tracer
	meter    metric.Meter
	appended metric.Int64Counter
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithMeterProvider records the append counter on mp instead of the global
// meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(es *EventStore) { es.meter = mp.Meter("mmss/eventstore") }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(es *EventStore) { es.tracer = tp.Tracer("mmss/eventstore") }
}

// NewEventStore creates a new event store on top of a postgres or sqlite handle
func NewEventStore(db *sqlx.DB, opts ...Option) *EventStore {
	es := &EventStore{
		db:     db,
		tracer: otel.Tracer("mmss/eventstore"),
		meter:  otel.Meter("mmss/eventstore"),
	}
	for _, opt := range opts {
		opt(es)
	}
	appended, err := es.meter.Int64Counter(
		"eventstore.events.appended",
		metric.WithDescription("Events appended per aggregate type"),
	)
	if err != nil {
		otel.Handle(err)
	}
	es.appended = appended
	return es
}

// AppendEvents atomically appends events with optimistic concurrency control
func (es *EventStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	// Serializable isolation is only meaningful on postgres; sqlite serialises writers anyway.
	var opts *sql.TxOptions
	if es.db.DriverName() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	tx, err := es.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.GetContext(ctx, &currentVersion, tx.Rebind(`
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = ?
	`), aggregateID.String())
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("query current version: %w", err)
	}

	// Optimistic concurrency check
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	insert := tx.Rebind(`
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	for i, event := range events {
		version := expectedVersion + i + 1
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}

		var eventID int64
		err = tx.GetContext(ctx, &eventID, insert,
			aggregateID.String(),
			aggregateType,
			event.EventType,
			string(event.EventData),
			string(metadataJSON),
			version,
			time.Now().UTC(),
		)
		if err != nil {
			// Check for unique constraint violation (race condition)
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && (pqErr.Code == "23505" || pqErr.Code == "40001") {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if es.appended != nil {
		es.appended.Add(ctx, int64(len(events)), metric.WithAttributes(attribute.String("aggregate.type", aggregateType)))
	}
	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     string    `db:"event_data"`
	Metadata      *string   `db:"metadata"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// LoadEvents retrieves all events for an aggregate with optional version range
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE aggregate_id = ?
		AND version >= ?
	`

	args := []interface{}{aggregateID.String(), fromVersion}

	if toVersion > 0 {
		query += " AND version <= ?"
		args = append(args, toVersion)
	}

	query += " ORDER BY version ASC"

	var rows []eventRow
	if err := es.db.SelectContext(ctx, &rows, es.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		event := Event{
			ID:            row.ID,
			AggregateType: row.AggregateType,
			EventType:     row.EventType,
			EventData:     json.RawMessage(row.EventData),
			Version:       row.Version,
			CreatedAt:     row.CreatedAt,
		}
		id, err := uuid.Parse(row.AggregateID)
		if err != nil {
			return nil, fmt.Errorf("scan event %d: %w", row.ID, err)
		}
		event.AggregateID = id
		if row.Metadata != nil && *row.Metadata != "" {
			if err := json.Unmarshal([]byte(*row.Metadata), &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of event %d: %w", row.ID, err)
			}
		}
		events = append(events, event)
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
