package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"mmss/internal/storage/storagetest"
)

type TestEvent struct {
	Message string `json:"message"`
}

func newTestEvent(t testing.TB, msg string) Event {
	t.Helper()
	event, err := NewEvent("TestEvent", TestEvent{Message: msg})
	require.NoError(t, err)
	return event
}

// stores runs a test against both implementations.
func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewEventStore(storagetest.SQLite(t)),
	}
}

func TestAppendAndLoad(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			aggregateID := AggregateID("loan", 1)

			require.NoError(t, store.AppendEvents(ctx, aggregateID, "loan", 0, []Event{newTestEvent(t, "one")}))
			require.NoError(t, store.AppendEvents(ctx, aggregateID, "loan", 1, []Event{newTestEvent(t, "two"), newTestEvent(t, "three")}))

			events, err := store.LoadEvents(ctx, aggregateID, 0, 0)
			require.NoError(t, err)
			require.Len(t, events, 3)
			for i, event := range events {
				assert.Equal(t, i+1, event.Version)
				assert.Equal(t, aggregateID, event.AggregateID)
				assert.Equal(t, "loan", event.AggregateType)
				assert.NotEmpty(t, event.Metadata["correlation_id"])
			}

			var payload TestEvent
			require.NoError(t, json.Unmarshal(events[2].EventData, &payload))
			assert.Equal(t, "three", payload.Message)

			window, err := store.LoadEvents(ctx, aggregateID, 2, 2)
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, 2, window[0].Version)
		})
	}
}

func TestAppendRejectsStaleVersion(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			aggregateID := uuid.New()

			require.NoError(t, store.AppendEvents(ctx, aggregateID, "tour", 0, []Event{newTestEvent(t, "first")}))

			err := store.AppendEvents(ctx, aggregateID, "tour", 0, []Event{newTestEvent(t, "again")})
			assert.ErrorIs(t, err, ErrConcurrencyConflict)

			err = store.AppendEvents(ctx, aggregateID, "tour", -1, nil)
			assert.ErrorIs(t, err, ErrInvalidVersion)

			events, err := store.LoadEvents(ctx, aggregateID, 0, 0)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	}
}

func TestLoadUnknownAggregateIsEmpty(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			events, err := store.LoadEvents(context.Background(), uuid.New(), 0, 0)
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestAggregateIDIsStable(t *testing.T) {
	assert.Equal(t, AggregateID("loan", 7), AggregateID("loan", 7))
	assert.NotEqual(t, AggregateID("loan", 7), AggregateID("tour", 7))
	assert.NotEqual(t, AggregateID("loan", 7), AggregateID("loan", 8))
}

func TestAppendCountsEvents(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	store := NewEventStore(storagetest.SQLite(t), WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))

	require.NoError(t, store.AppendEvents(ctx, AggregateID("loan", 1), "loan", 0, []Event{newTestEvent(t, "a"), newTestEvent(t, "b")}))
	require.NoError(t, store.AppendEvents(ctx, AggregateID("tour", 1), "tour", 0, []Event{newTestEvent(t, "c")}))
	// A rejected append is not counted.
	require.Error(t, store.AppendEvents(ctx, AggregateID("tour", 1), "tour", 0, []Event{newTestEvent(t, "d")}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "eventstore.events.appended" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				kind, _ := dp.Attributes.Value(attribute.Key("aggregate.type"))
				counts[kind.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"loan": 2, "tour": 1}, counts)
}

func BenchmarkAppendEvents(b *testing.B) {
	store := NewEventStore(storagetest.SQLite(b))

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer() // Stop timer for setup
		aggregateID := uuid.New()
		events := []Event{newTestEvent(b, fmt.Sprintf("event %d", i))}
		b.StartTimer() // Resume timer for the operation

		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", 0, events); err != nil {
			b.Fatalf("AppendEvents failed: %v", err)
		}
	}
}

func BenchmarkLoadEvents(b *testing.B) {
	store := NewEventStore(storagetest.SQLite(b))

	// Setup: create an aggregate with 10 events
	aggregateID := uuid.New()
	for i := 0; i < 10; i++ {
		events := []Event{newTestEvent(b, fmt.Sprintf("event %d", i))}
		if err := store.AppendEvents(context.Background(), aggregateID, "test_aggregate", i, events); err != nil {
			b.Fatalf("failed to setup events for benchmark: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := store.LoadEvents(context.Background(), aggregateID, 0, 0); err != nil {
			b.Fatalf("LoadEvents failed: %v", err)
		}
	}
}

type failingStore struct{ Store }

func (failingStore) AppendEvents(context.Context, uuid.UUID, string, int, []Event) error {
	return ErrConcurrencyConflict
}

func TestRecorder_RecordAndHistory(t *testing.T) {
	ctx := context.Background()
	recorder := NewRecorder(NewMemoryStore(), nil)

	recorder.Record(ctx, "tour", 4, 1, "TourBooked", TestEvent{Message: "booked"})
	recorder.Record(ctx, "tour", 4, 2, "TourRescheduled", TestEvent{Message: "moved"})
	// A stale version is dropped, not returned.
	recorder.Record(ctx, "tour", 4, 2, "TourRescheduled", TestEvent{Message: "duplicate"})

	history, err := recorder.History(ctx, "tour", 4)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TourBooked", history[0].EventType)
	assert.Equal(t, "TourRescheduled", history[1].EventType)
}

func TestRecorder_SwallowsAppendFailures(t *testing.T) {
	recorder := NewRecorder(failingStore{NewMemoryStore()}, nil)
	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), "loan", 1, 1, "LoanRequested", TestEvent{})
	})
}

func TestRecorder_NilStoreIsNoop(t *testing.T) {
	var recorder *Recorder
	recorder.Record(context.Background(), "loan", 1, 1, "LoanRequested", TestEvent{})

	history, err := NewRecorder(nil, nil).History(context.Background(), "loan", 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}
