package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)

	logger.Debug("loan.created", "id", 4)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "loan.created", line["msg"])
	assert.Equal(t, float64(4), line["id"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("ignored")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestNewLogger_RejectsUnknownSettings(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)

	_, err = newLogger(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.LoanTransition("REQUESTED", "APPROVED")
	m.LoanTransition("REQUESTED", "APPROVED")
	m.Rejected("create_tour", "validation")
	m.SeatsBooked("MORNING", 5)
	m.SeatsBooked("MORNING", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoanTransitions.WithLabelValues("REQUESTED", "APPROVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("create_tour", "validation")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TourSeats.WithLabelValues("MORNING")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "mmss_loan_transitions_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoanTransition("A", "B")
		m.Rejected("op", "kind")
		m.SeatsBooked("EVENING", 3)
	})
}

func TestSetup_WithoutExporter(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	shutdown, err := Setup(context.Background(), "mmss-test", "", nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestMetrics_ServesOpenTelemetryCounters(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics()
	t.Cleanup(func() { m.Shutdown(ctx) })

	counter, err := m.MeterProvider().Meter("test").Int64Counter("eventstore.events.appended")
	require.NoError(t, err)
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("aggregate.type", "loan")))
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("aggregate.type", "tour")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `mmss_eventstore_events_appended_total{aggregate_type="loan"} 3`)
	assert.Contains(t, body, `mmss_eventstore_events_appended_total{aggregate_type="tour"} 1`)
}

func TestSetup_InstallsMeterProvider(t *testing.T) {
	previousTracer, previousMeter := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(previousTracer)
		otel.SetMeterProvider(previousMeter)
	})

	m := NewMetrics()
	shutdown, err := Setup(context.Background(), "mmss-test", "", m)
	require.NoError(t, err)
	assert.Same(t, m.MeterProvider(), otel.GetMeterProvider())

	counter, err := otel.Meter("test").Int64Counter("loans.seen")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "mmss_loans_seen_total 2")

	assert.NoError(t, shutdown(context.Background()))
}
