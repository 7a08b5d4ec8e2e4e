// internal/telemetry/metrics.go
package telemetry

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Metrics holds the domain counters. A nil *Metrics records nothing.
// Instruments created through MeterProvider are exposed on the same
// registry as the Prometheus counters.
type Metrics struct {
	registry        *prometheus.Registry
	meterProvider   *sdkmetric.MeterProvider
	LoanTransitions *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	TourSeats       *prometheus.CounterVec
}

// NewMetrics registers the counters on a fresh registry.
func NewMetrics() *Metrics {
	reader := sdkmetric.NewManualReader()
	m := &Metrics{
		registry:      prometheus.NewRegistry(),
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		LoanTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mmss",
			Name:      "loan_transitions_total",
			Help:      "Loan status changes by source and target status.",
		}, []string{"from", "to"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mmss",
			Name:      "rejections_total",
			Help:      "Rejected operations by operation and error kind.",
		}, []string{"op", "kind"}),
		TourSeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mmss",
			Name:      "tour_seats_booked_total",
			Help:      "Participants booked per shift.",
		}, []string{"shift"}),
	}
	m.registry.MustRegister(
		m.LoanTransitions,
		m.Rejections,
		m.TourSeats,
		collectors.NewGoCollector(),
		otelCollector{reader: reader},
	)
	return m
}

// MeterProvider returns the OpenTelemetry meter provider whose monotonic
// int64 sums are served by Handler.
func (m *Metrics) MeterProvider() metric.MeterProvider {
	return m.meterProvider
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.meterProvider.Shutdown(ctx)
}

func (m *Metrics) LoanTransition(from, to string) {
	if m == nil {
		return
	}
	m.LoanTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Rejected(op, kind string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) SeatsBooked(shift string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TourSeats.WithLabelValues(shift).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// otelCollector exports OpenTelemetry counters as Prometheus counters at
// scrape time. It describes nothing, so the registry treats it as unchecked.
type otelCollector struct {
	reader *sdkmetric.ManualReader
}

func (otelCollector) Describe(chan<- *prometheus.Desc) {}

func (c otelCollector) Collect(ch chan<- prometheus.Metric) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(context.Background(), &rm); err != nil {
		otel.Handle(err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || !sum.IsMonotonic {
				continue
			}
			for _, dp := range sum.DataPoints {
				var keys, values []string
				for iter := dp.Attributes.Iter(); iter.Next(); {
					kv := iter.Attribute()
					keys = append(keys, promName(string(kv.Key)))
					values = append(values, kv.Value.Emit())
				}
				desc := prometheus.NewDesc("mmss_"+promName(m.Name)+"_total", m.Description, keys, nil)
				counter, err := prometheus.NewConstMetric(desc, prometheus.CounterValue, float64(dp.Value), values...)
				if err != nil {
					otel.Handle(err)
					continue
				}
				ch <- counter
			}
		}
	}
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(name)
}
