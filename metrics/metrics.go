// Package metrics exposes Prometheus instrumentation for a creditstream
// deployment: the credit/ack bookkeeping, worker lifecycle, and bytes
// moved through the cipher pipeline.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"

	"github.com/kenneth/creditstream/config"
)

var defaultRegistry = prometheus.DefaultRegisterer

// Metrics holds all creditstream instrumentation.
type Metrics struct {
	config config.MetricsConfig

	acksOutstanding    *prometheus.GaugeVec
	amountPending      *prometheus.GaugeVec
	bytesStreamed      *prometheus.CounterVec
	workerSpawnsTotal  *prometheus.CounterVec
	workerKillsTotal   *prometheus.CounterVec
	sessionDuration    *prometheus.HistogramVec
	cipherOperations   *prometheus.CounterVec
	cipherErrors       *prometheus.CounterVec
	hardwareAcceleration *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered against the default
// Prometheus registerer.
func NewMetrics(cfg config.MetricsConfig) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry is NewMetrics against a caller-supplied
// registerer, used by tests to avoid collisions with the global registry.
func NewMetricsWithRegistry(reg prometheus.Registerer, cfg config.MetricsConfig) *Metrics {
	return newMetricsWithRegistry(reg, cfg)
}

func newMetricsWithRegistry(reg prometheus.Registerer, cfg config.MetricsConfig) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config: cfg,
		acksOutstanding: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditstream_acks_outstanding",
				Help: "Acks a producer is currently waiting on, per session.",
			},
			[]string{"session"},
		),
		amountPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditstream_amount_pending",
				Help: "Unacknowledged amount_pending counter value, per session.",
			},
			[]string{"session"},
		),
		bytesStreamed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditstream_bytes_streamed_total",
				Help: "Total bytes produced by generators.",
			},
			[]string{"session"},
		),
		workerSpawnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditstream_worker_spawns_total",
				Help: "Total workers spawned.",
			},
			[]string{"session"},
		),
		workerKillsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditstream_worker_kills_total",
				Help: "Total workers killed before draining to EOF.",
			},
			[]string{"session", "priority"},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creditstream_session_duration_seconds",
				Help:    "Wall-clock duration of a stream session, from spawn to EOF or kill.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"session", "outcome"},
		),
		cipherOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditstream_cipher_operations_total",
				Help: "Total encrypt/decrypt operations.",
			},
			[]string{"operation"},
		),
		cipherErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creditstream_cipher_errors_total",
				Help: "Total encrypt/decrypt errors.",
			},
			[]string{"operation", "error_kind"},
		),
		hardwareAcceleration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creditstream_hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled).",
			},
			[]string{"type"},
		),
	}
}

// SetAcksOutstanding records the producer's current acksOutstanding for
// the named session.
func (m *Metrics) SetAcksOutstanding(session string, n int) {
	m.acksOutstanding.WithLabelValues(session).Set(float64(n))
}

// SetAmountPending records the producer's current amountPending for the
// named session.
func (m *Metrics) SetAmountPending(session string, n int) {
	m.amountPending.WithLabelValues(session).Set(float64(n))
}

// AddBytesStreamed increments the bytes-produced counter for a session.
func (m *Metrics) AddBytesStreamed(ctx context.Context, session string, n int) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.bytesStreamed.WithLabelValues(session).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(float64(n), exemplar)
			return
		}
	}
	m.bytesStreamed.WithLabelValues(session).Add(float64(n))
}

// RecordWorkerSpawn increments the worker-spawn counter for a session.
func (m *Metrics) RecordWorkerSpawn(session string) {
	m.workerSpawnsTotal.WithLabelValues(session).Inc()
}

// RecordWorkerKill increments the worker-kill counter for a session at
// the given kill priority.
func (m *Metrics) RecordWorkerKill(session, priority string) {
	m.workerKillsTotal.WithLabelValues(session, priority).Inc()
}

// ObserveSessionDuration records how long a session ran before it
// finished with the given outcome ("eof", "killed", "worker_fault").
func (m *Metrics) ObserveSessionDuration(session, outcome string, seconds float64) {
	m.sessionDuration.WithLabelValues(session, outcome).Observe(seconds)
}

// RecordCipherOperation increments the cipher operation counter.
func (m *Metrics) RecordCipherOperation(operation string) {
	m.cipherOperations.WithLabelValues(operation).Inc()
}

// RecordCipherError increments the cipher error counter.
func (m *Metrics) RecordCipherError(operation, errorKind string) {
	m.cipherErrors.WithLabelValues(operation, errorKind).Inc()
}

// SetHardwareAccelerationStatus sets the hardware acceleration gauge.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAcceleration.WithLabelValues(accelType).Set(val)
}

func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
