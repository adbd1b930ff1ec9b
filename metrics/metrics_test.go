package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/creditstream/config"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetricsWithRegistry(reg, config.MetricsConfig{EnableBucketLabel: true})
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, vec.WithLabelValues(labels...).(prometheus.Gauge).Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetAcksOutstandingAndAmountPending(t *testing.T) {
	m := newTestMetrics(t)
	m.SetAcksOutstanding("sess-1", 3)
	m.SetAmountPending("sess-1", 7)

	require.Equal(t, float64(3), gaugeValue(t, m.acksOutstanding, "sess-1"))
	require.Equal(t, float64(7), gaugeValue(t, m.amountPending, "sess-1"))
}

func TestAddBytesStreamedWithoutSpanHasNoExemplar(t *testing.T) {
	m := newTestMetrics(t)
	m.AddBytesStreamed(nil, "sess-1", 1024)

	var out dto.Metric
	require.NoError(t, m.bytesStreamed.WithLabelValues("sess-1").(prometheus.Counter).Write(&out))
	require.Equal(t, float64(1024), out.GetCounter().GetValue())
}

func TestRecordWorkerSpawnAndKill(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordWorkerSpawn("sess-1")
	m.RecordWorkerSpawn("sess-1")
	m.RecordWorkerKill("sess-1", "immediate")

	var spawns, kills dto.Metric
	require.NoError(t, m.workerSpawnsTotal.WithLabelValues("sess-1").(prometheus.Counter).Write(&spawns))
	require.NoError(t, m.workerKillsTotal.WithLabelValues("sess-1", "immediate").(prometheus.Counter).Write(&kills))
	require.Equal(t, float64(2), spawns.GetCounter().GetValue())
	require.Equal(t, float64(1), kills.GetCounter().GetValue())
}

func TestSetHardwareAccelerationStatus(t *testing.T) {
	m := newTestMetrics(t)
	m.SetHardwareAccelerationStatus("aes-ni", true)
	require.Equal(t, float64(1), gaugeValue(t, m.hardwareAcceleration, "aes-ni"))

	m.SetHardwareAccelerationStatus("aes-ni", false)
	require.Equal(t, float64(0), gaugeValue(t, m.hardwareAcceleration, "aes-ni"))
}
