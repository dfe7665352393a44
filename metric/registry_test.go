package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/dittobridge/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry)
	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dittobridge",
		Subsystem: "test",
		Name:      "events_total",
		Help:      "test counter",
	})

	err := registry.RegisterCounter("supervisor", "events", counter)
	require.NoError(t, err)

	// Same key is rejected
	err = registry.RegisterCounter("supervisor", "events", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dittobridge",
		Subsystem: "test",
		Name:      "topics",
		Help:      "test gauge",
	})

	require.NoError(t, registry.RegisterGauge("publishers", "topics", gauge))
	assert.True(t, registry.Unregister("publishers", "topics"))
	assert.False(t, registry.Unregister("publishers", "topics"))

	// Re-registration after unregister works
	require.NoError(t, registry.RegisterGauge("publishers", "topics", gauge))
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordEventReceived("supervisor", "thing")
	core.RecordEventReceived("supervisor", "thing")
	core.RecordMessagePublished("router", "temperature")
	core.RecordNATSStatus(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(core.EventsReceived.WithLabelValues("supervisor", "thing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.MessagesPublished.WithLabelValues("router", "temperature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.NATSConnected))

	core.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(core.NATSConnected))
}
