package ditto

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/dittobridge/metric"
)

// fakeBus records publishes in memory for assertions.
type fakeBus struct {
	mu        sync.Mutex
	published []busRecord
	err       error
}

type busRecord struct {
	subject string
	data    []byte
}

func (b *fakeBus) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	b.published = append(b.published, busRecord{subject: subject, data: copied})
	return nil
}

func (b *fakeBus) records() []busRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]busRecord, len(b.published))
	copy(out, b.published)
	return out
}

func TestPublisherRegistry_GetOrCreate(t *testing.T) {
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, nil)

	pub, err := registry.GetOrCreate("org.x:dev1/sensor/temperature", "temperature")
	require.NoError(t, err)
	assert.Equal(t, "/org_x_dev1/sensor/temperature", pub.Topic())
	assert.Equal(t, "temperature", pub.Kind())
	assert.Equal(t, 1, registry.Len())
}

func TestPublisherRegistry_ReturnsSameHandle(t *testing.T) {
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, nil)

	first, err := registry.GetOrCreate("org.x:dev1/alerts", "alerts")
	require.NoError(t, err)

	// Raw and pre-sanitized names resolve to the same publisher.
	second, err := registry.GetOrCreate("/org_x_dev1/alerts", "alerts")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.Len())
}

func TestPublisherRegistry_CreationReportedOnce(t *testing.T) {
	metrics := NewMetrics(metric.NewMetricsRegistry())
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, metrics)

	for i := 0; i < 5; i++ {
		_, err := registry.GetOrCreate("org.x:dev1/status", "status")
		require.NoError(t, err)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.topicsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.activeTopics))
}

func TestPublisherRegistry_KindMismatchKeepsFirst(t *testing.T) {
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, nil)

	first, err := registry.GetOrCreate("org.x:dev1/data", "temperature")
	require.NoError(t, err)

	second, err := registry.GetOrCreate("org.x:dev1/data", "humidity")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "temperature", second.Kind())
}

func TestPublisherRegistry_NilBus(t *testing.T) {
	registry := NewPublisherRegistry(nil, nil, nil)

	_, err := registry.GetOrCreate("org.x:dev1/metadata", "metadata")
	assert.Error(t, err)
}

func TestPublisher_PublishMarshalsJSON(t *testing.T) {
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, nil)

	pub, err := registry.GetOrCreate("org.x:dev1/sensor/temperature", "temperature")
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), Temperature{Temperature: 21.5}))

	records := bus.records()
	require.Len(t, records, 1)
	assert.Equal(t, "/org_x_dev1/sensor/temperature", records[0].subject)

	var decoded Temperature
	require.NoError(t, json.Unmarshal(records[0].data, &decoded))
	assert.Equal(t, 21.5, decoded.Temperature)
}

func TestPublisherRegistry_ConcurrentGetOrCreate(t *testing.T) {
	bus := &fakeBus{}
	registry := NewPublisherRegistry(bus, nil, nil)

	var wg sync.WaitGroup
	publishers := make([]*Publisher, 16)
	for i := range publishers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pub, err := registry.GetOrCreate("org.x:dev1/sensor/imu", "imu")
			assert.NoError(t, err)
			publishers[i] = pub
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, registry.Len())
	for _, pub := range publishers[1:] {
		assert.Same(t, publishers[0], pub)
	}
}
