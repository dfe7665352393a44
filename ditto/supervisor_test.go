package ditto

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/dittobridge/config"
	"github.com/c360/dittobridge/metric"
)

func testDittoConfig(t *testing.T, serverURL string) config.DittoConfig {
	t.Helper()
	parsed, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)

	return config.DittoConfig{
		Host:           parsed.Hostname(),
		Port:           port,
		Username:       "ditto",
		Password:       "ditto",
		Namespaces:     []string{"org.x"},
		ReconnectDelay: 20 * time.Millisecond,
	}
}

func newTestSupervisor(t *testing.T, serverURL string, bus *fakeBus) *Supervisor {
	t.Helper()
	router := newTestRouter(bus)
	return NewSupervisor(SupervisorDeps{
		Name:   "test-supervisor",
		Config: testDittoConfig(t, serverURL),
		Router: router,
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSupervisor_StreamURL(t *testing.T) {
	s := NewSupervisor(SupervisorDeps{
		Config: config.DittoConfig{
			Host:       "ditto.local",
			Port:       8080,
			Namespaces: []string{"org.smartcity", "org.agriculture"},
		},
	})

	got := s.streamURL()
	assert.True(t, strings.HasPrefix(got, "http://ditto.local:8080/api/2/things?"))

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "org.smartcity,org.agriculture", parsed.Query().Get("namespaces"))
	assert.Equal(t, "thingId,attributes,features", parsed.Query().Get("fields"))
}

func TestSupervisor_RoutesStreamedEvents(t *testing.T) {
	var sawAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, "data: {\"thingId\":\"org.x:dev1\",\"features\":{\"temperature\":{\"properties\":{\"value\":21.5}}}}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Keep the stream open until the client goes away.
		<-r.Context().Done()
	}))
	defer server.Close()

	bus := &fakeBus{}
	supervisor := newTestSupervisor(t, server.URL, bus)
	require.NoError(t, supervisor.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, supervisor.Start(ctx))

	waitFor(t, 2*time.Second, func() bool {
		return len(bus.records()) >= 1
	})

	records := bus.records()
	assert.Equal(t, "/org_x_dev1/sensor/temperature", records[0].subject)
	assert.Equal(t, StateStreaming, supervisor.State())

	expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("ditto:ditto"))
	assert.Equal(t, expectedAuth, sawAuth.Load())

	require.NoError(t, supervisor.Stop(2*time.Second))
	assert.Equal(t, StateDisconnected, supervisor.State())
}

func TestSupervisor_RetriesAfterRejection(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	bus := &fakeBus{}
	supervisor := newTestSupervisor(t, server.URL, bus)
	require.NoError(t, supervisor.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, supervisor.Start(ctx))

	waitFor(t, 2*time.Second, func() bool {
		return attempts.Load() >= 3
	})

	// Still alive and still trying.
	require.NoError(t, supervisor.Stop(2*time.Second))
	assert.Empty(t, bus.records())
}

func TestSupervisor_ReconnectsAfterStreamDrop(t *testing.T) {
	var connections atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "data: {\"thingId\":\"org.x:dev%d\",\"features\":{\"humidity\":{\"properties\":{\"value\":40}}}}\n\n", n)
		// Returning closes the stream mid-subscription.
	}))
	defer server.Close()

	bus := &fakeBus{}
	supervisor := newTestSupervisor(t, server.URL, bus)
	require.NoError(t, supervisor.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, supervisor.Start(ctx))

	waitFor(t, 3*time.Second, func() bool {
		return connections.Load() >= 2 && len(bus.records()) >= 2
	})

	require.NoError(t, supervisor.Stop(2*time.Second))
}

func TestSupervisor_MalformedPayloadDoesNotKillStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: this is not json\n\n")
		fmt.Fprint(w, "data:\n\n")
		fmt.Fprint(w, "data: {\"thingId\":\"org.x:dev1\",\"features\":{\"pressure\":{\"properties\":{\"value\":1013}}}}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	bus := &fakeBus{}
	supervisor := newTestSupervisor(t, server.URL, bus)
	require.NoError(t, supervisor.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, supervisor.Start(ctx))

	waitFor(t, 2*time.Second, func() bool {
		return len(bus.records()) >= 1
	})

	records := bus.records()
	require.Len(t, records, 1)
	assert.Equal(t, "/org_x_dev1/sensor/pressure", records[0].subject)
	assert.Equal(t, int64(1), supervisor.eventsDropped.Load())

	require.NoError(t, supervisor.Stop(2*time.Second))
}

func TestSupervisor_StopWithoutStart(t *testing.T) {
	bus := &fakeBus{}
	supervisor := NewSupervisor(SupervisorDeps{
		Config: config.DefaultConfig().Ditto,
		Router: newTestRouter(bus),
	})

	assert.NoError(t, supervisor.Stop(time.Second))
}

func TestSupervisor_InitializeRejectsBadConfig(t *testing.T) {
	supervisor := NewSupervisor(SupervisorDeps{
		Config: config.DittoConfig{},
		Router: newTestRouter(&fakeBus{}),
	})

	assert.Error(t, supervisor.Initialize())
}

func TestSupervisor_InitializeRejectsNilRouter(t *testing.T) {
	supervisor := NewSupervisor(SupervisorDeps{
		Config: config.DefaultConfig().Ditto,
	})

	assert.Error(t, supervisor.Initialize())
}

func TestSupervisor_MetaAndHealth(t *testing.T) {
	supervisor := NewSupervisor(SupervisorDeps{
		Name:   "bridge-main",
		Config: config.DefaultConfig().Ditto,
		Router: newTestRouter(&fakeBus{}),
	})

	meta := supervisor.Meta()
	assert.Equal(t, "bridge-main", meta.Name)
	assert.Equal(t, "input", meta.Type)

	health := supervisor.Health()
	assert.False(t, health.Healthy)
	assert.Zero(t, health.ErrorCount)
}

func TestSupervisor_SharedMetricsBundle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "data: {\"thingId\":\"org.x:dev1\",\"features\":{\"temperature\":{\"properties\":{\"value\":21.5}}}}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	bundle := NewMetrics(metric.NewMetricsRegistry())
	require.NotNil(t, bundle)

	bus := &fakeBus{}
	publishers := NewPublisherRegistry(bus, nil, bundle)
	supervisor := NewSupervisor(SupervisorDeps{
		Name:    "test-supervisor",
		Config:  testDittoConfig(t, server.URL),
		Router:  NewRouter(publishers, nil),
		Metrics: bundle,
	})
	require.NoError(t, supervisor.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, supervisor.Start(ctx))

	waitFor(t, 2*time.Second, func() bool {
		return len(bus.records()) >= 1
	})
	require.NoError(t, supervisor.Stop(2*time.Second))

	// Stream-side and publish-side series move on the same bundle.
	assert.GreaterOrEqual(t, testutil.ToFloat64(bundle.eventsReceived), 1.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(bundle.topicsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(bundle.activeTopics))
	assert.GreaterOrEqual(t, testutil.ToFloat64(bundle.publishesTotal), 1.0)
}

func TestSupervisor_HealthDuringRestart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	bus := &fakeBus{}
	supervisor := newTestSupervisor(t, server.URL, bus)
	require.NoError(t, supervisor.Initialize())

	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for i := 0; i < 100; i++ {
			_ = supervisor.Health()
			_ = supervisor.DataFlow()
		}
	}()

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, supervisor.Start(ctx))
		require.NoError(t, supervisor.Stop(2*time.Second))
		cancel()
	}

	<-polled
	assert.False(t, supervisor.Health().Healthy)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 256))

	long := strings.Repeat("a", 255) + "°C"
	got := truncate(long, 256)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 255)+"...", got)

	exact := strings.Repeat("b", 256)
	assert.Equal(t, exact, truncate(exact, 256))
}
