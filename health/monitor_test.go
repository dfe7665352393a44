package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/dittobridge/component"
)

func TestMonitor_UpdateAndGet(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("supervisor", "Streaming from registry")
	monitor.UpdateUnhealthy("nats", "Connection refused")

	status, exists := monitor.Get("supervisor")
	require.True(t, exists)
	assert.True(t, status.IsHealthy())
	assert.Equal(t, "supervisor", status.Component)

	status, exists = monitor.Get("nats")
	require.True(t, exists)
	assert.True(t, status.IsUnhealthy())

	_, exists = monitor.Get("missing")
	assert.False(t, exists)
}

func TestMonitor_AggregateHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		expected string
	}{
		{
			name:     "empty monitor is healthy",
			statuses: map[string]Status{},
			expected: "healthy",
		},
		{
			name: "all healthy",
			statuses: map[string]Status{
				"supervisor": NewHealthy("supervisor", "ok"),
				"nats":       NewHealthy("nats", "ok"),
			},
			expected: "healthy",
		},
		{
			name: "one degraded",
			statuses: map[string]Status{
				"supervisor": NewHealthy("supervisor", "ok"),
				"nats":       NewDegraded("nats", "reconnecting"),
			},
			expected: "degraded",
		},
		{
			name: "one unhealthy wins over degraded",
			statuses: map[string]Status{
				"supervisor": NewDegraded("supervisor", "reconnecting"),
				"nats":       NewUnhealthy("nats", "down"),
			},
			expected: "unhealthy",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			monitor := NewMonitor()
			for name, status := range test.statuses {
				monitor.Update(name, status)
			}

			aggregate := monitor.AggregateHealth("dittobridge")
			assert.Equal(t, test.expected, aggregate.Status)
			assert.Len(t, aggregate.SubStatuses, len(test.statuses))
		})
	}
}

func TestFromComponentHealth(t *testing.T) {
	ch := component.HealthStatus{
		Healthy:    true,
		LastCheck:  time.Now(),
		ErrorCount: 3,
		Uptime:     time.Minute,
	}

	status := FromComponentHealth("supervisor", ch)
	assert.True(t, status.IsHealthy())
	require.NotNil(t, status.Metrics)
	assert.Equal(t, 3, status.Metrics.ErrorCount)
	assert.Equal(t, time.Minute, status.Metrics.Uptime)
}

func TestFromComponentHealth_SanitizesError(t *testing.T) {
	ch := component.HealthStatus{
		Healthy:   false,
		LastCheck: time.Now(),
		LastError: "dial http://ditto:8080/api/2/things failed, password=hunter2",
	}

	status := FromComponentHealth("supervisor", ch)
	assert.True(t, status.IsUnhealthy())
	assert.NotContains(t, status.Message, "8080")
	assert.NotContains(t, status.Message, "hunter2")
}

func TestMonitor_StaleStatusReadsDegraded(t *testing.T) {
	monitor := NewMonitor()
	monitor.SetStaleAfter(10 * time.Millisecond)

	monitor.Update("supervisor", Status{
		Healthy:   true,
		Status:    "healthy",
		Timestamp: time.Now().Add(-time.Second),
	})

	status, ok := monitor.Get("supervisor")
	require.True(t, ok)
	assert.True(t, status.IsDegraded())
	assert.False(t, status.Healthy)

	aggregate := monitor.AggregateHealth("bridge")
	assert.True(t, aggregate.IsDegraded())
}

func TestMonitor_StalenessDisabledByDefault(t *testing.T) {
	monitor := NewMonitor()

	monitor.Update("supervisor", Status{
		Healthy:   true,
		Status:    "healthy",
		Timestamp: time.Now().Add(-time.Hour),
	})

	status, ok := monitor.Get("supervisor")
	require.True(t, ok)
	assert.True(t, status.IsHealthy())
}
