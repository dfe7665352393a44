// Package component defines the Discoverable interface and lifecycle types
// shared by the bridge's long-running components.
package component

import (
	"context"
	"time"
)

// LifecycleComponent is a Discoverable with managed startup and shutdown.
// Initialize validates configuration and wires dependencies without doing
// I/O. Start spawns the component's goroutines; the caller owns the context
// and its cancel function, the component never stores it. Stop blocks until
// the goroutines exit or the timeout passes.
type LifecycleComponent interface {
	Discoverable
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// Discoverable defines the interface for components that can be inspected by
// the management layer: the stream supervisor and the metrics server both
// implement it so health and flow information can be aggregated uniformly.
type Discoverable interface {
	// Meta returns basic component information
	Meta() Metadata

	// Health returns current health status
	Health() HealthStatus

	// DataFlow returns current data flow metrics
	DataFlow() FlowMetrics
}

// Metadata describes what a component is
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "input", "output", "service"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthStatus describes the current health state of a component
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics describes the current data flow through a component
type FlowMetrics struct {
	MessagesPerSecond float64   `json:"messages_per_second"`
	BytesPerSecond    float64   `json:"bytes_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	LastActivity      time.Time `json:"last_activity"`
}
