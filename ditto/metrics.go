package ditto

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/dittobridge/metric"
)

// Metrics holds Prometheus metrics for the bridge core
type Metrics struct {
	eventsReceived  prometheus.Counter
	eventsDropped   prometheus.Counter
	thingsRouted    prometheus.Counter
	routingErrors   prometheus.Counter
	reconnects      prometheus.Counter
	connectionState prometheus.Gauge
	topicsCreated   prometheus.Counter
	activeTopics    prometheus.Gauge
	publishesTotal  prometheus.Counter
	publishErrors   prometheus.Counter
	publishLatency  prometheus.Histogram
	lastActivity    prometheus.Gauge
}

// NewMetrics builds and registers the shared bridge metric bundle. The
// supervisor and the publisher registry report through the same instance so
// the stream-side and publish-side series stay consistent. A nil registry
// yields nil metrics, which every consumer treats as disabled.
func NewMetrics(registry *metric.MetricsRegistry) *Metrics {
	return newMetrics(registry, "bridge")
}

// newMetrics creates and registers bridge metrics
func newMetrics(registry *metric.MetricsRegistry, serviceName string) *Metrics {
	// Return nil if no registry provided (nil input = nil feature pattern)
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "events_received_total",
			Help:      "Total server-sent events received from the change feed",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "events_dropped_total",
			Help:      "Events dropped because the data payload was not valid JSON",
		}),
		thingsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "things_routed_total",
			Help:      "Thing payloads routed to at least the router",
		}),
		routingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "routing_errors_total",
			Help:      "Thing payloads abandoned mid-route on coercion or publish failure",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "reconnects_total",
			Help:      "Connection attempts after the initial one",
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "connection_state",
			Help:      "Stream state (0=disconnected, 1=connecting, 2=streaming)",
		}),
		topicsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "topics_created_total",
			Help:      "Publishers created on first use of a topic",
		}),
		activeTopics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "active_topics",
			Help:      "Distinct topics with a live publisher",
		}),
		publishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "publishes_total",
			Help:      "Messages published to the bus",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "publish_errors_total",
			Help:      "Publish attempts that failed after retries",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "publish_duration_seconds",
			Help:      "Time to marshal and publish one message",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dittobridge",
			Subsystem: "bridge",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last received event",
		}),
	}

	registry.RegisterCounter(serviceName, "events_received", metrics.eventsReceived)
	registry.RegisterCounter(serviceName, "events_dropped", metrics.eventsDropped)
	registry.RegisterCounter(serviceName, "things_routed", metrics.thingsRouted)
	registry.RegisterCounter(serviceName, "routing_errors", metrics.routingErrors)
	registry.RegisterCounter(serviceName, "reconnects", metrics.reconnects)
	registry.RegisterGauge(serviceName, "connection_state", metrics.connectionState)
	registry.RegisterCounter(serviceName, "topics_created", metrics.topicsCreated)
	registry.RegisterGauge(serviceName, "active_topics", metrics.activeTopics)
	registry.RegisterCounter(serviceName, "publishes", metrics.publishesTotal)
	registry.RegisterCounter(serviceName, "publish_errors", metrics.publishErrors)
	registry.RegisterHistogram(serviceName, "publish_latency", metrics.publishLatency)
	registry.RegisterGauge(serviceName, "last_activity", metrics.lastActivity)

	return metrics
}
