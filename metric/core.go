package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dittobridge"

func newGauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func newGaugeVec(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func newCounterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// Metrics is the bridge-wide metric bundle. Per-component metrics live with
// their components; these cover the service as a whole plus the NATS link.
type Metrics struct {
	ServiceStatus      *prometheus.GaugeVec
	EventsReceived     *prometheus.CounterVec
	EventsProcessed    *prometheus.CounterVec
	MessagesPublished  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics builds the bundle. Collectors are not registered here; the
// registry does that so tests can build a bundle without touching any
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: newGaugeVec("service", "status",
			"Service status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			"service"),
		EventsReceived: newCounterVec("events", "received_total",
			"Total number of stream events received",
			"service", "type"),
		EventsProcessed: newCounterVec("events", "processed_total",
			"Total number of stream events processed",
			"service", "type", "status"),
		MessagesPublished: newCounterVec("messages", "published_total",
			"Total number of messages published to the bus",
			"service", "kind"),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "duration_seconds",
			Help:      "Event processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		ErrorsTotal: newCounterVec("errors", "total",
			"Total number of errors",
			"service", "type"),
		HealthCheckStatus: newGaugeVec("health", "status",
			"Health check status (0=unhealthy, 1=healthy)",
			"service"),

		NATSConnected: newGauge("nats", "connected",
			"NATS connection status (0=disconnected, 1=connected)"),
		NATSRTT: newGauge("nats", "rtt_milliseconds",
			"NATS round-trip time in milliseconds"),
		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total number of NATS reconnections",
		}),
	}
}

// RecordServiceStatus updates the service status gauge.
func (m *Metrics) RecordServiceStatus(service string, status int) {
	m.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordEventReceived counts an incoming stream event.
func (m *Metrics) RecordEventReceived(service, eventType string) {
	m.EventsReceived.WithLabelValues(service, eventType).Inc()
}

// RecordEventProcessed counts a processed event with its outcome.
func (m *Metrics) RecordEventProcessed(service, eventType, status string) {
	m.EventsProcessed.WithLabelValues(service, eventType, status).Inc()
}

// RecordMessagePublished counts a message handed to the bus.
func (m *Metrics) RecordMessagePublished(service, kind string) {
	m.MessagesPublished.WithLabelValues(service, kind).Inc()
}

// RecordProcessingDuration observes how long an operation took.
func (m *Metrics) RecordProcessingDuration(service, operation string, duration time.Duration) {
	m.ProcessingDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordError counts an error by type.
func (m *Metrics) RecordError(service, errorType string) {
	m.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates the per-service health gauge.
func (m *Metrics) RecordHealthStatus(service string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(service).Set(v)
}

// RecordNATSStatus updates the NATS connectivity gauge.
func (m *Metrics) RecordNATSStatus(connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	m.NATSConnected.Set(v)
}

// RecordNATSRTT updates the NATS round-trip gauge.
func (m *Metrics) RecordNATSRTT(rtt time.Duration) {
	m.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect counts a NATS reconnection.
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
