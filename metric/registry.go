// Package metric provides Prometheus metrics for the bridge, wrapping a private
// registry so tests never collide on the global default registry.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/dittobridge/errors"
)

// MetricsRegistrar is the registration surface components depend on.
type MetricsRegistrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
	RegisterGauge(serviceName, metricName string, gauge prometheus.Gauge) error
	RegisterHistogram(serviceName, metricName string, histogram prometheus.Histogram) error
	RegisterCounterVec(serviceName, metricName string, counterVec *prometheus.CounterVec) error
	Unregister(serviceName, metricName string) bool
}

// MetricsRegistry tracks every registered collector by "service.metric" key so
// a collector can be unregistered again without keeping a handle to it.
type MetricsRegistry struct {
	prom    *prometheus.Registry
	Metrics *Metrics
	byKey   map[string]prometheus.Collector
	mu      sync.Mutex
}

// NewMetricsRegistry builds a registry pre-loaded with the core bridge metrics
// and the standard Go runtime collectors.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prom:    prometheus.NewRegistry(),
		Metrics: NewMetrics(),
		byKey:   make(map[string]prometheus.Collector),
	}

	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.registerCore()

	return r
}

// PrometheusRegistry exposes the underlying registry for the HTTP handler.
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// CoreMetrics returns the shared bridge-wide metrics.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

// register is the single check-and-register path for every collector shape.
func (r *MetricsRegistry) register(serviceName, metricName, method string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := serviceName + "." + metricName
	if _, taken := r.byKey[key]; taken {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for service %s", metricName, serviceName),
			"MetricsRegistry", method, "duplicate metric registration")
	}

	if err := r.prom.Register(c); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if stderrors.As(err, &dup) {
			return errors.WrapInvalid(err, "MetricsRegistry", method,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "MetricsRegistry", method,
			"failed to register collector with prometheus")
	}

	r.byKey[key] = c
	return nil
}

// RegisterCounter registers a counter metric for a service.
func (r *MetricsRegistry) RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error {
	return r.register(serviceName, metricName, "RegisterCounter", counter)
}

// RegisterGauge registers a gauge metric for a service.
func (r *MetricsRegistry) RegisterGauge(serviceName, metricName string, gauge prometheus.Gauge) error {
	return r.register(serviceName, metricName, "RegisterGauge", gauge)
}

// RegisterHistogram registers a histogram metric for a service.
func (r *MetricsRegistry) RegisterHistogram(serviceName, metricName string, histogram prometheus.Histogram) error {
	return r.register(serviceName, metricName, "RegisterHistogram", histogram)
}

// RegisterCounterVec registers a labelled counter metric for a service.
func (r *MetricsRegistry) RegisterCounterVec(serviceName, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register(serviceName, metricName, "RegisterCounterVec", counterVec)
}

// Unregister removes a metric and frees its key for re-registration. Returns
// false when the key was never registered.
func (r *MetricsRegistry) Unregister(serviceName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := serviceName + "." + metricName
	c, ok := r.byKey[key]
	if !ok {
		return false
	}

	removed := r.prom.Unregister(c)
	if removed {
		delete(r.byKey, key)
	}
	return removed
}

func (r *MetricsRegistry) registerCore() {
	r.prom.MustRegister(
		r.Metrics.ServiceStatus,
		r.Metrics.EventsReceived,
		r.Metrics.EventsProcessed,
		r.Metrics.MessagesPublished,
		r.Metrics.ProcessingDuration,
		r.Metrics.ErrorsTotal,
		r.Metrics.HealthCheckStatus,
		r.Metrics.NATSConnected,
		r.Metrics.NATSRTT,
		r.Metrics.NATSReconnects,
	)
}
