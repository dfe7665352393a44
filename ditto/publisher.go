package ditto

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/dittobridge/errors"
	"github.com/c360/dittobridge/pkg/retry"
)

// Bus is the publish surface the bridge needs from the message bus. The NATS
// client satisfies it; tests substitute an in-memory recorder.
type Bus interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Publisher sends typed messages for exactly one topic. Handles are created
// by the registry and remain valid for the process lifetime.
type Publisher struct {
	topic string
	kind  string

	bus         Bus
	retryConfig retry.Config
	metrics     *Metrics
}

// Topic returns the sanitized bus topic this publisher writes to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Kind returns the feature kind the topic was first created for.
func (p *Publisher) Kind() string {
	return p.kind
}

// Publish marshals msg to JSON and sends it on the publisher's topic.
// Transient bus errors are retried with backoff; a marshal failure is not.
func (p *Publisher) Publish(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.WrapInvalid(err, "publisher", "Publish", "message encoding")
	}

	start := time.Now()
	publishOperation := func() error {
		return p.bus.Publish(ctx, p.topic, data)
	}

	if err := retry.Do(ctx, p.retryConfig, publishOperation); err != nil {
		if p.metrics != nil {
			p.metrics.publishErrors.Inc()
		}
		return errors.WrapTransient(err, "publisher", "Publish", "bus publish")
	}

	if p.metrics != nil {
		p.metrics.publishesTotal.Inc()
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// PublisherRegistry lazily creates and caches one Publisher per topic. The
// first request for a topic creates the publisher and reports the creation
// exactly once; later requests return the cached handle regardless of the
// requested kind.
type PublisherRegistry struct {
	bus         Bus
	logger      *slog.Logger
	metrics     *Metrics
	retryConfig retry.Config

	mu         sync.Mutex
	publishers map[string]*Publisher
}

// NewPublisherRegistry creates an empty registry publishing through bus.
func NewPublisherRegistry(bus Bus, logger *slog.Logger, metrics *Metrics) *PublisherRegistry {
	if logger == nil {
		logger = slog.Default().With("component", "publisher-registry")
	}
	return &PublisherRegistry{
		bus:         bus,
		logger:      logger,
		metrics:     metrics,
		retryConfig: retry.Quick(),
		publishers:  make(map[string]*Publisher),
	}
}

// GetOrCreate returns the publisher for name, creating it on first use.
// The name is sanitized before lookup, so callers may pass raw thing-derived
// names. The registry lock covers only the map access; publishing never
// happens under it.
func (r *PublisherRegistry) GetOrCreate(name, kind string) (*Publisher, error) {
	if r.bus == nil {
		return nil, errors.WrapFatal(errors.ErrNoConnection,
			"publisher-registry", "GetOrCreate", "bus availability check")
	}

	topic := SanitizeTopic(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if pub, ok := r.publishers[topic]; ok {
		if pub.kind != kind {
			r.logger.Warn("Topic already bound to another kind, reusing existing publisher",
				"topic", topic,
				"existing_kind", pub.kind,
				"requested_kind", kind)
		}
		return pub, nil
	}

	pub := &Publisher{
		topic:       topic,
		kind:        kind,
		bus:         r.bus,
		retryConfig: r.retryConfig,
		metrics:     r.metrics,
	}
	r.publishers[topic] = pub

	r.logger.Info("Created new publisher for topic", "topic", topic, "kind", kind)
	if r.metrics != nil {
		r.metrics.topicsCreated.Inc()
		r.metrics.activeTopics.Set(float64(len(r.publishers)))
	}

	return pub, nil
}

// Len reports the number of distinct topics with a live publisher.
func (r *PublisherRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.publishers)
}

// Topics returns the sanitized topic names with a live publisher, in no
// particular order.
func (r *PublisherRegistry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.publishers))
	for topic := range r.publishers {
		topics = append(topics, topic)
	}
	return topics
}
