package ditto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/dittobridge/component"
	"github.com/c360/dittobridge/config"
	"github.com/c360/dittobridge/errors"
)

// StreamState is the supervisor's connection state.
type StreamState int32

const (
	// StateDisconnected means no stream is open and no attempt is in flight.
	StateDisconnected StreamState = iota
	// StateConnecting means a connection attempt is in flight.
	StateConnecting
	// StateStreaming means events are being decoded from an open stream.
	StateStreaming
)

func (s StreamState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// streamFields limits the feed payload to the parts the router reads.
const streamFields = "thingId,attributes,features"

// Supervisor owns the change-feed connection for its whole lifetime:
// connect, authenticate, decode, route, and reconnect after a fixed delay
// on any failure. Retries are unbounded; only context cancellation or Stop
// terminates the loop.
type Supervisor struct {
	name   string
	cfg    config.DittoConfig
	router *Router
	client *http.Client
	logger *slog.Logger

	// Rate limit for malformed-payload warnings so a corrupt feed cannot
	// flood the log.
	warnLimiter *rate.Limiter

	// Lifecycle management
	shutdown chan struct{}
	done     chan struct{}
	running  atomic.Bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	state atomic.Int32

	eventsReceived atomic.Int64
	eventsDropped  atomic.Int64
	errorCount     atomic.Int64
	startTime      atomic.Value // stores time.Time
	lastActivity   atomic.Value // stores time.Time
	lastError      atomic.Value // stores string

	metrics *Metrics
}

// Ensure Supervisor implements all required interfaces
var _ component.Discoverable = (*Supervisor)(nil)
var _ component.LifecycleComponent = (*Supervisor)(nil)

// SupervisorDeps holds runtime dependencies for the stream supervisor
type SupervisorDeps struct {
	Name       string             // Instance name
	Config     config.DittoConfig // Registry connection settings
	Router     *Router            // Runtime dependency
	HTTPClient *http.Client       // Optional, defaults to a no-timeout client
	Metrics    *Metrics           // Shared bridge bundle, nil disables
	Logger     *slog.Logger
}

// NewSupervisor creates a stream supervisor. The HTTP client deliberately
// has no overall timeout: the stream is expected to stay open indefinitely.
func NewSupervisor(deps SupervisorDeps) *Supervisor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "stream-supervisor")
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	s := &Supervisor{
		name:        deps.Name,
		cfg:         deps.Config,
		router:      deps.Router,
		client:      client,
		logger:      logger,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		metrics:     deps.Metrics,
	}
	s.startTime.Store(time.Now())
	s.lastActivity.Store(time.Time{})
	s.lastError.Store("")
	return s
}

// State returns the current connection state.
func (s *Supervisor) State() StreamState {
	return StreamState(s.state.Load())
}

func (s *Supervisor) setState(state StreamState) {
	s.state.Store(int32(state))
	if s.metrics != nil {
		s.metrics.connectionState.Set(float64(state))
	}
}

// streamURL builds the change-feed URL from the configured base and
// namespace filter.
func (s *Supervisor) streamURL() string {
	query := url.Values{}
	query.Set("namespaces", s.cfg.NamespaceList())
	query.Set("fields", streamFields)
	return s.cfg.BaseURL() + "/things?" + query.Encode()
}

// Meta returns the component metadata
func (s *Supervisor) Meta() component.Metadata {
	name := s.name
	if name == "" {
		name = "stream-supervisor"
	}
	return component.Metadata{
		Name:        name,
		Type:        "input",
		Description: fmt.Sprintf("Change-feed subscription to %s", s.cfg.BaseURL()),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (s *Supervisor) Health() component.HealthStatus {
	lastError, _ := s.lastError.Load().(string)
	started, _ := s.startTime.Load().(time.Time)
	return component.HealthStatus{
		Healthy:    s.running.Load() && s.State() == StateStreaming,
		LastCheck:  time.Now(),
		ErrorCount: int(s.errorCount.Load()),
		LastError:  lastError,
		Uptime:     time.Since(started),
	}
}

// DataFlow returns the current data flow metrics
func (s *Supervisor) DataFlow() component.FlowMetrics {
	events := s.eventsReceived.Load()
	errorCount := s.errorCount.Load()
	lastActivity, _ := s.lastActivity.Load().(time.Time)
	started, _ := s.startTime.Load().(time.Time)

	var eventsPerSecond float64
	if uptime := time.Since(started).Seconds(); uptime > 0 {
		eventsPerSecond = float64(events) / uptime
	}

	var errorRate float64
	if events > 0 {
		errorRate = float64(errorCount) / float64(events)
	}

	return component.FlowMetrics{
		MessagesPerSecond: eventsPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Initialize validates the configuration but opens no connection.
func (s *Supervisor) Initialize() error {
	if err := s.cfg.Validate(); err != nil {
		return errors.WrapFatal(err, "stream-supervisor", "Initialize", "config validation")
	}
	if s.router == nil {
		return errors.WrapFatal(fmt.Errorf("nil router"),
			"stream-supervisor", "Initialize", "router validation")
	}
	return nil
}

// Start launches the connection loop. Idempotent while running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.running.Store(true)
	s.startTime.Store(time.Now())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		s.runLoop(loopCtx)
	}()

	return nil
}

// Stop terminates the connection loop and waits up to timeout for it to
// drain. Safe to call when not running.
func (s *Supervisor) Stop(timeout time.Duration) error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	s.mu.Lock()
	if s.shutdown != nil {
		select {
		case <-s.shutdown:
		default:
			close(s.shutdown)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"stream-supervisor", "Stop", "graceful shutdown")
	}
	return nil
}

// runLoop reconnects forever with a fixed delay between attempts. Each
// attempt gets a short ID so log lines from overlapping lifetimes can be
// told apart.
func (s *Supervisor) runLoop(ctx context.Context) {
	first := true
	for {
		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return
		case <-s.shutdown:
			s.setState(StateDisconnected)
			return
		default:
		}

		if !first {
			if s.metrics != nil {
				s.metrics.reconnects.Inc()
			}
		}
		first = false

		connID := uuid.NewString()[:8]
		if err := s.streamOnce(ctx, connID); err != nil && ctx.Err() == nil {
			s.errorCount.Add(1)
			s.lastError.Store(err.Error())
			s.logger.Error("Event stream failed",
				"connection_id", connID,
				"error", err)
		}
		s.setState(StateDisconnected)

		if ctx.Err() != nil {
			return
		}
		s.logger.Info("Stream closed, reconnecting",
			"connection_id", connID,
			"delay", s.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

// streamOnce runs one connection lifetime: request, status check, then the
// decode loop until the stream dies. Per-event failures never end the
// lifetime; only transport errors do.
func (s *Supervisor) streamOnce(ctx context.Context, connID string) error {
	s.setState(StateConnecting)

	streamURL := s.streamURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return errors.WrapFatal(err, "stream-supervisor", "streamOnce", "request construction")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)

	s.logger.Info("Connecting to event stream",
		"url", streamURL,
		"connection_id", connID)

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "stream-supervisor", "streamOnce", "stream connect")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.WrapTransient(
			fmt.Errorf("%w: status %d", errors.ErrStreamRejected, resp.StatusCode),
			"stream-supervisor", "streamOnce", "stream connect")
	}

	s.logger.Info("Connected to event stream, waiting for events",
		"connection_id", connID)
	s.setState(StateStreaming)

	decoder := NewEventDecoder(resp.Body)
	for {
		event, err := decoder.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				return errors.WrapTransient(errors.ErrStreamClosed,
					"stream-supervisor", "streamOnce", "stream read")
			}
			return errors.WrapTransient(err, "stream-supervisor", "streamOnce", "stream read")
		}
		s.handleEvent(ctx, event)
	}
}

// handleEvent routes one decoded event block. Heartbeats (empty data) are
// ignored silently; malformed payloads are dropped with a rate-limited
// warning; router failures abandon that thing only.
func (s *Supervisor) handleEvent(ctx context.Context, event Event) {
	s.eventsReceived.Add(1)
	s.lastActivity.Store(time.Now())
	if s.metrics != nil {
		s.metrics.eventsReceived.Inc()
		s.metrics.lastActivity.SetToCurrentTime()
	}
	if s.cfg.Debug {
		s.logger.Debug("Received event", "event", map[string]string(event))
	}

	data, ok := event["data"]
	if !ok || data == "" {
		return
	}

	var thing Thing
	if err := json.Unmarshal([]byte(data), &thing); err != nil {
		s.eventsDropped.Add(1)
		if s.metrics != nil {
			s.metrics.eventsDropped.Inc()
		}
		if s.warnLimiter.Allow() {
			s.logger.Warn("Received non-JSON data", "data", truncate(data, 256))
		}
		return
	}

	if s.metrics != nil {
		s.metrics.thingsRouted.Inc()
	}
	if err := s.router.Route(ctx, thing); err != nil {
		s.errorCount.Add(1)
		s.lastError.Store(err.Error())
		if s.metrics != nil {
			s.metrics.routingErrors.Inc()
		}
		s.logger.Error("Error processing thing",
			"thing_id", thing.ThingID,
			"error", err)
		if s.cfg.Debug {
			s.logger.Debug("Failed payload", "data", truncate(data, 1024))
		}
	}
}

// truncate caps s at n bytes, backing up so a multi-byte rune is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
