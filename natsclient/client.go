// Package natsclient provides a managed NATS connection for the bridge.
package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/dittobridge/errors"
)

// ConnectionStatus tracks where the client is in its connection lifecycle.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Sentinel errors surfaced to callers.
var (
	ErrNotConnected      = stderrors.New("not connected to NATS")
	ErrConnectionTimeout = stderrors.New("connection timeout")
)

// Status is a point-in-time snapshot of the connection.
type Status struct {
	Status          ConnectionStatus
	FailureCount    int32
	LastFailureTime time.Time
	Reconnects      int32
	RTT             time.Duration
}

// Client manages a NATS connection with lifecycle callbacks. The bridge uses
// core NATS publish only; there is no JetStream or KV surface here.
type Client struct {
	url      string
	status   atomic.Value // stores ConnectionStatus
	failures atomic.Int32
	logger   Logger

	conn *nats.Conn

	// dial and reconnect tuning
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	// auth material, wiped by clearCredentials
	username string
	password string
	token    string

	clientName string

	// Failure bookkeeping
	lastFailure atomic.Value // stores time.Time
	reconnects  atomic.Int32

	// callbacks, invoked on their own goroutines
	onDisconnect   func(error)
	onReconnect    func()
	onHealthChange func(bool)

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient builds a client for the given server URL. Options may override
// the defaults below; the client does not connect until Connect is called.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:    url,
		logger: &defaultLogger{},
		// defaults, overridable via options
		maxReconnects: -1, // infinite by default
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.lastFailure.Store(time.Time{})

	c.logger.Debugf("Created NATS client for %s", url)

	return c, nil
}

// URL reports the configured server URL.
func (c *Client) URL() string {
	return c.url
}

// Status reports the current connection state.
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// GetConnection returns the raw connection, or nil before Connect.
func (c *Client) GetConnection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// SetConnection swaps in a connection directly. Tests use this to inject a
// server-backed conn without going through Connect.
func (c *Client) SetConnection(conn *nats.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if conn != nil && conn.IsConnected() {
		c.setStatus(StatusConnected)
	}
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// IsHealthy reports whether the connection is currently usable.
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures reports how many connection failures have been recorded.
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

func (c *Client) recordFailure() {
	total := c.failures.Add(1)
	c.lastFailure.Store(time.Now())
	c.logger.Debugf("Recorded NATS failure %d", total)
}

// WaitForConnection polls until the connection is healthy or ctx expires.
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrConnectionTimeout, ctx.Err())
		case <-ticker.C:
			if c.IsHealthy() {
				return nil
			}
		}
	}
}

// buildConnectionOptions translates client settings into nats.Options.
func (c *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return opts
}

// GetStatus snapshots the connection state, including RTT when connected.
func (c *Client) GetStatus() *Status {
	lastFailure := c.lastFailure.Load().(time.Time)

	status := &Status{
		Status:          c.Status(),
		FailureCount:    c.failures.Load(),
		LastFailureTime: lastFailure,
		Reconnects:      c.reconnects.Load(),
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			status.RTT = rtt
		}
	}

	return status
}

// clearCredentials wipes auth material; called once the connection is gone
// for good.
func (c *Client) clearCredentials() {
	c.username = ""
	c.password = ""
	c.token = ""
}

// Connect dials the server. The dial itself has no context support, so it
// runs in a goroutine and ctx bounds how long we wait for it.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Printf("Connecting to NATS at %s", c.url)

	opts := c.buildConnectionOptions()

	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.url, opts...)
		if err != nil {
			connectDone <- err
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			c.recordFailure()
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(err, "Client", "Connect", "establish connection")
		}
	case <-ctx.Done():
		c.recordFailure()
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	c.setStatus(StatusConnected)
	c.logger.Printf("Connected to NATS at %s", c.url)

	if c.onHealthChange != nil {
		c.onHealthChange(true)
	}

	return nil
}

// Close drains in-flight messages and closes the connection. Safe to call
// more than once. A ctx deadline shortens the configured drain timeout.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	var drainErr error
	if c.conn != nil {
		// a ctx deadline caps the drain window
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- c.conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				drainErr = errors.Wrap(err, "Client", "Close", "drain connection")
				c.logger.Errorf("Drain error: %v", err)
			}
		case <-time.After(drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain timeout")
			c.logger.Errorf("Drain timeout after %v, force closing", drainTimeout)
		case <-ctx.Done():
			drainErr = errors.Wrap(ctx.Err(), "Client", "Close", "context cancelled during drain")
			c.logger.Errorf("Context cancelled during drain, force closing")
		}

		c.conn.Close()
		c.conn = nil
	}

	c.clearCredentials()
	c.setStatus(StatusDisconnected)

	return drainErr
}

// liveConn returns the connection when it is usable, ErrNotConnected
// otherwise.
func (c *Client) liveConn() (*nats.Conn, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// RTT measures the round trip to the server.
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.liveConn()
	if err != nil {
		return 0, err
	}
	return conn.RTT()
}

// Publish sends data to subject. Core NATS publish is fire-and-forget, so
// the context is unused; it is kept for interface compatibility.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.liveConn()
	if err != nil {
		return err
	}
	return conn.Publish(subject, data)
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)

	c.mu.RLock()
	onDisconnect := c.onDisconnect
	onHealthChange := c.onHealthChange
	c.mu.RUnlock()

	if onDisconnect != nil {
		go onDisconnect(err)
	}
	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	c.reconnects.Add(1)

	c.mu.RLock()
	onReconnect := c.onReconnect
	onHealthChange := c.onHealthChange
	c.mu.RUnlock()

	if onReconnect != nil {
		go onReconnect()
	}
	if onHealthChange != nil {
		go onHealthChange(true)
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)

	c.mu.RLock()
	onHealthChange := c.onHealthChange
	c.mu.RUnlock()

	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	// May fire for non-connection errors, so no failure is recorded here
	c.logger.Errorf("NATS error: %v", err)
}
