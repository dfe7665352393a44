package natsclient

import (
	"fmt"
	"log"
	"log/slog"
	"time"
)

// Logger is the minimal logging surface the client needs. The bridge passes
// an slog-backed implementation; the default writes to the standard logger.
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf("[NATS] "+format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...any) {
	log.Printf("[NATS ERROR] "+format, v...)
}

func (l *defaultLogger) Debugf(_ string, _ ...any) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlogLogger wraps logger for use with WithLogger.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{L: logger}
}

func (s *SlogLogger) Printf(format string, v ...any) {
	s.L.Info(fmt.Sprintf(format, v...))
}

func (s *SlogLogger) Errorf(format string, v ...any) {
	s.L.Error(fmt.Sprintf(format, v...))
}

func (s *SlogLogger) Debugf(format string, v ...any) {
	s.L.Debug(fmt.Sprintf(format, v...))
}

// ClientOption configures a Client during NewClient. Options validate their
// input and may reject construction.
type ClientOption func(*Client) error

// WithMaxReconnects caps automatic reconnect attempts. -1 means never give up.
func WithMaxReconnects(max int) ClientOption {
	return func(c *Client) error {
		c.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the pause between reconnect attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.reconnectWait = d
		return nil
	}
}

// WithPingInterval sets how often the server connection is pinged.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.pingInterval = d
		return nil
	}
}

// WithTimeout bounds the initial dial.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithCredentials enables username and password authentication.
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken enables token authentication.
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithClientName sets the name this client reports to the server. It shows up
// in server-side monitoring, so the bridge includes a per-run suffix.
func WithClientName(name string) ClientOption {
	return func(c *Client) error {
		c.clientName = name
		return nil
	}
}

// WithLogger replaces the default standard-library logger. A nil logger
// restores the default.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = &defaultLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithDisconnectCallback registers fn to run whenever the server connection
// drops. Runs on its own goroutine, after the client's own bookkeeping.
func WithDisconnectCallback(fn func(error)) ClientOption {
	return func(c *Client) error {
		c.onDisconnect = fn
		return nil
	}
}

// WithReconnectCallback registers fn to run after a successful reconnect.
func WithReconnectCallback(fn func()) ClientOption {
	return func(c *Client) error {
		c.onReconnect = fn
		return nil
	}
}

// WithHealthChangeCallback registers fn to run on healthy/unhealthy
// transitions.
func WithHealthChangeCallback(fn func(healthy bool)) ClientOption {
	return func(c *Client) error {
		c.onHealthChange = fn
		return nil
	}
}
