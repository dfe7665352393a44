// Package config provides configuration loading and validation for the bridge.
// Configuration is read once at startup from a JSON file, with environment
// overrides for credentials; there is no hot-reload.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
)

// Config represents the complete bridge configuration
type Config struct {
	Ditto   DittoConfig   `json:"ditto"`
	NATS    NATSConfig    `json:"nats"`
	Metrics MetricsConfig `json:"metrics"`
}

// DittoConfig defines the connection to the digital-twin registry's SSE feed
type DittoConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	Namespaces []string `json:"namespaces"`
	Debug      bool     `json:"debug"`

	// ReconnectDelay is the fixed wait between stream connection attempts.
	// There is deliberately no backoff growth: the bridge runs as a
	// persistent sidecar and retries unconditionally.
	ReconnectDelay time.Duration `json:"reconnect_delay,omitempty"`
}

// BaseURL returns the registry API base URL
func (d DittoConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d/api/2", d.Host, d.Port)
}

// NamespaceList returns the namespaces as the comma-separated form used in
// the stream request query
func (d DittoConfig) NamespaceList() string {
	return strings.Join(d.Namespaces, ",")
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL           string        `json:"url,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
}

// MetricsConfig defines the metrics/health HTTP server settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// DefaultConfig returns the default bridge configuration, matching the
// registry's development defaults
func DefaultConfig() *Config {
	return &Config{
		Ditto: DittoConfig{
			Host:           "localhost",
			Port:           8080,
			Username:       "ditto",
			Password:       "ditto",
			Namespaces:     []string{"org.smartcity", "org.agriculture", "com.manufacturing"},
			Debug:          false,
			ReconnectDelay: 5 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from a JSON file, layered over defaults, then
// applies environment overrides. A missing path returns defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides layers credential and endpoint overrides from the
// environment so secrets can stay out of the config file
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DITTOBRIDGE_DITTO_HOST"); v != "" {
		c.Ditto.Host = v
	}
	if v := os.Getenv("DITTOBRIDGE_DITTO_USERNAME"); v != "" {
		c.Ditto.Username = v
	}
	if v := os.Getenv("DITTOBRIDGE_DITTO_PASSWORD"); v != "" {
		c.Ditto.Password = v
	}
	if v := os.Getenv("DITTOBRIDGE_DITTO_NAMESPACES"); v != "" {
		c.Ditto.Namespaces = splitNamespaces(v)
	}
	if v := os.Getenv("DITTOBRIDGE_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("DITTOBRIDGE_NATS_USERNAME"); v != "" {
		c.NATS.Username = v
	}
	if v := os.Getenv("DITTOBRIDGE_NATS_PASSWORD"); v != "" {
		c.NATS.Password = v
	}
	if v := os.Getenv("DITTOBRIDGE_NATS_TOKEN"); v != "" {
		c.NATS.Token = v
	}
}

func splitNamespaces(csv string) []string {
	parts := strings.Split(csv, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks the registry connection settings for startup-blocking
// problems
func (d DittoConfig) Validate() error {
	if d.Host == "" {
		return errors.New("ditto.host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("ditto.port %d is out of range", d.Port)
	}
	if len(d.Namespaces) == 0 {
		return errors.New("ditto.namespaces must list at least one namespace")
	}
	for _, ns := range d.Namespaces {
		if !isValidNamespace(ns) {
			return fmt.Errorf("ditto.namespaces entry '%s' is not a valid namespace", ns)
		}
	}
	if d.ReconnectDelay < 0 {
		return errors.New("ditto.reconnect_delay cannot be negative")
	}
	return nil
}

// Validate checks the configuration for startup-blocking problems
func (c *Config) Validate() error {
	if err := c.Ditto.Validate(); err != nil {
		return err
	}

	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d is out of range", c.Metrics.Port)
		}
	}

	return nil
}

// isValidNamespace checks a dot-delimited registry namespace: alphanumeric
// segments with dashes and underscores, separated by dots
func isValidNamespace(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}
