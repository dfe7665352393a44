// Package health provides health monitoring functionality for bridge components
package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360/dittobridge/component"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// redactions strips anything address- or URL-shaped from an error before it is
// exposed on the health endpoint. Stream URLs carry Basic auth usernames and
// the NATS URL may carry a token.
var redactions = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`https?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`nats://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`:\d{2,5}\b`), "[PORT]"},
}

var credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)

var credentialWords = []string{"password", "token", "key", "secret", "credential"}

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related metrics
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == statusHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == statusDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == statusUnhealthy
}

// sanitizeErrorMessage redacts URLs, addresses, ports and credential-shaped
// fragments from an error message.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	out := err
	for _, r := range redactions {
		out = r.re.ReplaceAllString(out, r.with)
	}

	lower := strings.ToLower(out)
	for _, word := range credentialWords {
		if strings.Contains(lower, word) {
			out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
			break
		}
	}

	return out
}

// FromComponentHealth converts a component.HealthStatus to a health.Status,
// sanitizing the last error on the way.
func FromComponentHealth(name string, ch component.HealthStatus) Status {
	state := statusUnhealthy
	if ch.Healthy {
		state = statusHealthy
	}

	message := "Component healthy"
	if ch.LastError != "" {
		message = sanitizeErrorMessage(ch.LastError)
	}

	return Status{
		Component: name,
		Healthy:   ch.Healthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
		Metrics: &Metrics{
			Uptime:       ch.Uptime,
			ErrorCount:   ch.ErrorCount,
			LastActivity: ch.LastCheck,
		},
	}
}
