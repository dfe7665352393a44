// Package errors provides standardized error handling patterns for dittobridge.
//
// # Overview
//
// The errors package implements a three-class error classification system for the
// bridge: Transient (temporary, retryable), Invalid (bad input, non-retryable),
// and Fatal (unrecoverable, stop processing).
//
// The classes map directly onto the bridge's error taxonomy: connection and
// stream failures are transient and trigger the supervisor's fixed-delay
// reconnect; payload decode and field coercion failures are invalid and drop
// only the offending event; configuration errors are fatal and abort startup.
// No runtime error is fatal to the process.
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if resp.StatusCode != http.StatusOK {
//	    return errors.ErrStreamRejected
//	}
//
// Wrap errors with context for debugging:
//
//	if err := router.Route(thing); err != nil {
//	    return errors.WrapInvalid(err, "Supervisor", "consume", "route thing payload")
//	}
//
// Check classification for retry logic:
//
//	if err := publish(); err != nil && errors.IsTransient(err) {
//	    // retry via pkg/retry
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: <underlying error>"
package errors
