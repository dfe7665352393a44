package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(999).String())
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"stream rejected", ErrStreamRejected, true},
		{"stream closed", ErrStreamClosed, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"timeout in text", fmt.Errorf("operation timeout occurred"), true},
		{"network in text", fmt.Errorf("network connection failed"), true},
		{"unexpected EOF", fmt.Errorf("unexpected EOF"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"invalid data", ErrInvalidData, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("x")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("x")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFatal(tc.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"parsing failed", ErrParsingFailed, true},
		{"coercion failed", ErrCoercion, true},
		{"connection lost", ErrConnectionLost, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("x")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsInvalid(tc.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionLost))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))

	// unclassifiable errors default to transient so the caller retries
	assert.Equal(t, ErrorTransient, Classify(fmt.Errorf("something odd")))
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("boom")

	wrapped := Wrap(base, "Router", "Route", "feature dispatch")
	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "Router.Route: feature dispatch failed")
	assert.ErrorIs(t, wrapped, base)

	assert.NoError(t, Wrap(nil, "Router", "Route", "anything"))
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")

	transient := WrapTransient(base, "Supervisor", "connect", "open stream")
	assert.True(t, IsTransient(transient))
	assert.ErrorIs(t, transient, base)

	assert.True(t, IsInvalid(WrapInvalid(base, "Router", "Route", "coerce value")))
	assert.True(t, IsFatal(WrapFatal(base, "Config", "Load", "read file")))

	var cls *ClassifiedError
	require.ErrorAs(t, transient, &cls)
	assert.Equal(t, "Supervisor", cls.Component)
	assert.Equal(t, "connect", cls.Operation)
}
