package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates the agent is not connected.
	ErrNotConnected = errors.New("agent: not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("agent: already connected")

	// ErrInvalidEvent indicates a malformed event.
	ErrInvalidEvent = errors.New("agent: invalid event")
)

// ConnectionError reports a failed or lost connection to a remote agent.
type ConnectionError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("agent: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsConnectionError reports whether err is a connection failure.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
