package character

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when Run is called twice or a task
	// name is already taken.
	ErrAlreadyRunning = errors.New("character: already running")

	// ErrNotInitialized is returned when Run is called before Init.
	ErrNotInitialized = errors.New("character: not initialized")

	// ErrStopped is returned when starting work after Stop.
	ErrStopped = errors.New("character: stopped")
)

// StartupError reports a background task that could not be started.
type StartupError struct {
	Task string
	Err  error
}

// Error implements the error interface.
func (e *StartupError) Error() string {
	return fmt.Sprintf("character: start %s: %v", e.Task, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// IsStartupError reports whether err is a task startup failure.
func IsStartupError(err error) bool {
	var se *StartupError
	return errors.As(err, &se)
}
