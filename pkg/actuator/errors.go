package actuator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the actuator package.
var (
	// ErrNotInitialized indicates a command was sent before Init.
	ErrNotInitialized = errors.New("actuator: not initialized")

	// ErrClosed indicates a command was sent after Close.
	ErrClosed = errors.New("actuator: closed")

	// ErrUnknownChannel indicates a channel outside the fixed set.
	ErrUnknownChannel = errors.New("actuator: unknown channel")
)

// CommandError reports a failed hardware command.
type CommandError struct {
	// Op is the failing operation ("move", "init", "close").
	Op string

	// Channel is the target channel for move errors.
	Channel Channel

	// Position is the commanded position for move errors.
	Position float64

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Op == "move" {
		return fmt.Sprintf("actuator: move %s to %.2f: %v", e.Channel, e.Position, e.Err)
	}
	return fmt.Sprintf("actuator: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewMoveError wraps err as a failed move on ch.
func NewMoveError(ch Channel, position float64, err error) *CommandError {
	return &CommandError{Op: "move", Channel: ch, Position: position, Err: err}
}

// IsCommandError reports whether err is (or wraps) a hardware command failure.
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}
