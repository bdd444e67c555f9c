package gesture

import "errors"

var (
	// ErrUnknownGesture is returned when a gesture name is not registered.
	ErrUnknownGesture = errors.New("gesture not found")

	// ErrInvalidGesture is returned when a gesture table is malformed.
	ErrInvalidGesture = errors.New("invalid gesture data")
)
