// Package actuator defines the hardware boundary for the Ohbot head.
//
// The animation core treats an Actuator as an opaque sink: it sends clamped
// positions and never reads anything back. Backends in this package cover
// the Ohbot serial board, Feetech bus servos, a logging simulator and an
// in-memory recorder used by tests.
package actuator

import (
	"fmt"
	"time"
)

// DefaultSpeed is the speed hint sent when the caller has no preference.
// The board interprets 10 as "as fast as possible".
const DefaultSpeed = 10

// Actuator drives the physical motor channels.
//
// Move must only be called between Init and Close. Implementations must be
// safe for concurrent use; the core issues commands from several goroutines.
type Actuator interface {
	// Init opens the hardware connection.
	Init() error

	// Close releases the hardware connection.
	Close() error

	// Move commands ch to position (already clamped to [0, 10]).
	// speed is a hint in [1, 10]; backends without speed control ignore it.
	Move(ch Channel, position float64, speed int) error

	// Wait blocks for d.
	Wait(d time.Duration)
}

// New returns the backend registered under name.
// Recognised names are "serial", "feetech" and "sim".
func New(name string, serialCfg SerialConfig, feetechCfg FeetechConfig) (Actuator, error) {
	switch name {
	case "serial", "ohbot":
		return NewSerial(serialCfg), nil
	case "feetech":
		return NewFeetech(feetechCfg), nil
	case "sim", "":
		return NewSim(nil), nil
	default:
		return nil, fmt.Errorf("unknown actuator backend %q", name)
	}
}

// sleep is the shared Wait implementation for real-time backends.
func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
