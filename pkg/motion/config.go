package motion

import "time"

// Config holds the controller gains and timing.
type Config struct {
	// Tick is the control period; one actuator command is sent per tick.
	Tick time.Duration

	// Tolerance is the distance at which a move counts as arrived.
	Tolerance float64

	// PID gains. Gain scales the controller output into a position step.
	Kp, Ki, Kd float64
	Gain       float64

	// IntegralLimit bounds the accumulated error (anti-windup).
	IntegralLimit float64

	// Speed is the hint passed to the actuator on every command.
	Speed int

	// Settle is how long Center waits after commanding the rest pose.
	Settle time.Duration
}

// DefaultConfig returns gains that move a channel 2 units in roughly 150ms
// at 100Hz without visible overshoot.
func DefaultConfig() Config {
	return Config{
		Tick:          10 * time.Millisecond,
		Tolerance:     0.1,
		Kp:            1.0,
		Ki:            0.5,
		Kd:            0.005,
		Gain:          0.25,
		IntegralLimit: 2.0,
		Speed:         10,
		Settle:        500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.Kp == 0 && c.Ki == 0 && c.Kd == 0 {
		c.Kp, c.Ki, c.Kd = d.Kp, d.Ki, d.Kd
	}
	if c.Gain <= 0 {
		c.Gain = d.Gain
	}
	if c.IntegralLimit <= 0 {
		c.IntegralLimit = d.IntegralLimit
	}
	if c.Speed <= 0 {
		c.Speed = d.Speed
	}
	if c.Settle == 0 {
		c.Settle = d.Settle
	}
	return c
}
