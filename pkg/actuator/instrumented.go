package actuator

import "github.com/teslashibe/go-ohbot/pkg/metrics"

// Instrumented counts commands and failures per channel.
type Instrumented struct {
	Actuator
	m *metrics.Metrics
}

// Instrument wraps a with Prometheus counters. A nil m returns a unchanged.
func Instrument(a Actuator, m *metrics.Metrics) Actuator {
	if m == nil {
		return a
	}
	return &Instrumented{Actuator: a, m: m}
}

// Move forwards to the wrapped actuator and records the outcome.
func (i *Instrumented) Move(ch Channel, position float64, speed int) error {
	i.m.ActuatorCommands.WithLabelValues(ch.String()).Inc()
	if err := i.Actuator.Move(ch, position, speed); err != nil {
		i.m.ActuatorErrors.WithLabelValues(ch.String()).Inc()
		return err
	}
	return nil
}
