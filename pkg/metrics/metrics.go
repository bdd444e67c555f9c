// Package metrics holds the Prometheus collectors for the animation core.
//
// Collectors live on a private registry so tests and multiple apps in one
// process never collide on the global default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ohbot"

// Metrics is the set of collectors exported by the core.
type Metrics struct {
	Registry *prometheus.Registry

	ActuatorCommands *prometheus.CounterVec   // by channel
	ActuatorErrors   *prometheus.CounterVec   // by channel
	MoveDuration     *prometheus.HistogramVec // by channel and outcome
	IdleIterations   *prometheus.CounterVec   // by mode
	Gestures         *prometheus.CounterVec   // by gesture name
	SpeakingChanges  *prometheus.CounterVec   // by target state
	TaskExits        *prometheus.CounterVec   // by task name
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ActuatorCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_commands_total",
			Help:      "Move commands sent to the actuator interface.",
		}, []string{"channel"}),
		ActuatorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_errors_total",
			Help:      "Move commands the actuator interface rejected.",
		}, []string{"channel"}),
		MoveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_duration_seconds",
			Help:      "Wall-clock time spent in smooth moves.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"channel", "outcome"}),
		IdleIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_iterations_total",
			Help:      "Idle behaviour iterations by mode.",
		}, []string{"mode"}),
		Gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Gestures dispatched.",
		}, []string{"gesture"}),
		SpeakingChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speaking_transitions_total",
			Help:      "Speaking state notifications handled, by resulting state.",
		}, []string{"state"}),
		TaskExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_exits_total",
			Help:      "Supervised background tasks that stopped on error.",
		}, []string{"task"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		m.ActuatorCommands,
		m.ActuatorErrors,
		m.MoveDuration,
		m.IdleIterations,
		m.Gestures,
		m.SpeakingChanges,
		m.TaskExits,
	)
	return m
}
