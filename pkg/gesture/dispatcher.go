package gesture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
	"github.com/teslashibe/go-ohbot/pkg/movement"
)

// Dispatcher classifies text and plays the matching gesture.
type Dispatcher struct {
	registry *Registry
	mover    motion.Mover
	logger   *slog.Logger
	metrics  *metrics.Metrics

	stepBudget time.Duration
}

// NewDispatcher creates a dispatcher. A nil registry uses the built-in gestures.
func NewDispatcher(registry *Registry, mover motion.Mover, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if registry == nil {
		registry = Default()
	}
	if logger == nil {
		logger = log.Component("gesture")
	}
	return &Dispatcher{registry: registry, mover: mover, logger: logger, metrics: m}
}

// SetStepBudget sets the move budget for steps that do not carry their own.
func (d *Dispatcher) SetStepBudget(budget time.Duration) {
	d.stepBudget = budget
}

// Registry returns the gestures the dispatcher knows.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// ClassifyAndDispatch plays the gesture matching text and returns its name.
// Text that matches nothing produces no motion, an empty name and no error.
func (d *Dispatcher) ClassifyAndDispatch(ctx context.Context, text string) (string, error) {
	g, ok := d.registry.Classify(text)
	if !ok {
		return "", nil
	}
	return g.Name, d.play(ctx, g)
}

// Play runs the named gesture.
func (d *Dispatcher) Play(ctx context.Context, name string) error {
	g, err := d.registry.Get(name)
	if err != nil {
		return err
	}
	return d.play(ctx, g)
}

func (d *Dispatcher) play(ctx context.Context, g Gesture) error {
	d.logger.Debug("performing gesture", "gesture", g.Name, "steps", len(g.Steps))
	if d.metrics != nil {
		d.metrics.Gestures.WithLabelValues(g.Name).Inc()
	}
	steps := g.Steps
	if d.stepBudget > 0 {
		steps = steps.WithBudget(d.stepBudget)
	}
	if err := movement.ExecuteSequence(ctx, d.mover, steps); err != nil {
		return fmt.Errorf("gesture %s: %w", g.Name, err)
	}
	return nil
}
