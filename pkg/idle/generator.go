// Package idle keeps the head alive between utterances with small random
// looks and blinks.
package idle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

// Config controls the idle loop.
type Config struct {
	Weights Weights
	Timings map[Mode]Timing

	// BlinkChance is the probability of a blink per iteration.
	BlinkChance float64
	BlinkHold   time.Duration

	// FocusPause separates the eye dart from the head follow in focused mode.
	FocusPause time.Duration
}

// DefaultConfig returns the stock idle behaviour.
func DefaultConfig() Config {
	return Config{
		Weights:     DefaultWeights,
		Timings:     DefaultTimings(),
		BlinkChance: 0.3,
		BlinkHold:   100 * time.Millisecond,
		FocusPause:  200 * time.Millisecond,
	}
}

// Targets is one iteration's plan.
type Targets struct {
	Mode     Mode
	HeadTurn float64
	HeadNod  float64
	EyeTurn  float64
	EyeTilt  float64
	Blink    bool
	Pause    time.Duration
}

// Generator runs the idle loop.
type Generator struct {
	mover   motion.Mover
	cfg     Config
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewGenerator creates an idle generator. A nil rng is seeded from the runtime.
func NewGenerator(mover motion.Mover, cfg Config, rng *rand.Rand, logger *slog.Logger, m *metrics.Metrics) *Generator {
	if cfg.Timings == nil {
		cfg.Timings = DefaultTimings()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = log.Component("idle")
	}
	return &Generator{mover: mover, cfg: cfg, rng: rng, logger: logger, metrics: m}
}

// Run loops until ctx is done or an iteration fails. Cancellation returns nil.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("idle behaviour started")
	defer g.logger.Info("idle behaviour stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := g.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			g.logger.Error("idle iteration failed", "error", err)
			return err
		}
	}
}

// Step plans and performs one iteration, including its closing pause.
func (g *Generator) Step(ctx context.Context) error {
	t := g.Plan()
	if g.metrics != nil {
		g.metrics.IdleIterations.WithLabelValues(t.Mode.String()).Inc()
	}
	g.logger.Debug("idle iteration", "mode", t.Mode,
		"head_turn", t.HeadTurn, "head_nod", t.HeadNod,
		"eye_turn", t.EyeTurn, "eye_tilt", t.EyeTilt, "blink", t.Blink)

	if err := g.perform(ctx, t); err != nil {
		return fmt.Errorf("idle %s: %w", t.Mode, err)
	}
	return motion.Sleep(ctx, t.Pause)
}

// Plan draws the targets for one iteration. Every target is clamped.
func (g *Generator) Plan() Targets {
	t := Targets{Mode: SelectMode(g.rng, g.cfg.Weights)}

	switch t.Mode {
	case Subtle:
		t.HeadTurn = g.uniform(4, 6)
		t.HeadNod = g.uniform(4, 6)
		t.EyeTurn = g.uniform(4, 6)
		t.EyeTilt = g.uniform(4, 6)
	case LookAround:
		t.HeadTurn = g.uniform(3, 7)
		t.HeadNod = g.uniform(3, 7)
		t.EyeTurn = t.HeadTurn + g.uniform(-1, 1)
		t.EyeTilt = t.HeadNod + g.uniform(-1, 1)
	case Focused:
		t.EyeTurn = g.uniform(2, 8)
		t.EyeTilt = g.uniform(2, 8)
		t.HeadTurn = t.EyeTurn + g.uniform(-0.5, 0.5)
		t.HeadNod = t.EyeTilt + g.uniform(-0.5, 0.5)
	}

	t.HeadTurn = actuator.Clamp(t.HeadTurn)
	t.HeadNod = actuator.Clamp(t.HeadNod)
	t.EyeTurn = actuator.Clamp(t.EyeTurn)
	t.EyeTilt = actuator.Clamp(t.EyeTilt)

	t.Blink = g.rng.Float64() < g.cfg.BlinkChance

	timing := g.cfg.Timings[t.Mode]
	t.Pause = time.Duration(g.uniform(float64(timing.PauseMin), float64(timing.PauseMax)))
	return t
}

func (g *Generator) perform(ctx context.Context, t Targets) error {
	timing := g.cfg.Timings[t.Mode]

	if t.Mode == Focused {
		if err := g.eyes(ctx, t, timing.EyeBudget); err != nil {
			return err
		}
		if err := motion.Sleep(ctx, g.cfg.FocusPause); err != nil {
			return err
		}
	}

	if err := g.mover.MoveTo(ctx, actuator.HeadTurn, t.HeadTurn, timing.HeadBudget); err != nil {
		return err
	}
	if err := g.mover.MoveTo(ctx, actuator.HeadNod, t.HeadNod, timing.HeadBudget); err != nil {
		return err
	}
	if t.Mode != Focused {
		if err := g.eyes(ctx, t, timing.EyeBudget); err != nil {
			return err
		}
	}

	if t.Blink {
		return g.blink(ctx)
	}
	return nil
}

func (g *Generator) eyes(ctx context.Context, t Targets, budget time.Duration) error {
	if err := g.mover.MoveTo(ctx, actuator.EyeTurn, t.EyeTurn, budget); err != nil {
		return err
	}
	return g.mover.MoveTo(ctx, actuator.EyeTilt, t.EyeTilt, budget)
}

// blink closes and reopens the eyelid. Both are direct commands: the full
// lid travel does not fit in a smooth move of blink length.
func (g *Generator) blink(ctx context.Context) error {
	if err := g.mover.Set(actuator.LidBlink, actuator.LidClosed); err != nil {
		return err
	}
	if err := motion.Sleep(ctx, g.cfg.BlinkHold); err != nil {
		return err
	}
	return g.mover.Set(actuator.LidBlink, actuator.LidOpen)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
