// Package speech animates the mouth while the character is talking.
package speech

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

// Config holds the lip animation ranges.
type Config struct {
	OpenMin, OpenMax     float64 // both lips go to one draw from this range
	ClosedMin, ClosedMax float64 // both lips share one draw from this range

	OpenHoldMin, OpenHoldMax     time.Duration
	ClosedHoldMin, ClosedHoldMax time.Duration
}

// DefaultConfig returns the talking cadence used on the Ohbot.
func DefaultConfig() Config {
	return Config{
		OpenMin:       6.5,
		OpenMax:       8.5,
		ClosedMin:     4.8,
		ClosedMax:     5.2,
		OpenHoldMin:   100 * time.Millisecond,
		OpenHoldMax:   300 * time.Millisecond,
		ClosedHoldMin: 100 * time.Millisecond,
		ClosedHoldMax: 250 * time.Millisecond,
	}
}

// Animator flaps the lips for as long as the speaking flag stays set.
// At most one animation loop runs at a time.
type Animator struct {
	mover    motion.Mover
	speaking func() bool
	cfg      Config
	rng      *rand.Rand
	logger   *slog.Logger

	active atomic.Bool

	mu   sync.Mutex
	done chan struct{} // closed when the current loop exits
}

// NewAnimator creates an animator. speaking is polled once per cycle.
// A nil rng is seeded from the runtime.
func NewAnimator(mover motion.Mover, speaking func() bool, cfg Config, rng *rand.Rand, logger *slog.Logger) *Animator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = log.Component("speech")
	}
	closed := make(chan struct{})
	close(closed)
	return &Animator{
		mover:    mover,
		speaking: speaking,
		cfg:      cfg,
		rng:      rng,
		logger:   logger,
		done:     closed,
	}
}

// Start launches the animation loop unless one is already running.
// It reports whether a new loop was started.
func (a *Animator) Start(ctx context.Context, utteranceID string) bool {
	if !a.active.CompareAndSwap(false, true) {
		return false
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.done = done
	a.mu.Unlock()

	go a.run(ctx, utteranceID, done)
	return true
}

// Active reports whether a loop is running.
func (a *Animator) Active() bool {
	return a.active.Load()
}

// Wait blocks until the current loop, if any, has exited.
func (a *Animator) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	<-done
}

func (a *Animator) run(ctx context.Context, utteranceID string, done chan struct{}) {
	logger := a.logger.With("utterance", utteranceID)
	logger.Debug("talking animation started")

	// quiet is set when the loop ended because speaking stopped, the only
	// exit that may be overtaken by a new utterance.
	var quiet bool
	defer func() {
		a.rest(logger)
		a.active.Store(false)
		close(done)
		logger.Debug("talking animation stopped")

		// A Start that raced with this exit lost its CAS; pick it up here.
		if quiet && a.speaking() && ctx.Err() == nil && a.Start(ctx, utteranceID) {
			logger.Debug("talking animation relaunched")
		}
	}()

	for a.speaking() && ctx.Err() == nil {
		if err := a.cycle(ctx); err != nil {
			if ctx.Err() == nil {
				logger.Warn("talking animation aborted", "error", err)
			}
			return
		}
	}
	quiet = true
}

// cycle opens the mouth, holds, closes it and holds again.
func (a *Animator) cycle(ctx context.Context) error {
	open := a.uniform(a.cfg.OpenMin, a.cfg.OpenMax)
	if err := a.lips(open); err != nil {
		return err
	}
	if err := motion.Sleep(ctx, a.duration(a.cfg.OpenHoldMin, a.cfg.OpenHoldMax)); err != nil {
		return err
	}

	closed := a.uniform(a.cfg.ClosedMin, a.cfg.ClosedMax)
	if err := a.lips(closed); err != nil {
		return err
	}
	return motion.Sleep(ctx, a.duration(a.cfg.ClosedHoldMin, a.cfg.ClosedHoldMax))
}

func (a *Animator) lips(p float64) error {
	if err := a.mover.Set(actuator.TopLip, p); err != nil {
		return err
	}
	return a.mover.Set(actuator.BottomLip, p)
}

// rest closes the mouth. Both lips are attempted even if one fails.
func (a *Animator) rest(logger *slog.Logger) {
	for _, ch := range []actuator.Channel{actuator.TopLip, actuator.BottomLip} {
		if err := a.mover.Set(ch, actuator.RestPosition); err != nil {
			logger.Warn("failed to close mouth", "channel", ch, "error", err)
		}
	}
}

func (a *Animator) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + a.rng.Float64()*(hi-lo)
}

func (a *Animator) duration(lo, hi time.Duration) time.Duration {
	return time.Duration(a.uniform(float64(lo), float64(hi)))
}
