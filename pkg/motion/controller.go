// Package motion turns target positions into smooth streams of actuator
// commands and keeps the shared record of where every channel was last sent.
package motion

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
)

// Mover is what animation code needs from the controller.
type Mover interface {
	MoveTo(ctx context.Context, ch actuator.Channel, target float64, budget time.Duration) error
	Set(ch actuator.Channel, position float64) error
}

// channelState is published per channel so observers can see what each
// channel is heading for without touching the running move.
type channelState struct {
	setpoint   atomic.Uint64 // float64 bits
	lastSample atomic.Int64  // unix nanos of the last command
}

// Controller drives channels toward targets with a fixed-gain PID loop.
//
// The loop is open: there is no position feedback, so the "measured"
// position is the last commanded one from the Store. Moves on different
// channels run concurrently; two moves on the same channel interleave and
// the last write wins.
type Controller struct {
	act     actuator.Actuator
	store   *Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	state [actuator.NumChannels]channelState
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records move durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a controller. A nil store gets a fresh one.
func NewController(act actuator.Actuator, store *Store, cfg Config, opts ...Option) *Controller {
	if store == nil {
		store = NewStore()
	}
	c := &Controller{
		act:    act,
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: log.Component("motion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, ch := range actuator.AllChannels() {
		c.state[ch].setpoint.Store(math.Float64bits(store.Get(ch)))
	}
	return c
}

// Store returns the shared position store.
func (c *Controller) Store() *Store { return c.store }

// Config returns the effective configuration.
func (c *Controller) Config() Config { return c.cfg }

// Setpoint returns the most recent target for ch.
func (c *Controller) Setpoint(ch actuator.Channel) float64 {
	if !ch.Valid() {
		return actuator.RestPosition
	}
	return math.Float64frombits(c.state[ch].setpoint.Load())
}

// LastSample returns when ch was last commanded, or the zero time.
func (c *Controller) LastSample(ch actuator.Channel) time.Time {
	if !ch.Valid() {
		return time.Time{}
	}
	ns := c.state[ch].lastSample.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Snapshot returns every stored position.
func (c *Controller) Snapshot() map[actuator.Channel]float64 {
	return c.store.Snapshot()
}

// MoveTo drives ch toward target for at most budget.
//
// It returns nil once the channel is within Tolerance of the clamped target
// or when the budget runs out, whichever comes first. A budget <= 0 returns
// at once without commanding anything. An actuator failure aborts the move
// and is returned as a *actuator.CommandError; positions already sent stay
// in the store.
func (c *Controller) MoveTo(ctx context.Context, ch actuator.Channel, target float64, budget time.Duration) error {
	if !ch.Valid() {
		return actuator.NewMoveError(ch, target, actuator.ErrUnknownChannel)
	}
	if budget <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target = actuator.Clamp(target)
	c.state[ch].setpoint.Store(math.Float64bits(target))

	start := time.Now()
	outcome := "reached"
	defer func() { c.observe(ch, outcome, start) }()

	dt := c.cfg.Tick.Seconds()
	e := target - c.store.Get(ch)
	if math.Abs(e) <= c.cfg.Tolerance {
		return nil
	}

	// Accumulators belong to this move. Seeding lastErr with the first
	// error keeps the derivative term from kicking on the first tick.
	var integral float64
	lastErr := e

	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()
	expired := time.NewTimer(budget)
	defer expired.Stop()

	for {
		integral += e * dt
		integral = clampAbs(integral, c.cfg.IntegralLimit)
		derivative := (e - lastErr) / dt
		u := c.cfg.Kp*e + c.cfg.Ki*integral + c.cfg.Kd*derivative

		next := actuator.Clamp(c.store.Get(ch) + c.cfg.Gain*u)
		if err := c.command(ch, next); err != nil {
			outcome = "error"
			return err
		}

		lastErr = e
		e = target - next
		if math.Abs(e) <= c.cfg.Tolerance {
			return nil
		}

		select {
		case <-ctx.Done():
			outcome = "cancelled"
			return ctx.Err()
		case <-expired.C:
			outcome = "budget"
			return nil
		case <-ticker.C:
		}
	}
}

// Set sends one clamped command for ch and records it.
func (c *Controller) Set(ch actuator.Channel, position float64) error {
	if !ch.Valid() {
		return actuator.NewMoveError(ch, position, actuator.ErrUnknownChannel)
	}
	position = actuator.Clamp(position)
	c.state[ch].setpoint.Store(math.Float64bits(position))
	return c.command(ch, position)
}

// Center puts every channel in the rest pose and waits for it to settle.
// It attempts every channel and returns the first failure.
func (c *Controller) Center(ctx context.Context) error {
	var first error
	pose := actuator.RestPose()
	for _, ch := range actuator.AllChannels() {
		if err := c.Set(ch, pose[ch]); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return first
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.act.Wait(c.cfg.Settle)
	return nil
}

// command sends position to the actuator and, on success, to the store.
func (c *Controller) command(ch actuator.Channel, position float64) error {
	if err := c.act.Move(ch, position, c.cfg.Speed); err != nil {
		if !actuator.IsCommandError(err) {
			err = actuator.NewMoveError(ch, position, err)
		}
		c.logger.Debug("actuator command failed", "channel", ch, "position", position, "error", err)
		return err
	}
	c.store.Set(ch, position)
	c.state[ch].lastSample.Store(time.Now().UnixNano())
	return nil
}

func (c *Controller) observe(ch actuator.Channel, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.MoveDuration.WithLabelValues(ch.String(), outcome).Observe(time.Since(start).Seconds())
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
