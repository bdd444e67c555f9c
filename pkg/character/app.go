// Package character wires the animation core into a running robot head:
// the speech-state bridge, the background task supervisor and the process
// lifecycle.
package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/agent"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/gesture"
	"github.com/teslashibe/go-ohbot/pkg/idle"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
	"github.com/teslashibe/go-ohbot/pkg/speech"
)

// Config holds the tunables of every core component.
type Config struct {
	Motion  motion.Config
	Idle    idle.Config
	Talking speech.Config

	// GestureStepBudget is the move budget of each gesture step.
	GestureStepBudget time.Duration

	// IdleEnabled starts the idle behaviour with Run.
	IdleEnabled bool

	Restart RestartPolicy
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Motion:            motion.DefaultConfig(),
		Idle:              idle.DefaultConfig(),
		Talking:           speech.DefaultConfig(),
		GestureStepBudget: 150 * time.Millisecond,
		IdleEnabled:       true,
	}
}

// Options supplies the App's collaborators. Only Actuator is required.
type Options struct {
	Actuator actuator.Actuator
	Agent    agent.Agent
	Gestures *gesture.Registry
	Display  *display.Queue
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Rand     *rand.Rand
}

type task struct {
	name string
	fn   TaskFunc
}

// errorNotifier is implemented by agents that can lose their connection
// after Connect, such as *agent.WebSocket.
type errorNotifier interface {
	OnError(fn func(error))
}

// App is the running character.
type App struct {
	cfg    Config
	logger *slog.Logger

	act        actuator.Actuator
	agent      agent.Agent
	metrics    *metrics.Metrics
	display    *display.Queue
	ctrl       *motion.Controller
	dispatcher *gesture.Dispatcher
	animator   *speech.Animator
	idle       *idle.Generator
	bridge     *Bridge
	supervisor *Supervisor

	mu          sync.Mutex
	tasks       []task
	initialized bool
	running     bool
	stopped     bool
	cancel      context.CancelFunc
	agentErr    error

	stopOnce sync.Once
}

// New builds an App. Nothing touches hardware until Init.
func New(cfg Config, opts Options) (*App, error) {
	if opts.Actuator == nil {
		return nil, errors.New("character: actuator is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Component("character")
	}
	if opts.Display == nil {
		opts.Display = display.NewQueue(0)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	a := &App{
		cfg:     cfg,
		logger:  opts.Logger,
		act:     actuator.Instrument(opts.Actuator, opts.Metrics),
		agent:   opts.Agent,
		metrics: opts.Metrics,
		display: opts.Display,
	}

	a.ctrl = motion.NewController(a.act, motion.NewStore(), cfg.Motion,
		motion.WithLogger(log.Component("motion")),
		motion.WithMetrics(opts.Metrics),
	)

	a.dispatcher = gesture.NewDispatcher(opts.Gestures, a.ctrl, log.Component("gesture"), opts.Metrics)
	a.dispatcher.SetStepBudget(cfg.GestureStepBudget)

	// Each generator gets its own stream; *rand.Rand is not safe for
	// concurrent use.
	idleRng := rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))
	talkRng := rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))

	a.idle = idle.NewGenerator(a.ctrl, cfg.Idle, idleRng, log.Component("idle"), opts.Metrics)

	var bridge *Bridge
	a.animator = speech.NewAnimator(a.ctrl, func() bool { return bridge.Speaking() }, cfg.Talking, talkRng, log.Component("speech"))
	bridge = NewBridge(BridgeDeps{
		Responses: opts.Agent,
		Gestures:  a.dispatcher,
		Animator:  a.animator,
		Mover:     a.ctrl,
		Display:   a.display,
		Logger:    log.Component("bridge"),
		Metrics:   opts.Metrics,
	})
	a.bridge = bridge

	a.supervisor = NewSupervisor(cfg.Restart, log.Component("supervisor"), opts.Metrics)
	return a, nil
}

// Init opens the actuator and centres the head.
func (a *App) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.initialized {
		return nil
	}
	if err := a.act.Init(); err != nil {
		return err
	}
	if err := a.ctrl.Center(context.Background()); err != nil {
		return err
	}
	a.initialized = true
	a.logger.Info("head initialised")
	return nil
}

// AddTask registers a background task to start with Run.
func (a *App) AddTask(name string, fn TaskFunc) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running || a.stopped {
		return &StartupError{Task: name, Err: ErrAlreadyRunning}
	}
	for _, t := range a.tasks {
		if t.name == name {
			return &StartupError{Task: name, Err: ErrAlreadyRunning}
		}
	}
	a.tasks = append(a.tasks, task{name: name, fn: fn})
	return nil
}

// Run starts the agent connection and background tasks, then blocks until
// ctx is done or the agent connection is lost. It always stops the App
// before returning; a lost agent is reported as the error.
func (a *App) Run(ctx context.Context) error {
	runCtx, tasks, err := a.begin(ctx)
	if err != nil {
		return err
	}

	if err := a.start(runCtx, tasks); err != nil {
		a.Stop()
		return err
	}

	a.logger.Info("character running")
	<-runCtx.Done()
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agentErr != nil {
		return fmt.Errorf("character: dialogue agent lost: %w", a.agentErr)
	}
	return nil
}

// agentLost ends the utterance in progress and shuts the run down.
func (a *App) agentLost(err error) {
	a.logger.Error("dialogue agent lost", "error", err)
	a.bridge.OnSpeakingStateChanged(false)

	a.mu.Lock()
	if a.agentErr == nil {
		a.agentErr = err
	}
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *App) begin(ctx context.Context) (context.Context, []task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.stopped:
		return nil, nil, &StartupError{Task: "character", Err: ErrStopped}
	case !a.initialized:
		return nil, nil, &StartupError{Task: "character", Err: ErrNotInitialized}
	case a.running:
		return nil, nil, &StartupError{Task: "character", Err: ErrAlreadyRunning}
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.bridge.bind(runCtx)
	return runCtx, append([]task(nil), a.tasks...), nil
}

func (a *App) start(ctx context.Context, tasks []task) error {
	if a.agent != nil {
		a.agent.OnSpeakingStateChanged(a.bridge.OnSpeakingStateChanged)
		if n, ok := a.agent.(errorNotifier); ok {
			n.OnError(a.agentLost)
		}
		if err := a.agent.Connect(ctx); err != nil {
			return &StartupError{Task: "agent", Err: err}
		}
	}
	if a.cfg.IdleEnabled {
		if err := a.supervisor.Go(ctx, "idle", a.idle.Run); err != nil {
			return err
		}
	}
	for _, t := range tasks {
		if err := a.supervisor.Go(ctx, t.name, t.fn); err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels every loop, centres the head and closes the actuator.
// It is safe to call more than once and from any goroutine.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		cancel := a.cancel
		initialized := a.initialized
		a.mu.Unlock()

		a.logger.Info("stopping character")
		if cancel != nil {
			cancel()
		}
		if a.agent != nil {
			if err := a.agent.Close(); err != nil {
				a.logger.Warn("agent close failed", "error", err)
			}
		}
		a.animator.Wait()
		a.supervisor.Wait()

		if initialized {
			if err := a.ctrl.Center(context.Background()); err != nil {
				a.logger.Warn("failed to centre head on stop", "error", err)
			}
		}
		if err := a.act.Close(); err != nil {
			a.logger.Warn("actuator close failed", "error", err)
		}
		a.logger.Info("character stopped")
	})
}

// Controller returns the motion controller.
func (a *App) Controller() *motion.Controller { return a.ctrl }

// Dispatcher returns the gesture dispatcher.
func (a *App) Dispatcher() *gesture.Dispatcher { return a.dispatcher }

// Bridge returns the speech-state bridge.
func (a *App) Bridge() *Bridge { return a.bridge }

// Display returns the display queue.
func (a *App) Display() *display.Queue { return a.display }

// Supervisor returns the task supervisor.
func (a *App) Supervisor() *Supervisor { return a.supervisor }

// Status snapshots what the display renderers show.
func (a *App) Status() display.Status {
	snap := a.ctrl.Snapshot()
	positions := make([]display.ChannelPosition, 0, len(snap))
	for _, ch := range actuator.AllChannels() {
		positions = append(positions, display.ChannelPosition{Name: ch.String(), Position: snap[ch]})
	}
	return display.Status{
		Speaking:  a.bridge.Speaking(),
		Utterance: a.bridge.UtteranceID(),
		Gesture:   a.bridge.LastGesture(),
		Positions: positions,
	}
}
