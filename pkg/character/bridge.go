package character

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

// State is the speaking state.
type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// ResponseSource provides the text currently being spoken.
type ResponseSource interface {
	CurrentResponse() string
}

// GestureDispatcher plays the gesture matching some text.
type GestureDispatcher interface {
	ClassifyAndDispatch(ctx context.Context, text string) (string, error)
}

// Animator runs the talking animation for one utterance.
type Animator interface {
	Start(ctx context.Context, utteranceID string) bool
}

// DisplayQueue receives display text.
type DisplayQueue interface {
	Push(text string)
}

// BridgeDeps are the collaborators of a Bridge.
type BridgeDeps struct {
	Responses ResponseSource
	Gestures  GestureDispatcher
	Animator  Animator
	Mover     motion.Mover
	Display   DisplayQueue
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Bridge turns the agent's speaking notifications into motion and text.
type Bridge struct {
	deps   BridgeDeps
	logger *slog.Logger

	speaking atomic.Bool

	mu  sync.Mutex // serialises transitions
	ctx context.Context

	infoMu    sync.RWMutex
	utterance string
	gesture   string
}

// NewBridge creates a bridge in the Idle state.
func NewBridge(deps BridgeDeps) *Bridge {
	if deps.Logger == nil {
		deps.Logger = log.Component("bridge")
	}
	if deps.Display == nil {
		deps.Display = display.NewQueue(0)
	}
	return &Bridge{deps: deps, logger: deps.Logger, ctx: context.Background()}
}

// bind sets the context used for gestures and talking animations.
func (b *Bridge) bind(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

// Speaking reports the speaking flag.
func (b *Bridge) Speaking() bool {
	return b.speaking.Load()
}

// State returns the current speaking state.
func (b *Bridge) State() State {
	if b.speaking.Load() {
		return Speaking
	}
	return Idle
}

// UtteranceID returns the ID of the current or most recent utterance.
func (b *Bridge) UtteranceID() string {
	b.infoMu.RLock()
	defer b.infoMu.RUnlock()
	return b.utterance
}

// LastGesture returns the gesture played for the current or most recent utterance.
func (b *Bridge) LastGesture() string {
	b.infoMu.RLock()
	defer b.infoMu.RUnlock()
	return b.gesture
}

// OnSpeakingStateChanged handles one notification from the agent. It runs
// on the caller's goroutine and returns after any gesture has finished.
func (b *Bridge) OnSpeakingStateChanged(speaking bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	was := b.speaking.Load()
	if !speaking && !was {
		return
	}
	b.count(speaking)

	if !speaking {
		b.speaking.Store(false)
		b.logger.Info("speaking stopped", "utterance", b.UtteranceID())
		b.closeMouth()
		b.deps.Display.Push("")
		return
	}

	b.speaking.Store(true)
	if !was {
		b.infoMu.Lock()
		b.utterance = uuid.NewString()
		b.gesture = ""
		b.infoMu.Unlock()
	}
	utterance := b.UtteranceID()
	logger := b.logger.With("utterance", utterance)

	text := ""
	if b.deps.Responses != nil {
		text = b.deps.Responses.CurrentResponse()
	}
	logger.Info("speaking", "text", text)
	b.deps.Display.Push(text)

	if b.deps.Gestures != nil {
		name, err := b.deps.Gestures.ClassifyAndDispatch(b.ctx, text)
		if err != nil {
			logger.Warn("gesture failed", "gesture", name, "error", err)
		}
		if name != "" {
			b.infoMu.Lock()
			b.gesture = name
			b.infoMu.Unlock()
		}
	}

	if b.deps.Animator != nil && b.speaking.Load() {
		if b.deps.Animator.Start(b.ctx, utterance) {
			logger.Debug("talking animation launched")
		}
	}
}

// closeMouth puts both lips at rest, attempting both even if one fails.
func (b *Bridge) closeMouth() {
	if b.deps.Mover == nil {
		return
	}
	for _, ch := range []actuator.Channel{actuator.TopLip, actuator.BottomLip} {
		if err := b.deps.Mover.Set(ch, actuator.RestPosition); err != nil {
			b.logger.Warn("failed to close mouth", "channel", ch, "error", err)
		}
	}
}

func (b *Bridge) count(speaking bool) {
	if b.deps.Metrics == nil {
		return
	}
	state := Idle
	if speaking {
		state = Speaking
	}
	b.deps.Metrics.SpeakingChanges.WithLabelValues(state.String()).Inc()
}
