package agent

import (
	"context"
	"sync/atomic"
	"time"
)

// Local is an in-process agent. Callers push responses and speaking
// changes; callbacks run synchronously on the pushing goroutine.
type Local struct {
	state
	connected atomic.Bool
	speaking  atomic.Bool
}

// NewLocal creates a local agent.
func NewLocal() *Local {
	return &Local{}
}

// Connect marks the agent live.
func (l *Local) Connect(ctx context.Context) error {
	if !l.connected.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	return nil
}

// Close marks the agent closed.
func (l *Local) Close() error {
	l.connected.Store(false)
	return nil
}

// Speaking reports the last pushed speaking state.
func (l *Local) Speaking() bool {
	return l.speaking.Load()
}

// Respond sets the current response text.
func (l *Local) Respond(text string) {
	l.setResponse(text)
}

// SetSpeaking pushes a speaking-state change.
func (l *Local) SetSpeaking(speaking bool) error {
	if !l.connected.Load() {
		return ErrNotConnected
	}
	l.speaking.Store(speaking)
	l.emitSpeaking(speaking)
	return nil
}

// Say plays a complete utterance: respond, speak for d, stop speaking.
func (l *Local) Say(ctx context.Context, text string, d time.Duration) error {
	l.Respond(text)
	if err := l.SetSpeaking(true); err != nil {
		return err
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return l.SetSpeaking(false)
}
