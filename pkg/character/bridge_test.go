package character

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/motion"
	"github.com/teslashibe/go-ohbot/pkg/speech"
)

type staticResponse struct{ text string }

func (s staticResponse) CurrentResponse() string { return s.text }

// mockDispatcher records the text of every dispatch.
type mockDispatcher struct {
	mu    sync.Mutex
	texts []string
	name  string
	err   error
}

func (m *mockDispatcher) ClassifyAndDispatch(_ context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return m.name, m.err
}

// mockAnimator counts Start calls and successful launches.
type mockAnimator struct {
	calls    atomic.Int32
	launched atomic.Int32
	active   atomic.Bool
}

func (m *mockAnimator) Start(context.Context, string) bool {
	m.calls.Add(1)
	if !m.active.CompareAndSwap(false, true) {
		return false
	}
	m.launched.Add(1)
	return true
}

type bridgeFixture struct {
	bridge     *Bridge
	dispatcher *mockDispatcher
	animator   *mockAnimator
	rec        *actuator.Recorder
	queue      *display.Queue
}

func newBridgeFixture(text string) *bridgeFixture {
	f := &bridgeFixture{
		dispatcher: &mockDispatcher{name: "agreement"},
		animator:   &mockAnimator{},
		rec:        actuator.NewRecorder(),
		queue:      display.NewQueue(16),
	}
	ctrl := motion.NewController(f.rec, nil, motion.DefaultConfig())
	f.bridge = NewBridge(BridgeDeps{
		Responses: staticResponse{text},
		Gestures:  f.dispatcher,
		Animator:  f.animator,
		Mover:     ctrl,
		Display:   f.queue,
		Logger:    log.Nop(),
	})
	return f
}

func TestBridge_IdleToSpeaking(t *testing.T) {
	f := newBridgeFixture("Yes, that's amazing")

	f.bridge.OnSpeakingStateChanged(true)

	assert.Equal(t, Speaking, f.bridge.State())
	assert.NotEmpty(t, f.bridge.UtteranceID())
	assert.Equal(t, "agreement", f.bridge.LastGesture())
	assert.Equal(t, []string{"Yes, that's amazing"}, f.dispatcher.texts)
	assert.Equal(t, int32(1), f.animator.launched.Load())
	assert.Equal(t, []string{"Yes, that's amazing"}, f.queue.Drain())
}

func TestBridge_DuplicateSpeakingDoesNotSpawnSecondAnimator(t *testing.T) {
	f := newBridgeFixture("hmm")

	f.bridge.OnSpeakingStateChanged(true)
	id := f.bridge.UtteranceID()
	f.bridge.OnSpeakingStateChanged(true)

	assert.Equal(t, int32(2), f.animator.calls.Load())
	assert.Equal(t, int32(1), f.animator.launched.Load())
	assert.Equal(t, id, f.bridge.UtteranceID(), "same utterance")
	assert.Len(t, f.dispatcher.texts, 2, "text refreshed on every notification")
}

func TestBridge_SpeakingToIdleClosesMouth(t *testing.T) {
	f := newBridgeFixture("well")
	f.bridge.OnSpeakingStateChanged(true)
	f.queue.Drain()

	f.bridge.OnSpeakingStateChanged(false)

	assert.Equal(t, Idle, f.bridge.State())
	top, ok := f.rec.Last(actuator.TopLip)
	require.True(t, ok)
	assert.Equal(t, 5.0, top)
	bottom, ok := f.rec.Last(actuator.BottomLip)
	require.True(t, ok)
	assert.Equal(t, 5.0, bottom)
	assert.Equal(t, []string{""}, f.queue.Drain())
}

func TestBridge_IdleToIdleIgnored(t *testing.T) {
	f := newBridgeFixture("")
	f.bridge.OnSpeakingStateChanged(false)

	assert.Zero(t, f.rec.Len())
	assert.Empty(t, f.queue.Drain())
	assert.Empty(t, f.bridge.UtteranceID())
}

func TestBridge_NewUtterancePerEpisode(t *testing.T) {
	f := newBridgeFixture("yes")
	f.bridge.OnSpeakingStateChanged(true)
	first := f.bridge.UtteranceID()
	f.bridge.OnSpeakingStateChanged(false)
	f.bridge.OnSpeakingStateChanged(true)

	assert.NotEqual(t, first, f.bridge.UtteranceID())
}

func TestBridge_GestureErrorIsNotFatal(t *testing.T) {
	f := newBridgeFixture("no")
	f.dispatcher.err = errors.New("servo stalled")

	f.bridge.OnSpeakingStateChanged(true)

	assert.Equal(t, Speaking, f.bridge.State())
	assert.Equal(t, int32(1), f.animator.launched.Load())
}

func TestBridge_MouthAtRestAfterIdleWithRealAnimator(t *testing.T) {
	rec := actuator.NewRecorder()
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())

	cfg := speech.DefaultConfig()
	cfg.OpenHoldMin, cfg.OpenHoldMax = 5*time.Millisecond, 20*time.Millisecond
	cfg.ClosedHoldMin, cfg.ClosedHoldMax = 5*time.Millisecond, 20*time.Millisecond

	var b *Bridge
	anim := speech.NewAnimator(ctrl, func() bool { return b.Speaking() }, cfg, nil, nil)
	b = NewBridge(BridgeDeps{
		Responses: staticResponse{"The sky is blue"},
		Animator:  anim,
		Mover:     ctrl,
	})

	b.OnSpeakingStateChanged(true)
	time.Sleep(80 * time.Millisecond)
	b.OnSpeakingStateChanged(false)

	// Within one cycle the animator notices and rests the lips.
	done := make(chan struct{})
	go func() { anim.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("animator still running")
	}

	assert.Equal(t, 5.0, ctrl.Store().Get(actuator.TopLip))
	assert.Equal(t, 5.0, ctrl.Store().Get(actuator.BottomLip))
	assert.False(t, anim.Active())
}

// slowMover delays every direct command, like a sluggish serial link.
type slowMover struct {
	motion.Mover
	delay time.Duration
}

func (s slowMover) Set(ch actuator.Channel, p float64) error {
	time.Sleep(s.delay)
	return s.Mover.Set(ch, p)
}

func TestBridge_QuickRespeakKeepsAnimating(t *testing.T) {
	rec := actuator.NewRecorder()
	mover := slowMover{Mover: motion.NewController(rec, nil, motion.DefaultConfig()), delay: 40 * time.Millisecond}

	cfg := speech.DefaultConfig()
	cfg.OpenHoldMin, cfg.OpenHoldMax = 5*time.Millisecond, 10*time.Millisecond
	cfg.ClosedHoldMin, cfg.ClosedHoldMax = 5*time.Millisecond, 10*time.Millisecond

	var b *Bridge
	anim := speech.NewAnimator(mover, func() bool { return b.Speaking() }, cfg, nil, log.Nop())
	b = NewBridge(BridgeDeps{
		Responses: staticResponse{"well, then"},
		Animator:  anim,
		Mover:     mover,
		Logger:    log.Nop(),
	})

	b.OnSpeakingStateChanged(true)
	b.OnSpeakingStateChanged(false)
	time.Sleep(100 * time.Millisecond)
	b.OnSpeakingStateChanged(true)

	time.Sleep(300 * time.Millisecond)
	assert.True(t, b.Speaking())
	assert.True(t, anim.Active(), "lips must keep moving while speaking")

	b.OnSpeakingStateChanged(false)
	require.Eventually(t, func() bool { return !anim.Active() }, 2*time.Second, 10*time.Millisecond)
	anim.Wait()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "speaking", Speaking.String())
}
