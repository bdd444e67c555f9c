package movement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

type moveCall struct {
	ch     actuator.Channel
	target float64
	budget time.Duration
	at     time.Time
}

// mockMover records MoveTo calls.
type mockMover struct {
	mu     sync.Mutex
	calls  []moveCall
	failAt int // 1-based call index to fail; 0 never
}

func (m *mockMover) MoveTo(_ context.Context, ch actuator.Channel, target float64, budget time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, moveCall{ch, target, budget, time.Now()})
	if m.failAt == len(m.calls) {
		return errors.New("servo stalled")
	}
	return nil
}

func (m *mockMover) Set(ch actuator.Channel, p float64) error {
	return m.MoveTo(context.Background(), ch, p, 0)
}

func TestExecuteSequence_Order(t *testing.T) {
	m := &mockMover{}
	seq := Sequence{
		{Channel: actuator.HeadNod, Target: 7, Hold: 20 * time.Millisecond},
		{Channel: actuator.HeadNod, Target: 3, Budget: 50 * time.Millisecond},
		{Channel: actuator.EyeTilt, Target: 5},
	}

	start := time.Now()
	require.NoError(t, ExecuteSequence(context.Background(), m, seq))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.Len(t, m.calls, 3)
	assert.Equal(t, 7.0, m.calls[0].target)
	assert.Equal(t, DefaultStepBudget, m.calls[0].budget)
	assert.Equal(t, 50*time.Millisecond, m.calls[1].budget)
	assert.Equal(t, actuator.EyeTilt, m.calls[2].ch)
	assert.GreaterOrEqual(t, m.calls[1].at.Sub(m.calls[0].at), 20*time.Millisecond)
}

func TestExecuteSequence_AbortsOnError(t *testing.T) {
	m := &mockMover{failAt: 2}
	seq := Sequence{
		{Channel: actuator.HeadTurn, Target: 7},
		{Channel: actuator.HeadTurn, Target: 3},
		{Channel: actuator.HeadTurn, Target: 5},
	}

	err := ExecuteSequence(context.Background(), m, seq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
	assert.Len(t, m.calls, 2)
}

func TestExecuteSequence_Cancelled(t *testing.T) {
	m := &mockMover{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ExecuteSequence(ctx, m, Sequence{{Channel: actuator.HeadTurn, Target: 7, Hold: time.Second}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteSequence_WithController(t *testing.T) {
	rec := actuator.NewRecorder()
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())

	seq := Sequence{
		{Channel: actuator.HeadNod, Target: 7, Budget: 300 * time.Millisecond},
		{Channel: actuator.HeadNod, Target: 5, Budget: 300 * time.Millisecond},
	}
	require.NoError(t, ExecuteSequence(context.Background(), ctrl, seq))
	assert.InDelta(t, 5.0, ctrl.Store().Get(actuator.HeadNod), 0.1)
	assert.NotZero(t, rec.Len())
}

func TestSequence_Helpers(t *testing.T) {
	seq := Sequence{
		{Channel: actuator.HeadTurn, Target: 6, Hold: 500 * time.Millisecond},
		{Channel: actuator.EyeTilt, Target: 7, Budget: 100 * time.Millisecond},
		{Channel: actuator.HeadTurn, Target: 5},
	}
	assert.Equal(t, []actuator.Channel{actuator.HeadTurn, actuator.EyeTilt}, seq.Channels())
	assert.Equal(t, 500*time.Millisecond+DefaultStepBudget*2+100*time.Millisecond, seq.Duration())

	b := seq.WithBudget(time.Second)
	assert.Equal(t, time.Second, b[0].Budget)
	assert.Equal(t, 100*time.Millisecond, b[1].Budget)
	assert.Zero(t, seq[0].Budget, "input untouched")
}

func TestBuilder_Execute(t *testing.T) {
	m := &mockMover{}
	b := NewBuilder(m)

	b.HeadTurn(7).HeadNod(4).EyeTurn(6).EyeTilt(3).Eyelid(10).UpperLip(8).LowerLip(2)
	require.Equal(t, 7, b.Len())

	require.NoError(t, b.Execute(context.Background(), false, 80*time.Millisecond))
	assert.Zero(t, b.Len())

	want := []actuator.Channel{
		actuator.HeadTurn, actuator.HeadNod, actuator.EyeTurn, actuator.EyeTilt,
		actuator.LidBlink, actuator.TopLip, actuator.BottomLip,
	}
	require.Len(t, m.calls, len(want))
	for i, ch := range want {
		assert.Equal(t, ch, m.calls[i].ch)
		assert.Equal(t, 80*time.Millisecond, m.calls[i].budget)
	}
}

func TestBuilder_WaitBetween(t *testing.T) {
	m := &mockMover{}
	b := NewBuilder(m).HeadTurn(7).HeadTurn(3)

	start := time.Now()
	require.NoError(t, b.Execute(context.Background(), true, 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestBuilder_ClearsQueueOnError(t *testing.T) {
	m := &mockMover{failAt: 1}
	b := NewBuilder(m).HeadTurn(7).HeadTurn(3)

	require.Error(t, b.Execute(context.Background(), false, 10*time.Millisecond))
	assert.Zero(t, b.Len())
	assert.Len(t, m.calls, 1)
}

func TestBuilder_Sequence(t *testing.T) {
	b := NewBuilder(&mockMover{}).HeadNod(7).HeadNod(3)
	seq := b.Sequence(200 * time.Millisecond)
	require.Len(t, seq, 2)
	assert.Equal(t, 3.0, seq[1].Target)
	assert.Equal(t, 2, b.Len(), "Sequence does not drain")
}
