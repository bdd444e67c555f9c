package idle

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func fastConfig() Config {
	cfg := DefaultConfig()
	for m, tm := range cfg.Timings {
		tm.HeadBudget = 20 * time.Millisecond
		tm.EyeBudget = 20 * time.Millisecond
		tm.PauseMin = time.Millisecond
		tm.PauseMax = 2 * time.Millisecond
		cfg.Timings[m] = tm
	}
	cfg.BlinkHold = time.Millisecond
	cfg.FocusPause = time.Millisecond
	return cfg
}

func TestSelectMode_WeightsConverge(t *testing.T) {
	rng := seeded()
	const n = 20000
	counts := map[Mode]int{}
	for range n {
		counts[SelectMode(rng, DefaultWeights)]++
	}

	for i, m := range Modes {
		got := float64(counts[m]) / n
		assert.InDelta(t, DefaultWeights[i], got, 0.02, m.String())
	}
}

func TestSelectMode_Degenerate(t *testing.T) {
	rng := seeded()
	assert.Equal(t, Subtle, SelectMode(rng, Weights{}))
	for range 100 {
		assert.Equal(t, Focused, SelectMode(rng, Weights{0, 0, 1}))
	}
}

func TestPlan_Ranges(t *testing.T) {
	g := NewGenerator(nil, DefaultConfig(), seeded(), nil, nil)

	seen := map[Mode]bool{}
	blinks := 0
	const n = 5000
	for range n {
		p := g.Plan()
		seen[p.Mode] = true
		if p.Blink {
			blinks++
		}
		timing := DefaultTimings()[p.Mode]
		assert.GreaterOrEqual(t, p.Pause, timing.PauseMin)
		assert.LessOrEqual(t, p.Pause, timing.PauseMax)

		switch p.Mode {
		case Subtle:
			for _, v := range []float64{p.HeadTurn, p.HeadNod, p.EyeTurn, p.EyeTilt} {
				assert.GreaterOrEqual(t, v, 4.0)
				assert.LessOrEqual(t, v, 6.0)
			}
		case LookAround:
			assert.GreaterOrEqual(t, p.HeadTurn, 3.0)
			assert.LessOrEqual(t, p.HeadTurn, 7.0)
			assert.InDelta(t, p.HeadTurn, p.EyeTurn, 1.0)
			assert.InDelta(t, p.HeadNod, p.EyeTilt, 1.0)
		case Focused:
			assert.GreaterOrEqual(t, p.EyeTurn, 2.0)
			assert.LessOrEqual(t, p.EyeTurn, 8.0)
			assert.InDelta(t, p.EyeTurn, p.HeadTurn, 0.5)
			assert.InDelta(t, p.EyeTilt, p.HeadNod, 0.5)
		}
	}

	assert.Len(t, seen, 3)
	assert.InDelta(t, 0.3, float64(blinks)/n, 0.03)
}

// offCentre parks the head and eyes at 0 so every idle target needs a move.
func offCentre(ctrl *motion.Controller) {
	for _, ch := range []actuator.Channel{actuator.HeadTurn, actuator.HeadNod, actuator.EyeTurn, actuator.EyeTilt} {
		ctrl.Store().Set(ch, 0)
	}
}

func TestStep_MovesAndBlinks(t *testing.T) {
	rec := actuator.NewRecorder()
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())
	offCentre(ctrl)
	cfg := fastConfig()
	cfg.BlinkChance = 1
	g := NewGenerator(ctrl, cfg, seeded(), nil, nil)

	require.NoError(t, g.Step(context.Background()))

	for _, ch := range []actuator.Channel{actuator.HeadTurn, actuator.HeadNod, actuator.EyeTurn, actuator.EyeTilt} {
		assert.NotEmpty(t, rec.CommandsFor(ch), ch.String())
	}
	lid := rec.CommandsFor(actuator.LidBlink)
	require.Len(t, lid, 2)
	assert.Equal(t, actuator.LidClosed, lid[0].Position)
	assert.Equal(t, actuator.LidOpen, lid[1].Position)
	assert.Equal(t, actuator.LidOpen, ctrl.Store().Get(actuator.LidBlink))

	for _, c := range rec.Commands() {
		assert.GreaterOrEqual(t, c.Position, actuator.MinPosition)
		assert.LessOrEqual(t, c.Position, actuator.MaxPosition)
	}
}

func TestStep_FocusedMovesEyesFirst(t *testing.T) {
	rec := actuator.NewRecorder()
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())
	offCentre(ctrl)
	cfg := fastConfig()
	cfg.Weights = Weights{0, 0, 1}
	cfg.BlinkChance = 0
	g := NewGenerator(ctrl, cfg, seeded(), nil, nil)

	require.NoError(t, g.Step(context.Background()))

	cmds := rec.Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, actuator.EyeTurn, cmds[0].Channel)
	assert.Empty(t, rec.CommandsFor(actuator.LidBlink))
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := metrics.New()
	ctrl := motion.NewController(actuator.NewRecorder(), nil, motion.DefaultConfig())
	g := NewGenerator(ctrl, fastConfig(), seeded(), nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- g.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	total := 0.0
	for _, mode := range Modes {
		total += testutil.ToFloat64(m.IdleIterations.WithLabelValues(mode.String()))
	}
	assert.Greater(t, total, 0.0)
}

func TestRun_ReturnsActuatorError(t *testing.T) {
	rec := actuator.NewRecorder()
	rec.FailOn(actuator.HeadTurn)
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())
	cfg := fastConfig()
	cfg.Weights = Weights{1, 0, 0}
	g := NewGenerator(ctrl, cfg, seeded(), nil, nil)

	err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, actuator.IsCommandError(err))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "subtle", Subtle.String())
	assert.Equal(t, "look_around", LookAround.String())
	assert.Equal(t, "focused", Focused.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
