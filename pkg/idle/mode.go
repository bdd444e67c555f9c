package idle

import (
	"math/rand/v2"
	"time"
)

// Mode is one idle behaviour style.
type Mode int

const (
	Subtle Mode = iota
	LookAround
	Focused
)

func (m Mode) String() string {
	switch m {
	case Subtle:
		return "subtle"
	case LookAround:
		return "look_around"
	case Focused:
		return "focused"
	default:
		return "unknown"
	}
}

// Modes lists every mode in weight order.
var Modes = []Mode{Subtle, LookAround, Focused}

// Weights is the selection probability of each mode.
type Weights [3]float64

// DefaultWeights favours small movements.
var DefaultWeights = Weights{0.7, 0.2, 0.1}

// SelectMode draws a mode from w. Weights need not sum to 1; a zero
// total falls back to Subtle.
func SelectMode(rng *rand.Rand, w Weights) Mode {
	total := w[0] + w[1] + w[2]
	if total <= 0 {
		return Subtle
	}
	x := rng.Float64() * total
	for i, m := range Modes {
		if x < w[i] {
			return m
		}
		x -= w[i]
	}
	return Focused
}

// Timing holds per-mode move budgets and pauses.
type Timing struct {
	HeadBudget time.Duration
	EyeBudget  time.Duration
	PauseMin   time.Duration
	PauseMax   time.Duration
}

// DefaultTimings mirrors the board speed hints: head moves at speed 2, eyes
// at 3, focused eye darts at 10. Look-around is the slowest, focused the
// quickest.
func DefaultTimings() map[Mode]Timing {
	return map[Mode]Timing{
		Subtle: {
			HeadBudget: 600 * time.Millisecond,
			EyeBudget:  400 * time.Millisecond,
			PauseMin:   time.Second,
			PauseMax:   3 * time.Second,
		},
		LookAround: {
			HeadBudget: 900 * time.Millisecond,
			EyeBudget:  600 * time.Millisecond,
			PauseMin:   500 * time.Millisecond,
			PauseMax:   1500 * time.Millisecond,
		},
		Focused: {
			HeadBudget: 400 * time.Millisecond,
			EyeBudget:  150 * time.Millisecond,
			PauseMin:   2 * time.Second,
			PauseMax:   4 * time.Second,
		},
	}
}
