// Package movement composes single-channel moves into ordered sequences.
//
// Gestures are stored as Sequences and played with ExecuteSequence; ad-hoc
// choreography (CLI, dashboard) uses a Builder. Both run synchronously on
// the caller's goroutine through a motion.Mover.
package movement

import (
	"time"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
)

// DefaultStepBudget is used for steps that leave Budget unset.
const DefaultStepBudget = 150 * time.Millisecond

// Step moves one channel, then holds.
type Step struct {
	Channel actuator.Channel
	Target  float64
	Budget  time.Duration // time allowed for the move; 0 means DefaultStepBudget
	Hold    time.Duration // pause after the move
}

// Sequence is an ordered list of steps.
type Sequence []Step

// Duration returns the worst-case wall time of the sequence.
func (s Sequence) Duration() time.Duration {
	var total time.Duration
	for _, st := range s {
		total += st.budget() + st.Hold
	}
	return total
}

// Channels returns the distinct channels touched, in first-use order.
func (s Sequence) Channels() []actuator.Channel {
	seen := make(map[actuator.Channel]bool, len(s))
	var out []actuator.Channel
	for _, st := range s {
		if !seen[st.Channel] {
			seen[st.Channel] = true
			out = append(out, st.Channel)
		}
	}
	return out
}

// WithBudget returns a copy with every unset budget replaced by d.
func (s Sequence) WithBudget(d time.Duration) Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Budget <= 0 {
			out[i].Budget = d
		}
	}
	return out
}

func (st Step) budget() time.Duration {
	if st.Budget <= 0 {
		return DefaultStepBudget
	}
	return st.Budget
}
