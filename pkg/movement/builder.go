package movement

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

type queued struct {
	ch     actuator.Channel
	target float64
}

// Builder queues moves and plays them in insertion order.
//
//	b := movement.NewBuilder(ctrl)
//	err := b.HeadTurn(7).HeadNod(4).Execute(ctx, true, 300*time.Millisecond)
type Builder struct {
	mover motion.Mover

	mu    sync.Mutex
	queue []queued
}

// NewBuilder binds a builder to mover.
func NewBuilder(mover motion.Mover) *Builder {
	return &Builder{mover: mover}
}

// Move queues a move of ch to target.
func (b *Builder) Move(ch actuator.Channel, target float64) *Builder {
	b.mu.Lock()
	b.queue = append(b.queue, queued{ch: ch, target: target})
	b.mu.Unlock()
	return b
}

func (b *Builder) HeadTurn(p float64) *Builder { return b.Move(actuator.HeadTurn, p) }
func (b *Builder) HeadNod(p float64) *Builder  { return b.Move(actuator.HeadNod, p) }
func (b *Builder) EyeTurn(p float64) *Builder  { return b.Move(actuator.EyeTurn, p) }
func (b *Builder) EyeTilt(p float64) *Builder  { return b.Move(actuator.EyeTilt, p) }
func (b *Builder) Eyelid(p float64) *Builder   { return b.Move(actuator.LidBlink, p) }
func (b *Builder) UpperLip(p float64) *Builder { return b.Move(actuator.TopLip, p) }
func (b *Builder) LowerLip(p float64) *Builder { return b.Move(actuator.BottomLip, p) }

// Len returns the number of queued moves.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Sequence returns the queued moves as a Sequence with the given budget.
func (b *Builder) Sequence(budget time.Duration) Sequence {
	b.mu.Lock()
	defer b.mu.Unlock()
	seq := make(Sequence, 0, len(b.queue))
	for _, q := range b.queue {
		seq = append(seq, Step{Channel: q.ch, Target: q.target, Budget: budget})
	}
	return seq
}

// Execute drains the queue through the mover using duration as each move's
// budget. With waitBetween it also sleeps duration after every move. The
// queue is empty afterwards, even on error.
func (b *Builder) Execute(ctx context.Context, waitBetween bool, duration time.Duration) error {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, q := range pending {
		if err := b.mover.MoveTo(ctx, q.ch, q.target, duration); err != nil {
			return err
		}
		if waitBetween {
			if err := motion.Sleep(ctx, duration); err != nil {
				return err
			}
		}
	}
	return nil
}
