package movement

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-ohbot/pkg/motion"
)

// ExecuteSequence runs the steps in order: move within the step budget,
// then hold. The first failing step aborts the sequence.
func ExecuteSequence(ctx context.Context, mover motion.Mover, seq Sequence) error {
	for i, st := range seq {
		if err := mover.MoveTo(ctx, st.Channel, st.Target, st.budget()); err != nil {
			return fmt.Errorf("step %d (%s -> %.1f): %w", i, st.Channel, st.Target, err)
		}
		if err := motion.Sleep(ctx, st.Hold); err != nil {
			return err
		}
	}
	return nil
}
