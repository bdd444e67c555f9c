package character

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
)

func TestSupervisor_FailStop(t *testing.T) {
	m := metrics.New()
	s := NewSupervisor(RestartPolicy{}, log.Nop(), m)
	boom := errors.New("boom")
	var runs atomic.Int32

	require.NoError(t, s.Go(context.Background(), "idle", func(context.Context) error {
		runs.Add(1)
		return boom
	}))
	s.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, s.Running("idle"))
	assert.ErrorIs(t, s.Failure("idle"), boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskExits.WithLabelValues("idle")))
}

func TestSupervisor_BoundedRestarts(t *testing.T) {
	s := NewSupervisor(RestartPolicy{MaxRestarts: 2, Backoff: time.Millisecond}, log.Nop(), nil)
	var runs atomic.Int32

	require.NoError(t, s.Go(context.Background(), "flaky", func(context.Context) error {
		runs.Add(1)
		return errors.New("flaky")
	}))
	s.Wait()

	assert.Equal(t, int32(3), runs.Load())
	assert.Error(t, s.Failure("flaky"))
}

func TestSupervisor_RecoversPanic(t *testing.T) {
	s := NewSupervisor(RestartPolicy{}, log.Nop(), nil)
	require.NoError(t, s.Go(context.Background(), "bad", func(context.Context) error {
		panic("oops")
	}))
	s.Wait()
	require.Error(t, s.Failure("bad"))
	assert.Contains(t, s.Failure("bad").Error(), "oops")
}

func TestSupervisor_StartupErrors(t *testing.T) {
	s := NewSupervisor(RestartPolicy{}, log.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.Go(ctx, "nil", nil)
	assert.True(t, IsStartupError(err))

	require.NoError(t, s.Go(ctx, "loop", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))
	err = s.Go(ctx, "loop", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.True(t, s.Running("loop"))

	cancel()
	s.Wait()
	assert.NoError(t, s.Failure("loop"))

	err = s.Go(ctx, "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupervisor_CancelDuringBackoff(t *testing.T) {
	s := NewSupervisor(RestartPolicy{MaxRestarts: 5, Backoff: time.Hour}, log.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Go(ctx, "idle", func(context.Context) error { return errors.New("x") }))
	time.Sleep(20 * time.Millisecond)
	cancel()
	s.Wait()
	assert.NoError(t, s.Failure("idle"))
}
