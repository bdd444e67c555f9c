package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

// TaskFunc is a long-running background task. Returning nil means the
// task finished; returning an error means it failed.
type TaskFunc func(ctx context.Context) error

// RestartPolicy controls what happens when a task fails.
// The zero value is fail-stop: the failure is logged and the task stays down.
type RestartPolicy struct {
	MaxRestarts int
	Backoff     time.Duration
}

// Supervisor runs named tasks and records how they end.
type Supervisor struct {
	policy  RestartPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	running  map[string]bool
	failures map[string]error
	wg       sync.WaitGroup
}

// NewSupervisor creates a supervisor.
func NewSupervisor(policy RestartPolicy, logger *slog.Logger, m *metrics.Metrics) *Supervisor {
	if logger == nil {
		logger = log.Component("supervisor")
	}
	return &Supervisor{
		policy:   policy,
		logger:   logger,
		metrics:  m,
		running:  make(map[string]bool),
		failures: make(map[string]error),
	}
}

// Go starts fn under name. It fails with a *StartupError if fn is nil or
// a task with the same name is still running.
func (s *Supervisor) Go(ctx context.Context, name string, fn TaskFunc) error {
	if fn == nil {
		return &StartupError{Task: name, Err: errors.New("nil task")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return &StartupError{Task: name, Err: ErrAlreadyRunning}
	}
	if err := ctx.Err(); err != nil {
		return &StartupError{Task: name, Err: err}
	}
	s.running[name] = true
	delete(s.failures, name)

	s.wg.Add(1)
	go s.supervise(ctx, name, fn)
	return nil
}

// Wait blocks until every task has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Running reports whether name is active.
func (s *Supervisor) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[name]
}

// Failure returns the error that stopped name, if any.
func (s *Supervisor) Failure(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[name]
}

func (s *Supervisor) supervise(ctx context.Context, name string, fn TaskFunc) {
	defer s.wg.Done()

	logger := s.logger.With("task", name)
	var err error
	for attempt := 0; ; attempt++ {
		err = run(ctx, fn)
		if err == nil || ctx.Err() != nil {
			err = nil
			break
		}

		logger.Error("task failed", "error", err, "attempt", attempt+1)
		if s.metrics != nil {
			s.metrics.TaskExits.WithLabelValues(name).Inc()
		}
		if attempt >= s.policy.MaxRestarts {
			break
		}
		if motion.Sleep(ctx, s.policy.Backoff) != nil {
			err = nil
			break
		}
		logger.Info("restarting task")
	}

	s.mu.Lock()
	delete(s.running, name)
	if err != nil {
		s.failures[name] = err
	}
	s.mu.Unlock()
}

// run calls fn, turning a panic into an error.
func run(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
