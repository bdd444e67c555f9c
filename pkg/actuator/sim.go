package actuator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-ohbot/internal/log"
)

// Sim is a hardware-free backend that logs commands at debug level.
// It enforces the same Init/Close lifecycle as the real boards.
type Sim struct {
	logger *slog.Logger

	mu    sync.Mutex
	state lifecycle
}

// NewSim creates a simulator. A nil logger uses the global one.
func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = log.Component("actuator-sim")
	}
	return &Sim{logger: logger}
}

// Init marks the simulator open.
func (s *Sim) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateClosed {
		return &CommandError{Op: "init", Err: ErrClosed}
	}
	s.state = stateOpen
	s.logger.Info("simulated head ready")
	return nil
}

// Close marks the simulator closed.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateClosed
	return nil
}

// Move logs the command.
func (s *Sim) Move(ch Channel, position float64, speed int) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case stateNew:
		return NewMoveError(ch, position, ErrNotInitialized)
	case stateClosed:
		return NewMoveError(ch, position, ErrClosed)
	}
	s.logger.Debug("move", "channel", ch, "position", position, "speed", speed)
	return nil
}

// Wait sleeps for d.
func (s *Sim) Wait(d time.Duration) {
	sleep(d)
}
