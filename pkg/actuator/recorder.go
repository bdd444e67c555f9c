package actuator

import (
	"errors"
	"sync"
	"time"
)

// ErrInjected is the failure returned by a Recorder configured to fail.
var ErrInjected = errors.New("actuator: injected failure")

// Command is one recorded Move.
type Command struct {
	Channel  Channel
	Position float64
	Speed    int
	At       time.Time
}

// Recorder is an in-memory Actuator. It records every command and can be
// told to fail, which makes it the standard double for the core's tests.
// Wait is recorded but does not sleep.
type Recorder struct {
	mu       sync.Mutex
	state    lifecycle
	commands []Command
	waits    []time.Duration
	inits    int
	closes   int

	failOn    map[Channel]bool
	failAfter int // fail once more than failAfter moves succeeded; 0 disables
}

// NewRecorder returns an initialised recorder.
func NewRecorder() *Recorder {
	return &Recorder{state: stateOpen, failOn: make(map[Channel]bool)}
}

// FailOn makes every Move on ch fail.
func (r *Recorder) FailOn(ch Channel) {
	r.mu.Lock()
	r.failOn[ch] = true
	r.mu.Unlock()
}

// FailAfter makes every Move fail once n moves have succeeded.
func (r *Recorder) FailAfter(n int) {
	r.mu.Lock()
	r.failAfter = n
	r.mu.Unlock()
}

// Init reopens the recorder unless it was closed.
func (r *Recorder) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	if r.state == stateClosed {
		return &CommandError{Op: "init", Err: ErrClosed}
	}
	r.state = stateOpen
	return nil
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	r.state = stateClosed
	return nil
}

// Move records the command.
func (r *Recorder) Move(ch Channel, position float64, speed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !ch.Valid() {
		return NewMoveError(ch, position, ErrUnknownChannel)
	}
	if r.state == stateClosed {
		return NewMoveError(ch, position, ErrClosed)
	}
	if r.failOn[ch] || (r.failAfter > 0 && len(r.commands) >= r.failAfter) {
		return NewMoveError(ch, position, ErrInjected)
	}
	r.commands = append(r.commands, Command{Channel: ch, Position: position, Speed: speed, At: time.Now()})
	return nil
}

// Wait records d.
func (r *Recorder) Wait(d time.Duration) {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
}

// Commands returns a copy of every recorded Move.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// CommandsFor returns the recorded Moves on ch.
func (r *Recorder) CommandsFor(ch Channel) []Command {
	var out []Command
	for _, c := range r.Commands() {
		if c.Channel == ch {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the last position commanded on ch.
func (r *Recorder) Last(ch Channel) (float64, bool) {
	cmds := r.CommandsFor(ch)
	if len(cmds) == 0 {
		return 0, false
	}
	return cmds[len(cmds)-1].Position, true
}

// Len returns the number of recorded Moves.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// Waits returns the recorded Wait durations.
func (r *Recorder) Waits() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.waits))
	copy(out, r.waits)
	return out
}

// Closes returns how many times Close was called.
func (r *Recorder) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

// Reset drops recorded commands and waits.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.waits = nil
	r.mu.Unlock()
}
