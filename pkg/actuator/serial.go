package actuator

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Default serial settings for the Ohbot control board.
const (
	DefaultSerialPort = "/dev/ttyUSB0"
	DefaultSerialBaud = 19200
)

// SerialConfig holds serial port configuration.
type SerialConfig struct {
	// Port is the device path (e.g., "/dev/ttyUSB0", "COM3").
	Port string

	// Baud is the line rate.
	Baud int

	// ReadTimeout bounds reads; the board never replies to moves.
	ReadTimeout time.Duration
}

// DefaultSerialConfig returns the board defaults for device.
func DefaultSerialConfig(device string) SerialConfig {
	if device == "" {
		device = DefaultSerialPort
	}
	return SerialConfig{
		Port:        device,
		Baud:        DefaultSerialBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// serialPort is the part of *serial.Port the backend uses.
type serialPort interface {
	io.WriteCloser
	Flush() error
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateOpen
	stateClosed
)

// Serial drives the Ohbot board over a serial line.
//
// Each move is one ASCII line: "m<motor>,<position*100>,<speed>\n", with the
// position scaled to 0-1000 so the board never sees a float.
type Serial struct {
	cfg  SerialConfig
	open func(SerialConfig) (serialPort, error)

	mu    sync.Mutex
	state lifecycle
	port  serialPort
}

// NewSerial creates a serial backend. Nothing is opened until Init.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.Port == "" {
		cfg.Port = DefaultSerialPort
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultSerialBaud
	}
	return &Serial{cfg: cfg, open: openTarm}
}

func openTarm(cfg SerialConfig) (serialPort, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}

// Init opens the serial port.
func (s *Serial) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		return nil
	case stateClosed:
		return &CommandError{Op: "init", Err: ErrClosed}
	}

	port, err := s.open(s.cfg)
	if err != nil {
		return &CommandError{Op: "init", Err: err}
	}
	s.port = port
	s.state = stateOpen
	return nil
}

// Close flushes and closes the port. Closing twice is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		s.state = stateClosed
		return nil
	}
	s.state = stateClosed

	_ = s.port.Flush()
	if err := s.port.Close(); err != nil {
		return &CommandError{Op: "close", Err: err}
	}
	return nil
}

// Move writes one move line.
func (s *Serial) Move(ch Channel, position float64, speed int) error {
	if !ch.Valid() {
		return NewMoveError(ch, position, ErrUnknownChannel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateNew:
		return NewMoveError(ch, position, ErrNotInitialized)
	case stateClosed:
		return NewMoveError(ch, position, ErrClosed)
	}

	if _, err := io.WriteString(s.port, encodeMove(ch, position, speed)); err != nil {
		return NewMoveError(ch, position, err)
	}
	return nil
}

// Wait sleeps for d.
func (s *Serial) Wait(d time.Duration) {
	sleep(d)
}

// encodeMove formats one board command.
func encodeMove(ch Channel, position float64, speed int) string {
	raw := int(math.Round(Clamp(position) * 100))
	if speed < 1 {
		speed = 1
	}
	if speed > 10 {
		speed = 10
	}
	return fmt.Sprintf("m%d,%d,%d\n", int(ch), raw, speed)
}
