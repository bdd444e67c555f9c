package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// ServoRange maps one channel onto a Feetech servo.
type ServoRange struct {
	ID       int `json:"id" mapstructure:"id"`
	RangeMin int `json:"range_min" mapstructure:"range_min"`
	RangeMax int `json:"range_max" mapstructure:"range_max"`
}

// Denormalize converts a [0, 10] position to a raw servo position.
func (r ServoRange) Denormalize(position float64) int {
	span := float64(r.RangeMax - r.RangeMin)
	return r.RangeMin + int(Clamp(position)/MaxPosition*span)
}

// FeetechConfig configures the bus servo backend.
type FeetechConfig struct {
	Port     string
	BaudRate int
	Servos   map[Channel]ServoRange

	// CommandTimeout bounds a single bus write.
	CommandTimeout time.Duration
}

// DefaultFeetechConfig maps channels to servo IDs 1-7 over the full STS range.
func DefaultFeetechConfig(port string) FeetechConfig {
	servos := make(map[Channel]ServoRange, NumChannels)
	for _, ch := range AllChannels() {
		servos[ch] = ServoRange{ID: int(ch) + 1, RangeMin: 0, RangeMax: 4095}
	}
	return FeetechConfig{
		Port:           port,
		BaudRate:       1_000_000,
		Servos:         servos,
		CommandTimeout: 100 * time.Millisecond,
	}
}

// Feetech drives a head built from Feetech STS bus servos.
// Speed hints are ignored; the controller already paces the motion.
type Feetech struct {
	cfg FeetechConfig

	mu    sync.Mutex
	state lifecycle
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

// NewFeetech creates a Feetech backend. The bus is opened on Init.
func NewFeetech(cfg FeetechConfig) *Feetech {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 1_000_000
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 100 * time.Millisecond
	}
	if len(cfg.Servos) == 0 {
		cfg.Servos = DefaultFeetechConfig(cfg.Port).Servos
	}
	return &Feetech{cfg: cfg}
}

// Init opens the bus and enables torque on every mapped servo.
func (f *Feetech) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateOpen:
		return nil
	case stateClosed:
		return &CommandError{Op: "init", Err: ErrClosed}
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     f.cfg.Port,
		BaudRate: f.cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return &CommandError{Op: "init", Err: fmt.Errorf("open bus: %w", err)}
	}

	ids := make([]int, 0, len(f.cfg.Servos))
	for _, ch := range AllChannels() {
		if r, ok := f.cfg.Servos[ch]; ok {
			ids = append(ids, r.ID)
		}
	}
	group := feetech.NewServoGroupByIDs(bus, ids...)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return &CommandError{Op: "init", Err: fmt.Errorf("enable torque: %w", err)}
	}

	f.bus, f.group = bus, group
	f.state = stateOpen
	return nil
}

// Close disables torque and closes the bus.
func (f *Feetech) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != stateOpen {
		f.state = stateClosed
		return nil
	}
	f.state = stateClosed

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = f.group.DisableAll(ctx)

	if err := f.bus.Close(); err != nil {
		return &CommandError{Op: "close", Err: err}
	}
	return nil
}

// Move writes one servo position.
func (f *Feetech) Move(ch Channel, position float64, speed int) error {
	r, ok := f.cfg.Servos[ch]
	if !ok || !ch.Valid() {
		return NewMoveError(ch, position, ErrUnknownChannel)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateNew:
		return NewMoveError(ch, position, ErrNotInitialized)
	case stateClosed:
		return NewMoveError(ch, position, ErrClosed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.CommandTimeout)
	defer cancel()

	raw := feetech.PositionMap{r.ID: r.Denormalize(position)}
	if err := f.group.SetPositions(ctx, raw); err != nil {
		return NewMoveError(ch, position, err)
	}
	return nil
}

// Wait sleeps for d.
func (f *Feetech) Wait(d time.Duration) {
	sleep(d)
}
