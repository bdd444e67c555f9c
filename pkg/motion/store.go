package motion

import (
	"math"
	"sync/atomic"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
)

// Store holds the last commanded position of every channel.
//
// Each channel is its own atomic cell; there is no lock across channels.
// Concurrent writers to the same channel are last-write-wins.
type Store struct {
	cells [actuator.NumChannels]atomic.Uint64
}

// NewStore returns a store with every channel at the centre position.
func NewStore() *Store {
	s := &Store{}
	for _, ch := range actuator.AllChannels() {
		s.Set(ch, actuator.RestPosition)
	}
	return s
}

// Get returns the stored position of ch. Unknown channels read as centre.
func (s *Store) Get(ch actuator.Channel) float64 {
	if !ch.Valid() {
		return actuator.RestPosition
	}
	return math.Float64frombits(s.cells[ch].Load())
}

// Set records p for ch. Unknown channels are ignored.
func (s *Store) Set(ch actuator.Channel, p float64) {
	if !ch.Valid() {
		return
	}
	s.cells[ch].Store(math.Float64bits(p))
}

// Snapshot returns every channel's position.
func (s *Store) Snapshot() map[actuator.Channel]float64 {
	out := make(map[actuator.Channel]float64, actuator.NumChannels)
	for _, ch := range actuator.AllChannels() {
		out[ch] = s.Get(ch)
	}
	return out
}
