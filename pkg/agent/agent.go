// Package agent is the boundary to the dialogue engine that drives the head.
//
// An Agent reports when the character starts and stops speaking and exposes
// the text of the response being spoken. Two implementations are provided:
// Local, which is pushed from in-process code (CLI, dashboard, tests), and
// WebSocket, which follows a remote engine's JSON event stream.
package agent

import (
	"context"
	"sync"
)

// Agent is a source of speaking-state changes.
type Agent interface {
	// Connect starts delivering events.
	Connect(ctx context.Context) error

	// Close stops delivering events. Closing twice is safe.
	Close() error

	// CurrentResponse returns the text currently being spoken.
	CurrentResponse() string

	// OnSpeakingStateChanged registers the transition callback. It is
	// invoked on the agent's goroutine and may block for a gesture.
	OnSpeakingStateChanged(fn func(speaking bool))
}

// Event is the JSON wire form of an agent notification.
//
//	{"type":"response","text":"Yes, absolutely."}
//	{"type":"speaking","speaking":true}
type Event struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Speaking bool   `json:"speaking,omitempty"`
}

// Event types.
const (
	EventResponse = "response"
	EventSpeaking = "speaking"
)

// state is the bookkeeping shared by both implementations.
type state struct {
	mu         sync.RWMutex
	response   string
	onSpeaking func(bool)
}

func (s *state) CurrentResponse() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.response
}

func (s *state) OnSpeakingStateChanged(fn func(speaking bool)) {
	s.mu.Lock()
	s.onSpeaking = fn
	s.mu.Unlock()
}

func (s *state) setResponse(text string) {
	s.mu.Lock()
	s.response = text
	s.mu.Unlock()
}

func (s *state) emitSpeaking(speaking bool) {
	s.mu.RLock()
	fn := s.onSpeaking
	s.mu.RUnlock()
	if fn != nil {
		fn(speaking)
	}
}
