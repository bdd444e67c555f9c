package gesture

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds gestures in classification order.
type Registry struct {
	mu      sync.RWMutex
	ordered []Gesture // ascending priority, ties in registration order
	byName  map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds g. Names must be unique.
func (r *Registry) Register(g Gesture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[g.Name]; dup {
		return fmt.Errorf("%w: duplicate gesture %q", ErrInvalidGesture, g.Name)
	}

	g = g.clone()
	idx, _ := slices.BinarySearchFunc(r.ordered, g.Priority, func(e Gesture, p int) int {
		if e.Priority <= p {
			return -1
		}
		return 1
	})
	r.ordered = slices.Insert(r.ordered, idx, g)

	for i, e := range r.ordered {
		r.byName[e.Name] = i
	}
	return nil
}

// Get returns the gesture called name.
func (r *Registry) Get(name string) (Gesture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return Gesture{}, fmt.Errorf("%w: %s", ErrUnknownGesture, name)
	}
	return r.ordered[i].clone(), nil
}

// List returns gesture names in classification order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.ordered))
	for i, g := range r.ordered {
		names[i] = g.Name
	}
	return names
}

// Classify returns the first gesture, in priority order, whose keywords
// occur in text. Matching is a case-insensitive substring test, so "no"
// also fires inside "know". Empty text never matches.
func (r *Registry) Classify(text string) (Gesture, bool) {
	if strings.TrimSpace(text) == "" {
		return Gesture{}, false
	}
	lower := strings.ToLower(text)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.ordered {
		if g.Matches(lower) {
			return g.clone(), true
		}
	}
	return Gesture{}, false
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry of built-in gestures.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := LoadEmbedded()
		if err != nil {
			panic(fmt.Sprintf("gesture: embedded table: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// Classify classifies text against the built-in gestures.
func Classify(text string) (Gesture, bool) {
	return Default().Classify(text)
}
