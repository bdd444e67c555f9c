// Package gesture maps response text to short expressive head movements.
package gesture

import (
	"strings"

	"github.com/teslashibe/go-ohbot/pkg/movement"
)

// Gesture is a named, immutable movement sequence with its trigger words.
type Gesture struct {
	Name     string
	Priority int
	Keywords []string
	Steps    movement.Sequence
}

// Matches reports whether any keyword occurs in lower. lower must already
// be lower-cased.
func (g Gesture) Matches(lower string) bool {
	for _, kw := range g.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate the registry.
func (g Gesture) clone() Gesture {
	out := g
	out.Keywords = append([]string(nil), g.Keywords...)
	out.Steps = append(movement.Sequence(nil), g.Steps...)
	return out
}
