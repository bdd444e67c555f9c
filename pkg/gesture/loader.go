package gesture

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/movement"
)

//go:embed data/gestures.yaml
var embeddedTable []byte

type tableDoc struct {
	Gestures []gestureDoc `yaml:"gestures"`
}

type gestureDoc struct {
	Name     string    `yaml:"name"`
	Priority int       `yaml:"priority"`
	Keywords []string  `yaml:"keywords"`
	Steps    []stepDoc `yaml:"steps"`
}

type stepDoc struct {
	Channel string  `yaml:"channel"`
	Target  float64 `yaml:"target"`
	Hold    float64 `yaml:"hold"`   // seconds
	Budget  float64 `yaml:"budget"` // seconds, optional
}

// LoadEmbedded returns a registry holding the built-in gestures.
func LoadEmbedded() (*Registry, error) {
	return Parse(embeddedTable)
}

// LoadFile reads a gesture table from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gesture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML gesture table.
func Parse(data []byte) (*Registry, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGesture, err)
	}
	if len(doc.Gestures) == 0 {
		return nil, fmt.Errorf("%w: no gestures defined", ErrInvalidGesture)
	}

	r := NewRegistry()
	for _, gd := range doc.Gestures {
		g, err := gd.build()
		if err != nil {
			return nil, err
		}
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (gd gestureDoc) build() (Gesture, error) {
	name := strings.TrimSpace(gd.Name)
	if name == "" {
		return Gesture{}, fmt.Errorf("%w: gesture without a name", ErrInvalidGesture)
	}
	if len(gd.Steps) == 0 {
		return Gesture{}, fmt.Errorf("%w: %s has no steps", ErrInvalidGesture, name)
	}

	g := Gesture{Name: name, Priority: gd.Priority}
	for _, kw := range gd.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			g.Keywords = append(g.Keywords, kw)
		}
	}

	for i, sd := range gd.Steps {
		ch, err := actuator.ParseChannel(sd.Channel)
		if err != nil {
			return Gesture{}, fmt.Errorf("%w: %s step %d: %v", ErrInvalidGesture, name, i, err)
		}
		if sd.Hold < 0 || sd.Budget < 0 {
			return Gesture{}, fmt.Errorf("%w: %s step %d: negative duration", ErrInvalidGesture, name, i)
		}
		g.Steps = append(g.Steps, movement.Step{
			Channel: ch,
			Target:  actuator.Clamp(sd.Target),
			Budget:  seconds(sd.Budget),
			Hold:    seconds(sd.Hold),
		})
	}
	return g, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
