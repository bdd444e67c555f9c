package actuator

import (
	"fmt"
	"math"
	"strings"
)

// Channel identifies one motor axis of the head.
type Channel int

// The seven Ohbot channels. Values match the motor numbers on the board.
const (
	HeadNod Channel = iota
	HeadTurn
	EyeTurn
	LidBlink
	TopLip
	BottomLip
	EyeTilt

	// NumChannels is the size of the fixed channel set.
	NumChannels = 7
)

// Position limits shared by every channel.
const (
	MinPosition  = 0.0
	MaxPosition  = 10.0
	RestPosition = 5.0

	// LidOpen and LidClosed are the eyelid extremes.
	LidOpen   = 0.0
	LidClosed = 10.0
)

var channelNames = [NumChannels]string{
	HeadNod:   "head_nod",
	HeadTurn:  "head_turn",
	EyeTurn:   "eye_turn",
	LidBlink:  "eyelid",
	TopLip:    "upper_lip",
	BottomLip: "lower_lip",
	EyeTilt:   "eye_tilt",
}

// String returns the stable snake_case name of the channel.
func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Valid reports whether c is one of the seven known channels.
func (c Channel) Valid() bool {
	return c >= 0 && int(c) < NumChannels
}

// AllChannels returns every channel in motor-number order.
func AllChannels() []Channel {
	return []Channel{HeadNod, HeadTurn, EyeTurn, LidBlink, TopLip, BottomLip, EyeTilt}
}

// ParseChannel resolves a channel by name. Dashes and case are ignored.
func ParseChannel(name string) (Channel, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, cn := range channelNames {
		if cn == n {
			return Channel(i), nil
		}
	}
	// Motor names from the Ohbot Python library.
	switch n {
	case "lidblink", "lid":
		return LidBlink, nil
	case "toplip", "top_lip":
		return TopLip, nil
	case "bottomlip", "bottom_lip":
		return BottomLip, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

// Clamp restricts p to [MinPosition, MaxPosition]. NaN maps to RestPosition.
func Clamp(p float64) float64 {
	if math.IsNaN(p) {
		return RestPosition
	}
	if p < MinPosition {
		return MinPosition
	}
	if p > MaxPosition {
		return MaxPosition
	}
	return p
}

// RestPose returns the centred pose: everything at 5 except the eyelid, which is open.
func RestPose() map[Channel]float64 {
	pose := make(map[Channel]float64, NumChannels)
	for _, ch := range AllChannels() {
		pose[ch] = RestPosition
	}
	pose[LidBlink] = LidOpen
	return pose
}
