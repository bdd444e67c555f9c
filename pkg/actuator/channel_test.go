package actuator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{5, 5},
		{10, 10},
		{10.0001, 10},
		{math.Inf(1), 10},
		{math.Inf(-1), 0},
		{math.NaN(), RestPosition},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in), "Clamp(%v)", tt.in)
	}
}

func TestParseChannel(t *testing.T) {
	for _, ch := range AllChannels() {
		got, err := ParseChannel(ch.String())
		require.NoError(t, err)
		assert.Equal(t, ch, got)
	}

	got, err := ParseChannel("Head-Turn")
	require.NoError(t, err)
	assert.Equal(t, HeadTurn, got)

	got, err = ParseChannel("lidblink")
	require.NoError(t, err)
	assert.Equal(t, LidBlink, got)

	_, err = ParseChannel("tail")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "head_turn", HeadTurn.String())
	assert.Equal(t, "channel(9)", Channel(9).String())
	assert.False(t, Channel(-1).Valid())
	assert.Len(t, AllChannels(), NumChannels)
}

func TestRestPose(t *testing.T) {
	pose := RestPose()
	require.Len(t, pose, NumChannels)
	for ch, p := range pose {
		if ch == LidBlink {
			assert.Equal(t, LidOpen, p)
			continue
		}
		assert.Equal(t, RestPosition, p, ch.String())
	}
}
