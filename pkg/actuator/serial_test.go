package actuator

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	bytes.Buffer
	flushed bool
	closed  bool
	failW   error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.failW != nil {
		return 0, p.failW
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Flush() error { p.flushed = true; return nil }
func (p *fakePort) Close() error { p.closed = true; return nil }

func newTestSerial(port *fakePort) *Serial {
	s := NewSerial(SerialConfig{Port: "/dev/null"})
	s.open = func(SerialConfig) (serialPort, error) { return port, nil }
	return s
}

func TestEncodeMove(t *testing.T) {
	tests := []struct {
		name  string
		ch    Channel
		pos   float64
		speed int
		want  string
	}{
		{"centre", HeadTurn, 5, 3, "m1,500,3\n"},
		{"above range", HeadNod, 12.4, 10, "m0,1000,10\n"},
		{"below range", EyeTilt, -3, 2, "m6,0,2\n"},
		{"speed floor", TopLip, 7.25, 0, "m4,725,1\n"},
		{"speed ceiling", BottomLip, 4.8, 99, "m5,480,10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeMove(tt.ch, tt.pos, tt.speed))
		})
	}
}

func TestSerial_Lifecycle(t *testing.T) {
	port := &fakePort{}
	s := newTestSerial(port)

	err := s.Move(HeadTurn, 5, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.True(t, IsCommandError(err))

	require.NoError(t, s.Init())
	require.NoError(t, s.Init(), "second Init is a no-op")

	require.NoError(t, s.Move(HeadTurn, 7, 2))
	assert.Equal(t, "m1,700,2\n", port.String())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second Close is a no-op")
	assert.True(t, port.flushed)
	assert.True(t, port.closed)

	assert.ErrorIs(t, s.Move(HeadTurn, 5, 3), ErrClosed)
	assert.ErrorIs(t, s.Init(), ErrClosed)
}

func TestSerial_MoveErrors(t *testing.T) {
	port := &fakePort{}
	s := newTestSerial(port)
	require.NoError(t, s.Init())

	assert.ErrorIs(t, s.Move(Channel(42), 5, 3), ErrUnknownChannel)

	boom := errors.New("cable unplugged")
	port.failW = boom
	err := s.Move(EyeTurn, 6, 3)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "move", cmdErr.Op)
	assert.Equal(t, EyeTurn, cmdErr.Channel)
	assert.ErrorIs(t, err, boom)
}
