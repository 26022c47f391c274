package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.bug.st/serial"

	"github.com/heliosgnss/gnssd/fix"
)

func TestParityModeMapsKnownCharacters(t *testing.T) {
	require.Equal(t, serial.EvenParity, parityMode('E'))
	require.Equal(t, serial.OddParity, parityMode('O'))
	require.Equal(t, serial.NoParity, parityMode('N'))
	require.Equal(t, serial.NoParity, parityMode('x'))
}

func TestStopBitsModeMapsOneAndTwo(t *testing.T) {
	require.Equal(t, serial.OneStopBit, stopBitsMode(1))
	require.Equal(t, serial.TwoStopBits, stopBitsMode(2))
	require.Equal(t, serial.OneStopBit, stopBitsMode(0))
}

func TestFixFeedBroadcastToNoSubscribersIsANoop(t *testing.T) {
	f := NewFixFeed()
	require.NotPanics(t, func() {
		f.Broadcast(fix.New())
	})
}
