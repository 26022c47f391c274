package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heliosgnss/gnssd/driver"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/lexer"
)

func TestFeedAndStepDecodesOneGGASentence(t *testing.T) {
	s := NewSession(Config{}, nil)
	s.Feed([]byte("$GPGGA,123519,4807.038,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,*42\r\n"))

	r := s.Step()
	require.True(t, r.FrameProduced)
	require.True(t, r.Mask.Has(fix.LatLonSet))
	require.InDelta(t, 48.1173, r.Fix.Lat, 1e-3)

	// No more frames buffered.
	r2 := s.Step()
	require.False(t, r2.FrameProduced)
}

func TestFeedWithLeadingGarbageStillDecodes(t *testing.T) {
	s := NewSession(Config{}, nil)
	s.Feed([]byte("\x01\x02\x03$GPRMC,225446,A,4916.45,N,12311.12,W,000.5,054.7,191194,020.3,E*68\r\n"))

	r := s.Step()
	require.True(t, r.FrameProduced)
	require.True(t, r.Mask.Has(fix.LatLonSet))
	require.InDelta(t, -123.1853, r.Fix.Lon, 1e-3)
}

func TestZeroLengthReadsEventuallyDeactivate(t *testing.T) {
	s := NewSession(Config{}, nil)
	s.Feed(nil)
	r := s.Step()
	require.False(t, r.Deactivate)

	s.Feed(nil)
	r = s.Step()
	require.True(t, r.Deactivate)
}

func TestDriverSwitchesOnFirstRecognizedFrame(t *testing.T) {
	s := NewSession(Config{}, nil)
	require.False(t, s.haveDeviceType)

	s.Feed([]byte("$GPGGA,123519,4807.038,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,*42\r\n"))
	s.Step()
	require.True(t, s.haveDeviceType)
	require.Equal(t, lexer.WireNMEA, driver.Registry[s.deviceType].PacketType)
}

func TestRawFrameTapFiresForEveryFrame(t *testing.T) {
	var taps []lexer.WireType
	s := NewSession(Config{
		OnRawFrame: func(wireType lexer.WireType, payload []byte) {
			taps = append(taps, wireType)
		},
	}, nil)
	s.Feed([]byte("$GPGGA,123519,4807.038,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,*42\r\n"))
	s.Step()
	require.Equal(t, []lexer.WireType{lexer.WireNMEA}, taps)
}

func TestCommentFrameProducesOnlineOnlyMask(t *testing.T) {
	s := NewSession(Config{}, nil)
	s.Feed([]byte("# replay marker\n"))
	r := s.Step()
	require.True(t, r.FrameProduced)
	require.Equal(t, fix.Online, r.Mask)
}
