package driver

import (
	"testing"
	"time"

	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/lexer"
	"github.com/stretchr/testify/require"
)

func TestLookupByTagFindsEachRegisteredWireType(t *testing.T) {
	for _, tag := range []lexer.WireType{
		lexer.WireNMEA, lexer.WireSiRF, lexer.WireTSIP,
		lexer.WireRTCM2, lexer.WireRTCM3, lexer.WireAIS,
		lexer.WireUBX, lexer.WireEverMore, lexer.WireZodiac, lexer.WireGarminText,
	} {
		i, ok := LookupByTag(tag)
		require.True(t, ok, "no driver registered for %s", tag)
		require.Equal(t, tag, Registry[i].PacketType)
	}
}

func TestLookupByTagMissingReturnsFalse(t *testing.T) {
	_, ok := LookupByTag(lexer.WireBad)
	require.False(t, ok)
}

func TestLookupByName(t *testing.T) {
	i, ok := LookupByName("Generic NMEA")
	require.True(t, ok)
	require.Equal(t, lexer.WireNMEA, Registry[i].PacketType)
}

func TestGenericNMEAParsePacketDecodesRMC(t *testing.T) {
	ctx := NewContext(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	i, ok := LookupByTag(lexer.WireNMEA)
	require.True(t, ok)

	sentence := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	f, mask := Registry[i].ParsePacket(ctx, []byte(sentence))
	require.True(t, mask.Has(fix.LatLonSet))
	require.InDelta(t, 48.1173, f.Lat, 1e-3)
}

func TestSiRFDriverIsSticky(t *testing.T) {
	i, ok := LookupByTag(lexer.WireSiRF)
	require.True(t, ok)
	require.True(t, Registry[i].Sticky)
}

func TestRTCM2DriverIsNoAutoconf(t *testing.T) {
	i, ok := LookupByTag(lexer.WireRTCM2)
	require.True(t, ok)
	require.True(t, Registry[i].NoAutoconf)
}

func TestUBXTruncatedFrameReturnsOnlineOnly(t *testing.T) {
	ctx := NewContext(time.Now())
	i, ok := LookupByTag(lexer.WireUBX)
	require.True(t, ok)
	_, mask := Registry[i].ParsePacket(ctx, []byte{0xb5, 0x62, 0x01, 0x02})
	require.Equal(t, fix.Online, mask)
}

func TestProbeTriggerMatchesKnownVendorSentences(t *testing.T) {
	name, ok := ProbeTrigger("$PASHR,...")
	require.True(t, ok)
	require.Equal(t, "Ashtech", name)

	_, ok = ProbeTrigger("$GPGGA,...")
	require.False(t, ok)
}

func TestBaudLadderIsTheSpecifiedSequence(t *testing.T) {
	require.Equal(t, [7]int{4800, 9600, 19200, 38400, 57600, 115200, 230400}, BaudLadder)
}
