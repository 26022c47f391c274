package sirf

import (
	"testing"

	"github.com/heliosgnss/gnssd/bitutil"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/gtime"
	"github.com/stretchr/testify/require"
)

func buildSiRFFrame(payload []byte) []byte {
	ck := bitutil.SiRFChecksum(payload)
	frame := make([]byte, 0, 8+len(payload))
	frame = append(frame, 0xa0, 0xa2, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, byte(ck>>8), byte(ck))
	frame = append(frame, 0xb0, 0xb3)
	return frame
}

func putBE16(buf []byte, off int, v uint16) {
	buf[off] = byte(v >> 8)
	buf[off+1] = byte(v)
}

func putBE32(buf []byte, off int, v uint32) {
	buf[off] = byte(v >> 24)
	buf[off+1] = byte(v >> 16)
	buf[off+2] = byte(v >> 8)
	buf[off+3] = byte(v)
}

func TestDecodeFirmwareVersionSetsGE232(t *testing.T) {
	st := NewState()
	payload := append([]byte{0x06}, []byte("232.000.000-GSW3\x00")...)
	r := Decode(buildSiRFFrame(payload), st)
	require.Equal(t, fix.Mask(0), r.Mask)
	require.NotEqual(t, uint32(0), st.driverstate&FirmwareGE232)
}

func TestDecodeFirmwareVersionPre231(t *testing.T) {
	st := NewState()
	payload := append([]byte{0x06}, []byte("200.000.000\x00")...)
	Decode(buildSiRFFrame(payload), st)
	require.NotEqual(t, uint32(0), st.driverstate&FirmwareLT231)
}

// A message 0x02 (Measured Navigation Data) with an ECEF position chosen
// so the geodetic conversion comes out to clean numbers: a point 100m
// above the ellipsoid directly on the equator/prime-meridian, moving
// east at 3 m/s and up at 5 m/s.
func TestDecodeMNDBasicFix(t *testing.T) {
	st := NewState()
	payload := make([]byte, 41)
	payload[0] = 0x02
	putBE32(payload, 1, uint32(int32(6378137+100))) // X
	putBE32(payload, 5, 0)                          // Y
	putBE32(payload, 9, 0)                           // Z
	putBE16(payload, 13, uint16(int16(5*8)))         // Vx: 5 m/s
	putBE16(payload, 15, uint16(int16(3*8)))         // Vy: 3 m/s
	putBE16(payload, 17, 0)                          // Vz
	payload[19] = 4                                  // navtype: 3D KF fix
	payload[20] = 5                                  // HDOP*5 == 1.0
	payload[21] = 0
	putBE16(payload, 22, 100)     // GPS week
	putBE32(payload, 24, 0)       // TOW
	payload[28] = 6               // satellites used
	for i := 0; i < 6; i++ {
		payload[29+i] = byte(i + 1)
	}

	r := Decode(buildSiRFFrame(payload), st)

	require.True(t, r.Mask.Has(fix.LatLonSet|fix.StatusSet|fix.ModeSet|fix.UsedSet|fix.TimeSet))
	require.Equal(t, fix.Mode3D, r.Fix.Mode)
	require.Equal(t, fix.StatusFix, r.Fix.Status)
	require.InDelta(t, 0.0, r.Fix.Lat, 1e-6)
	require.InDelta(t, 0.0, r.Fix.Lon, 1e-6)
	require.InDelta(t, 100.0, r.Fix.AltHAE, 1e-3)
	require.InDelta(t, 3.0, r.Fix.Speed, 1e-6)
	require.InDelta(t, 90.0, r.Fix.Track, 1e-6)
	require.InDelta(t, 5.0, r.Fix.Climb, 1e-6)
	require.Equal(t, 6, r.Fix.SatellitesUsed)
	require.Len(t, r.Sats, 6)
	require.InDelta(t, gtime.WeekTOWToUnix(100, 0, 0), r.Fix.Time, 1e-6)
}

// TestDecodeSubframeExtractsLeapSeconds builds a synthetic message 0x08
// whose post-parity-strip words encode subframe 4, page 18 (magic SVID
// 56), leap-second byte 18 — the IS-GPS-200 "black magic" subframe
// layout.
func TestDecodeSubframeExtractsLeapSeconds(t *testing.T) {
	payload := make([]byte, 43)
	payload[0] = 0x08
	payload[1] = 1 // channel
	payload[2] = 5 // SV ID

	putBE32(payload, 3, 0x8b0000<<6)  // word[0]: sync nibble, no inversion
	putBE32(payload, 7, 0x10<<6)      // word[1]: subframe ID bits = 4
	putBE32(payload, 11, 0x380000<<6) // word[2]: page ID = 56 (page 18)
	putBE32(payload, 35, 0x120000<<6) // word[8]: leap seconds = 18

	r := Decode(buildSiRFFrame(payload), NewState())
	require.NotNil(t, r.Leap)
	require.Equal(t, 18, r.Leap.Seconds)
}

func TestDecodeSubframeIgnoresOtherSubframes(t *testing.T) {
	payload := make([]byte, 43)
	payload[0] = 0x08
	putBE32(payload, 3, 0x8b0000<<6) // word[0]
	putBE32(payload, 7, 0x04<<6)     // word[1]: subframe ID bits = 1, not 4

	r := Decode(buildSiRFFrame(payload), NewState())
	require.Nil(t, r.Leap)
}

func TestDecodePPSTime(t *testing.T) {
	payload := make([]byte, 15)
	payload[0] = 0x34
	payload[1] = 12 // hour
	payload[2] = 30 // minute
	payload[3] = 15 // second
	payload[4] = 7  // day
	payload[5] = 8  // month
	putBE16(payload, 6, 2031)
	putBE16(payload, 8, 18) // leap seconds
	payload[14] = 0x07      // valid UTC status

	r := Decode(buildSiRFFrame(payload), NewState())
	require.True(t, r.Mask.Has(fix.TimeSet))
	require.NotNil(t, r.Leap)
	require.Equal(t, 18, r.Leap.Seconds)
	require.InDelta(t, gtime.CivilToUnix(2031, 8, 7, 12, 30, 15), r.Fix.Time, 1e-6)
}

func TestDecodePPSTimeInvalidStatusSkipped(t *testing.T) {
	payload := make([]byte, 15)
	payload[0] = 0x34
	payload[14] = 0x00 // status bits not all set: no valid UTC time yet

	r := Decode(buildSiRFFrame(payload), NewState())
	require.False(t, r.Mask.Has(fix.TimeSet))
	require.Nil(t, r.Leap)
}

func TestDecodeUnknownMessageIDIsOnlineStub(t *testing.T) {
	r := Decode(buildSiRFFrame([]byte{0xff, 0x01, 0x02}), NewState())
	require.Equal(t, fix.Online, r.Mask)
}
