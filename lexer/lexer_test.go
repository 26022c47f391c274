package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S1 — Basic NMEA GGA.
func TestNextFrameNMEAGGA(t *testing.T) {
	l := New()
	sentence := "$GPGGA,123519,4807.038,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,*42\r\n"
	l.Write([]byte(sentence))

	frame, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireNMEA, frame.Type)
	require.Equal(t, sentence, string(frame.Payload))
	require.Equal(t, 0, frame.GarbageSkipped)

	_, status = l.NextFrame()
	require.Equal(t, StatusNeedMore, status)
}

// S2 — Garbage + RMC: the frame payload excludes the
// leading garbage, and GarbageSkipped reports how much was skipped.
func TestNextFrameGarbagePrefixThenRMC(t *testing.T) {
	l := New()
	sentence := "$GPRMC,225446,A,4916.45,N,12311.12,W,000.5,054.7,191194,020.3,E*68\r\n"
	l.Write([]byte("\x01\x02\x03" + sentence))

	frame, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireNMEA, frame.Type)
	require.Equal(t, sentence, string(frame.Payload))
	require.Equal(t, 3, frame.GarbageSkipped)
}

// S3 — Truncated SiRF: a short prefix needs more input
// and must not corrupt the lexer's state; once the rest arrives the
// frame is recognized whole.
func TestNextFrameTruncatedSiRFThenComplete(t *testing.T) {
	l := New()
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	cksum := sirfChecksumBE(payload)
	full := append([]byte{0xa0, 0xa2, 0x00, byte(len(payload))}, payload...)
	full = append(full, cksum[0], cksum[1], 0xb0, 0xb3)

	l.Write(full[:6])
	_, status := l.NextFrame()
	require.Equal(t, StatusNeedMore, status)
	require.Equal(t, 6, l.Buffered())

	l.Write(full[6:])
	frame, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireSiRF, frame.Type)
	require.Equal(t, full, frame.Payload)
}

// S4 — SiRF with one corrupted checksum byte, followed by a valid SiRF
// frame: the first frame is rejected, recovery is a
// single-byte shift (not a flush), and the second frame still lexes.
func TestNextFrameCorruptedSiRFRecoversByteShift(t *testing.T) {
	l := New()
	payload := []byte{0xaa, 0xbb}
	cksum := sirfChecksumBE(payload)
	good := append([]byte{0xa0, 0xa2, 0x00, byte(len(payload))}, payload...)
	good = append(good, cksum[0], cksum[1], 0xb0, 0xb3)

	corrupt := append([]byte{}, good...)
	corrupt[len(corrupt)-3] ^= 0xff // flip a checksum trailer byte

	l.Write(corrupt)
	l.Write(good)

	var frames []*Frame
	for {
		f, status := l.NextFrame()
		if status == StatusNeedMore {
			break
		}
		if status == StatusFrame {
			frames = append(frames, f)
		}
	}
	require.Len(t, frames, 1)
	require.Equal(t, WireSiRF, frames[0].Type)
	require.Equal(t, good, frames[0].Payload)
}

// Boundary: an NMEA sentence of exactly NMEA_MAX bytes is accepted, one
// byte longer is rejected.
func TestNMEAMaxBoundary(t *testing.T) {
	fit := buildOversizeNMEA(NMEAMax)
	l := New()
	l.Write([]byte(fit))
	_, status := l.NextFrame()
	require.Equal(t, StatusNeedMore, status, "sentence at exactly NMEA_MAX needs its terminator before framing")
	l.Write([]byte("\r\n"))
	frame, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireNMEA, frame.Type)

	over := buildOversizeNMEA(NMEAMax + 1)
	l2 := New()
	l2.Write([]byte(over + "\r\n"))
	_, status = l2.NextFrame()
	require.NotEqual(t, StatusFrame, status, "sentence exceeding NMEA_MAX must not be framed")
}

// Boundary: a zero-length SiRF payload is a valid frame.
func TestSiRFZeroLengthPayload(t *testing.T) {
	l := New()
	cksum := sirfChecksumBE(nil)
	full := []byte{0xa0, 0xa2, 0x00, 0x00, cksum[0], cksum[1], 0xb0, 0xb3}
	l.Write(full)
	frame, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireSiRF, frame.Type)
	require.Len(t, frame.Payload, 8)
}

// A pure-garbage run of MaxPacketLength bytes with no sync yields BAD
// and resets the bad-byte counter.
func TestPureGarbageYieldsBad(t *testing.T) {
	l := New()
	garbage := make([]byte, MaxPacketLength+10)
	for i := range garbage {
		garbage[i] = 0x55
	}
	l.Write(garbage)

	sawBad := false
	for i := 0; i < 5; i++ {
		_, status := l.NextFrame()
		if status == StatusBad {
			sawBad = true
			break
		}
		if status == StatusNeedMore {
			break
		}
	}
	require.True(t, sawBad)
	require.LessOrEqual(t, l.Buffered(), MaxPacketLength*4)
}

func TestUBXFrame(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	frame := []byte{0xb5, 0x62, 0x01, 0x02, byte(len(payload)), 0x00}
	frame = append(frame, payload...)
	a, b := fletcher8(frame[2:])
	frame = append(frame, a, b)

	l := New()
	l.Write(frame)
	f, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireUBX, f.Type)
}

func TestRTCM3Frame(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30, 0x40}
	frame := []byte{0xd3, 0x00, byte(len(payload))}
	frame = append(frame, payload...)
	crc := crc24q(frame)
	frame = append(frame, byte(crc>>16), byte(crc>>8), byte(crc))

	l := New()
	l.Write(frame)
	f, status := l.NextFrame()
	require.Equal(t, StatusFrame, status)
	require.Equal(t, WireRTCM3, f.Type)
}

// --- local helpers (kept test-only so the lexer package itself does not
// need to export checksum helpers it has no other reason to expose) ---

func sirfChecksumBE(payload []byte) [2]byte {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	sum &= 0x7fff
	return [2]byte{byte(sum >> 8), byte(sum)}
}

func fletcher8(data []byte) (byte, byte) {
	var a, b byte
	for _, c := range data {
		a += c
		b += a
	}
	return a, b
}

func crc24q(data []byte) uint32 {
	const poly = 0x1864CFB
	var table [256]uint32
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 16
		for k := 0; k < 8; k++ {
			if crc&0x800000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc & 0xffffff
	}
	var crc uint32
	for _, b := range data {
		crc = ((crc << 8) ^ table[byte(crc>>16)^b]) & 0xffffff
	}
	return crc
}

func buildOversizeNMEA(bodyLen int) string {
	s := make([]byte, bodyLen)
	s[0] = '$'
	for i := 1; i < bodyLen; i++ {
		s[i] = 'A'
	}
	return string(s)
}
