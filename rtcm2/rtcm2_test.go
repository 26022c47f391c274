package rtcm2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// bitReverse6 mirrors isgps's table; duplicated here (rather than
// exported from isgps) since it is purely an encoding-side concern of
// building test fixtures, not something Decode needs from outside the
// isgps package.
var bitReverse6 = func() [64]byte {
	var t [64]byte
	for i := 0; i < 64; i++ {
		var r byte
		for b := 0; b < 6; b++ {
			if i&(1<<uint(b)) != 0 {
				r |= 1 << uint(5-b)
			}
		}
		t[i] = r
	}
	return t
}()

// encodeWords takes the desired 24-bit data payload for each IS-GPS-200
// word (D1 in the MSB) and returns the matching 30-bit transmitted
// registers, chaining the D29/D30 parity state and the "weird
// inversion" across words exactly as isgps.Assembler decodes them.
func encodeWords(payload []uint32) []uint32 {
	var prevD29, prevD30 uint32
	regs := make([]uint32, 0, len(payload))
	for _, p := range payload {
		d := make([]uint32, 25)
		for i := 1; i <= 24; i++ {
			d[i] = (p >> uint(24-i)) & 1
		}
		xorAll := func(idx ...int) uint32 {
			var v uint32
			for _, i := range idx {
				v ^= d[i]
			}
			return v
		}
		D25 := prevD29 ^ xorAll(1, 2, 3, 5, 6, 10, 11, 12, 13, 14, 17, 18, 20, 23)
		D26 := prevD30 ^ xorAll(2, 3, 4, 6, 7, 11, 12, 13, 14, 15, 18, 19, 21, 24)
		D27 := prevD29 ^ xorAll(1, 3, 4, 5, 7, 8, 12, 13, 14, 15, 16, 19, 20, 22)
		D28 := prevD30 ^ xorAll(2, 4, 5, 6, 8, 9, 13, 14, 15, 16, 17, 20, 21, 23)
		D29 := prevD30 ^ xorAll(1, 3, 5, 6, 7, 9, 10, 14, 15, 16, 17, 18, 21, 22, 24)
		D30 := prevD29 ^ xorAll(3, 5, 6, 8, 9, 10, 11, 13, 15, 19, 22, 23, 24)
		parity := D25<<5 | D26<<4 | D27<<3 | D28<<2 | D29<<1 | D30

		rawData := p
		if prevD30 == 1 {
			rawData ^= 0xffffff
		}
		regs = append(regs, (rawData<<6)|parity)
		prevD29, prevD30 = D29, D30
	}
	return regs
}

// regsToOctets converts each 30-bit register into the five six-bit-
// reversed octets the lexer's isgps.Assembler expects on the wire.
func regsToOctets(regs []uint32) []byte {
	out := make([]byte, 0, len(regs)*5)
	for _, reg := range regs {
		for _, shift := range [5]uint{24, 18, 12, 6, 0} {
			nibble := byte(reg>>shift) & 0x3f
			out = append(out, 0x80|bitReverse6[nibble])
		}
	}
	return out
}

// buildRTCM2Frame assembles a ready-to-Decode raw frame from a message
// type, station ID, and data-word payloads (each a 24-bit value holding
// D1 in its MSB), computing the header's Z-count/seq/health as fixed
// test values and the frame length from len(dataWords).
func buildRTCM2Frame(msgType, stationID int, dataWords []uint32) []byte {
	w1 := uint32(0x66)<<16 | uint32(msgType&0x3f)<<10 | uint32(stationID&0x3ff)
	w2 := uint32(100)<<11 | uint32(2)<<8 | uint32(len(dataWords)&0x1f)<<3
	payload := append([]uint32{w1, w2}, dataWords...)
	return regsToOctets(encodeWords(payload))
}

func TestDecodeHeaderFields(t *testing.T) {
	frame := buildRTCM2Frame(16, 42, []uint32{
		uint32('h')<<16 | uint32('i')<<8,
	})
	r, ok := Decode(frame)
	require.True(t, ok)
	require.Equal(t, 16, r.Header.Type)
	require.Equal(t, 42, r.Header.StationID)
	require.InDelta(t, 60.0, r.Header.ZCount, 1e-9)
	require.Equal(t, "hi", r.Text)
}

func TestDecodeTextStopsAtNUL(t *testing.T) {
	frame := buildRTCM2Frame(16, 1, []uint32{
		uint32('o')<<16 | uint32('k')<<8 | 0,
		uint32('X')<<16 | uint32('X')<<8 | uint32('X'),
	})
	r, ok := Decode(frame)
	require.True(t, ok)
	require.Equal(t, "ok", r.Text)
}

func TestDecodeReferenceStation(t *testing.T) {
	// X=637813700 (6378137.00m / 0.01), Y=0, Z=100 (1.00m / 0.01)
	x := uint32(637813700)
	y := uint32(0)
	z := uint32(100)

	// Pack the 96-bit X|Y|Z stream into four 24-bit words.
	bits := make([]byte, 12)
	put32 := func(off int, v uint32) {
		bits[off] = byte(v >> 24)
		bits[off+1] = byte(v >> 16)
		bits[off+2] = byte(v >> 8)
		bits[off+3] = byte(v)
	}
	put32(0, x)
	put32(4, y)
	put32(8, z)

	words := make([]uint32, 4)
	for i := 0; i < 4; i++ {
		words[i] = uint32(bits[i*3])<<16 | uint32(bits[i*3+1])<<8 | uint32(bits[i*3+2])
	}
	frame := buildRTCM2Frame(3, 7, words)
	r, ok := Decode(frame)
	require.True(t, ok)
	require.NotNil(t, r.Reference)
	require.InDelta(t, 6378137.0, r.Reference.X, 1e-6)
	require.InDelta(t, 0.0, r.Reference.Y, 1e-6)
	require.InDelta(t, 1.0, r.Reference.Z, 1e-6)
}

func TestDecodeHealthEntries(t *testing.T) {
	// sat ident=5, iodl=1, health=3, cn0=10, healthEn=1, newData=0, lossWarn=1, tou=20
	var w uint32
	w |= uint32(5) << 19  // ident, bits[0:5)
	w |= uint32(1) << 18  // issue-of-data-link, bit[5]
	w |= uint32(3) << 15  // data health, bits[6:9)
	w |= uint32(10) << 10 // cn0, bits[9:14)
	w |= uint32(1) << 9   // health enable, bit[14]
	w |= uint32(0) << 8   // new nav data, bit[15]
	w |= uint32(1) << 7   // loss-of-lock warning, bit[16]
	w |= uint32(20) << 0  // time-until-unhealthy (minutes), bits[17:24)

	frame := buildRTCM2Frame(5, 9, []uint32{w & 0xffffff})
	r, ok := Decode(frame)
	require.True(t, ok)
	require.Len(t, r.Health, 1)
	require.Equal(t, 5, r.Health[0].Ident)
	require.True(t, r.Health[0].IssueOfDataLink)
	require.Equal(t, 3, r.Health[0].DataHealth)
}

func TestDecodeUnknownTypeFlagged(t *testing.T) {
	frame := buildRTCM2Frame(31, 1, []uint32{0x010203})
	r, ok := Decode(frame)
	require.True(t, ok)
	require.True(t, r.Unknown)
}

func TestDecodeTooShortFrameFails(t *testing.T) {
	_, ok := Decode([]byte{0x00, 0x01})
	require.False(t, ok)
}
