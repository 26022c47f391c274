package isgps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushByteRejectsBadSyncBits(t *testing.T) {
	a := NewAssembler()
	// Top two bits must be 0b10; 0x00 and 0xff are both rejected.
	_, ok, err := a.PushByte(0x00)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = a.PushByte(0xff)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, a.Locked())
}

func TestResetClearsLockAndWords(t *testing.T) {
	a := NewAssembler()
	a.locked = true
	a.words = []uint32{1, 2, 3}
	a.Reset()
	assert.False(t, a.Locked())
	assert.Empty(t, a.Words())
}

func TestBitReverse6IsInvolution(t *testing.T) {
	for i := 0; i < 64; i++ {
		r := bitReverse6[i]
		require.Less(t, int(r), 64)
		assert.Equal(t, byte(i), bitReverse6[r])
	}
}

func TestClearWordsKeepsLock(t *testing.T) {
	a := NewAssembler()
	a.locked = true
	a.words = []uint32{7}
	a.ClearWords()
	assert.True(t, a.Locked())
	assert.Empty(t, a.Words())
}

func TestUnlockResetsEverything(t *testing.T) {
	a := NewAssembler()
	a.locked = true
	a.prevD29 = 1
	a.Unlock()
	assert.False(t, a.Locked())
	assert.Equal(t, uint32(0), a.prevD29)
}

// encodeWords takes the desired 24-bit data payload for each word (D1 in
// the MSB) and returns the matching 30-bit transmitted registers,
// chaining the D29/D30 parity state and the weird inversion across
// words the same way finishWord decodes them.
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

// TestPushByteLocksAndReassemblesWordBoundaries verifies the assembler
// only completes a word every 30 bits (five nibbles) once locked,
// rather than on every nibble — a message spanning several words must
// come back out as one word per five input octets, not one per octet.
func TestPushByteLocksAndReassemblesWordBoundaries(t *testing.T) {
	preambleWord := uint32(0x66)<<16 | 0x1234 // preamble + arbitrary payload
	payload := []uint32{preambleWord, 0x0a0b0c, 0x010203}
	octets := regsToOctets(encodeWords(payload))
	require.Len(t, octets, 15, "3 words * 5 octets each")

	a := NewAssembler()
	var gotWords []uint32
	for i, c := range octets {
		word, ok, err := a.PushByte(c)
		require.NoError(t, err)
		if ok {
			gotWords = append(gotWords, word)
		}
		// Locking consumes exactly the first word's 5 octets; every
		// subsequent non-aligned octet within a word must not yield one.
		if i < 4 {
			assert.False(t, ok, "no word should complete before the 5th octet of the first word")
		}
	}
	require.True(t, a.Locked())
	require.Len(t, gotWords, 3)
	for i, w := range gotWords {
		assert.Equal(t, payload[i], w>>6, "word %d data mismatch", i)
	}
}
