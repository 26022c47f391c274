package lexer

import "github.com/heliosgnss/gnssd/bitutil"

// tryRTCM2 frames an RTCM SC-104 version 2 message riding on the
// IS-GPS-200 30-bit-word transport: two header words (preamble/message
// type/station ID, then modified Z-count/sequence/word-length/health)
// followed by the number of data words the header's length field
// names. Framing is byte-at-a-time through the isgps.Assembler so the
// six-bit-reversed transport and parity recovery stay in one place.
func (l *Lexer) tryRTCM2() (int, tryResult) {
	l.isgps.Reset()

	var words []uint32
	target := -1

	for i := 0; i < len(l.buf); i++ {
		if i >= MaxPacketLength {
			return 0, noMatch
		}
		word, ok, err := l.isgps.PushByte(l.buf[i])
		if err != nil {
			return 0, noMatch
		}
		if !ok {
			// The preamble word must lock within the candidate's first
			// five octets; otherwise buf[0] does not start a message.
			if i >= 4 && !l.isgps.Locked() {
				return 0, noMatch
			}
			continue
		}

		words = append(words, word)
		if len(words) == 2 {
			data2 := (word >> 6) & 0xffffff
			length := int((data2 >> 3) & 0x1f)
			target = 2 + length
		}
		if target != -1 && len(words) >= target {
			l.lastType = WireRTCM2
			l.isgps.ClearWords()
			return i + 1, matched
		}
	}
	return 0, needMore
}

// tryRTCM3 frames an RTCM v3 message: 0xd3 preamble, six reserved bits
// plus a ten-bit payload length, the payload, and a three-byte CRC-24Q
// trailer computed over the preamble, length, and payload.
func (l *Lexer) tryRTCM3() (int, tryResult) {
	if len(l.buf) < 3 {
		return 0, needMore
	}
	length := (int(l.buf[1]&0x03) << 8) | int(l.buf[2])
	total := 3 + length + 3
	if total > MaxPacketLength {
		return 0, noMatch
	}
	if len(l.buf) < total {
		return 0, needMore
	}
	got := bitutil.CRC24Q(l.buf[:3+length])
	want := uint32(l.buf[total-3])<<16 | uint32(l.buf[total-2])<<8 | uint32(l.buf[total-1])
	if got != want {
		return 0, noMatch
	}
	l.lastType = WireRTCM3
	return total, matched
}
