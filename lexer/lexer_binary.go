package lexer

import "github.com/heliosgnss/gnssd/bitutil"

// trySiRF frames a SiRF binary message: 0xa0 0xa2, a two-byte big-endian
// payload length, the payload, a two-byte big-endian 15-bit summation
// checksum, then the 0xb0 0xb3 trailer. A payload length of 0 is
// a valid (empty) frame; a length that would overflow MaxPacketLength is
// rejected outright rather than waited on.
func (l *Lexer) trySiRF() (int, tryResult) {
	if len(l.buf) < 4 {
		return 0, needMore
	}
	length, err := bitutil.U16BE(l.buf, 2)
	if err != nil {
		return 0, needMore
	}
	if int(length) > MaxPacketLength-8 {
		return 0, noMatch
	}
	total := 8 + int(length)
	if len(l.buf) < total {
		return 0, needMore
	}
	payload := l.buf[4 : 4+int(length)]
	gotCksum, _ := bitutil.U16BE(l.buf, 4+int(length))
	wantCksum := bitutil.SiRFChecksum(payload)
	if gotCksum != wantCksum {
		return 0, noMatch
	}
	if l.buf[total-2] != 0xb0 || l.buf[total-1] != 0xb3 {
		return 0, noMatch
	}
	l.lastType = WireSiRF
	return total, matched
}

// destuffDLE scans a DLE-stuffed body (any literal 0x10 doubled as
// 0x10 0x10) until it finds the unstuffed terminator 0x10 0x03, the
// TSIP/EverMore framing convention. It returns the destuffed body, the
// number of raw bytes consumed (including the terminator), and whether
// the scan matched, needs more input, or hit a malformed escape.
func destuffDLE(buf []byte) ([]byte, int, tryResult) {
	out := make([]byte, 0, len(buf))
	i := 0
	for i < len(buf) {
		b := buf[i]
		if b != 0x10 {
			out = append(out, b)
			i++
			if len(out) > MaxPacketLength {
				return nil, 0, noMatch
			}
			continue
		}
		if i+1 >= len(buf) {
			return nil, 0, needMore
		}
		switch buf[i+1] {
		case 0x10:
			out = append(out, 0x10)
			i += 2
		case 0x03:
			return out, i + 2, matched
		default:
			return nil, 0, noMatch
		}
	}
	return nil, 0, needMore
}

// tryTSIP frames a Trimble TSIP packet: leading DLE, an ID byte, a
// DLE-stuffed data body, and the DLE ETX terminator. TSIP carries no
// checksum of its own.
func (l *Lexer) tryTSIP() (int, tryResult) {
	body, consumed, res := destuffDLE(l.buf[1:])
	if res != matched {
		return 0, res
	}
	if len(body) == 0 {
		return 0, noMatch
	}
	l.lastType = WireTSIP
	return 1 + consumed, matched
}

// tryEverMore frames an EverMore packet: 0x10 0x02 prefix, a DLE-stuffed
// body whose first byte is the total body length and whose last byte is
// a one-byte summation checksum over the bytes in between, then the DLE
// ETX terminator.
func (l *Lexer) tryEverMore() (int, tryResult) {
	body, consumed, res := destuffDLE(l.buf[2:])
	if res != matched {
		return 0, res
	}
	if len(body) < 2 {
		return 0, noMatch
	}
	payload := body[1 : len(body)-1]
	want := body[len(body)-1]
	got := bitutil.EverMoreChecksum(payload)
	if got != want {
		return 0, noMatch
	}
	l.lastType = WireEverMore
	return 2 + consumed, matched
}

func sumLE16(words []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < len(words); i += 2 {
		v, _ := bitutil.U16LE(words, i)
		sum += v
	}
	return sum
}

// tryZodiac frames a Rockwell/Zodiac binary message: 0xff 0x81 sync,
// a fixed 10-byte header (id, length, flags, header checksum) whose five
// little-endian words sum to zero modulo 0x10000, followed by length
// 16-bit payload words and a payload checksum word with the same
// sum-to-zero property.
func (l *Lexer) tryZodiac() (int, tryResult) {
	if len(l.buf) < 10 {
		return 0, needMore
	}
	if sumLE16(l.buf[:10]) != 0 {
		return 0, noMatch
	}
	length, err := bitutil.U16LE(l.buf, 4)
	if err != nil {
		return 0, needMore
	}
	payloadBytes := int(length) * 2
	total := 10 + payloadBytes + 2
	if total > MaxPacketLength {
		return 0, noMatch
	}
	if len(l.buf) < total {
		return 0, needMore
	}
	if sumLE16(l.buf[10:total]) != 0 {
		return 0, noMatch
	}
	l.lastType = WireZodiac
	return total, matched
}

// tryUBX frames a u-blox UBX message: 0xb5 0x62 sync, class, id, a
// little-endian length, the payload, and a two-byte Fletcher-8 checksum
// over class/id/length/payload.
func (l *Lexer) tryUBX() (int, tryResult) {
	if len(l.buf) < 6 {
		return 0, needMore
	}
	length, err := bitutil.U16LE(l.buf, 4)
	if err != nil {
		return 0, needMore
	}
	if int(length) > MaxPacketLength-8 {
		return 0, noMatch
	}
	total := 8 + int(length)
	if len(l.buf) < total {
		return 0, needMore
	}
	ckA, ckB := bitutil.Fletcher8(l.buf[2 : total-2])
	if l.buf[total-2] != ckA || l.buf[total-1] != ckB {
		return 0, noMatch
	}
	l.lastType = WireUBX
	return total, matched
}
