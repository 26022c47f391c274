package lexer

import "github.com/heliosgnss/gnssd/bitutil"

// tryNMEA frames an NMEA 0183 / AIVDM-style text sentence: '$' or '!'
// followed by the talker+sentence tag, a comma-separated body, an
// optional '*HH' XOR checksum, and a CR/LF terminator.
//
// A second '$'/'!' encountered before the terminator means the
// previously accumulated bytes were garbage and a fresh candidate has
// begun; that is handled implicitly by returning noMatch, which causes
// the caller to shift one byte and retry — eventually landing on the new
// lead character.
func (l *Lexer) tryNMEA() (int, tryResult) {
	for j := 1; j < len(l.buf); j++ {
		c := l.buf[j]
		if c == '\r' || c == '\n' {
			if j > NMEAMax {
				return 0, noMatch
			}
			return l.finishNMEA(j)
		}
		if (c == '$' || c == '!') && j > 0 {
			return 0, noMatch
		}
		if j >= NMEAMax {
			return 0, noMatch
		}
	}
	if len(l.buf) > NMEAMax+1 {
		return 0, noMatch
	}
	return 0, needMore
}

func (l *Lexer) finishNMEA(termAt int) (int, tryResult) {
	content := l.buf[:termAt]

	starAt := -1
	for i := len(content) - 1; i >= 1; i-- {
		if content[i] == '*' {
			starAt = i
			break
		}
	}
	if starAt != -1 && starAt+3 <= len(content) {
		body := content[1:starAt]
		want := content[starAt+1 : starAt+3]
		got := bitutil.NMEAChecksum(body)
		if !hexEqualsByte(want, got) {
			return 0, noMatch
		}
	}

	consumed := termAt + 1
	if termAt+1 < len(l.buf) && l.buf[termAt] == '\r' && l.buf[termAt+1] == '\n' {
		consumed = termAt + 2
	}

	if content[0] == '!' {
		l.lastType = WireAIS
	} else {
		l.lastType = WireNMEA
	}
	return consumed, matched
}

func hexEqualsByte(hex []byte, want byte) bool {
	if len(hex) != 2 {
		return false
	}
	hi, ok1 := hexVal(hex[0])
	lo, ok2 := hexVal(hex[1])
	if !ok1 || !ok2 {
		return false
	}
	return byte(hi<<4|lo) == want
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	default:
		return 0, false
	}
}

// tryGarminText frames a Garmin proprietary text record: '@' ... CR LF,
// with no checksum.
func (l *Lexer) tryGarminText() (int, tryResult) {
	for j := 1; j < len(l.buf)-1; j++ {
		if l.buf[j] == '\r' && l.buf[j+1] == '\n' {
			l.lastType = WireGarminText
			return j + 2, matched
		}
		if j >= MaxPacketLength {
			return 0, noMatch
		}
	}
	if len(l.buf) > MaxPacketLength {
		return 0, noMatch
	}
	return 0, needMore
}

// tryComment frames a '#'-led log-replay comment line, used by replay
// tooling; it carries no checksum and is terminated by any newline.
func (l *Lexer) tryComment() (int, tryResult) {
	for j := 1; j < len(l.buf); j++ {
		if l.buf[j] == '\n' {
			l.lastType = WireComment
			return j + 1, matched
		}
		if j >= MaxPacketLength {
			return 0, noMatch
		}
	}
	if len(l.buf) > MaxPacketLength {
		return 0, noMatch
	}
	return 0, needMore
}
