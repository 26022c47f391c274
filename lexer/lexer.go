package lexer

// tryResult is the outcome of attempting to frame one candidate packet
// starting at buf[0].
type tryResult int

const (
	noMatch tryResult = iota
	needMore
	matched
)

// NextFrame drives the state machine forward over whatever bytes are
// currently buffered. It returns at most one framed packet per call; a
// StatusNeedMore result means the caller must Write more input before
// calling again.
//
// Recovery policy: a candidate that fails its checksum/length
// check causes a single-byte shift of the buffer, not a flush, so a true
// frame starting inside a misdetected one is still found. After
// MaxPacketLength bytes have been consumed without any sync, NextFrame
// yields a WireBad frame and resets its bad-byte counter so the
// dispatcher can consider stepping the baud rate.
func (l *Lexer) NextFrame() (*Frame, Status) {
	for {
		if len(l.buf) == 0 {
			return nil, StatusNeedMore
		}

		n, res := l.tryCandidate()
		switch res {
		case matched:
			payload := make([]byte, n)
			copy(payload, l.buf[:n])
			garbage := int(l.badRun)
			l.consume(n)
			return &Frame{
				Type:           l.lastType,
				Payload:        payload,
				GarbageSkipped: garbage,
				TotalConsumed:  int64(n),
			}, StatusFrame
		case needMore:
			if l.badRun >= MaxPacketLength {
				l.badRun = 0
				return &Frame{Type: WireBad}, StatusBad
			}
			return nil, StatusNeedMore
		case noMatch:
			l.shiftOne()
			if l.badRun >= MaxPacketLength {
				l.badRun = 0
				return &Frame{Type: WireBad}, StatusBad
			}
			// keep scanning from the new buf[0]
		}
	}
}

// tryCandidate dispatches on the current lead byte(s) to the matching
// per-protocol framer. It returns the number of bytes the match consumed
// and a tryResult; lastType records which WireType matched so NextFrame
// can tag the emitted Frame.
func (l *Lexer) tryCandidate() (int, tryResult) {
	b0 := l.buf[0]

	switch {
	case b0 == '$' || b0 == '!':
		return l.tryNMEA()
	case b0 == '@':
		return l.tryGarminText()
	case b0 == '#':
		return l.tryComment()
	case b0 == 0xa0:
		if len(l.buf) < 2 {
			return 0, needMore
		}
		if l.buf[1] == 0xa2 {
			return l.trySiRF()
		}
	case b0 == 0x10:
		if len(l.buf) < 2 {
			return 0, needMore
		}
		if l.buf[1] == 0x02 {
			return l.tryEverMore()
		}
		return l.tryTSIP()
	case b0 == 0xff:
		if len(l.buf) < 2 {
			return 0, needMore
		}
		if l.buf[1] == 0x81 {
			return l.tryZodiac()
		}
	case b0 == 0xb5:
		if len(l.buf) < 2 {
			return 0, needMore
		}
		if l.buf[1] == 0x62 {
			return l.tryUBX()
		}
	case b0 == 0xd3:
		return l.tryRTCM3()
	case b0>>6 == 0b10:
		return l.tryRTCM2()
	}

	return 0, noMatch
}
