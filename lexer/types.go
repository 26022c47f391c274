// Package lexer implements the multi-protocol packet lexer: a
// byte-oriented state machine that simultaneously sniffs for NMEA/AIVDM
// text, SiRF, TSIP, EverMore, Zodiac, u-blox UBX, RTCM v2, RTCM v3,
// Garmin text and log-replay comments, and recovers from leading
// garbage, mid-packet truncation and checksum failure without losing
// sync.
package lexer

import "github.com/heliosgnss/gnssd/isgps"

// WireType tags the framing family a Frame was recognized as.
type WireType int

const (
	WireBad WireType = iota
	WireComment
	WireGarminText
	WireNMEA
	WireSiRF
	WireTSIP
	WireEverMore
	WireZodiac
	WireUBX
	WireRTCM2
	WireRTCM3
	WireAIS
)

func (w WireType) String() string {
	switch w {
	case WireComment:
		return "COMMENT"
	case WireGarminText:
		return "GARMIN_TXT"
	case WireNMEA:
		return "NMEA"
	case WireSiRF:
		return "SIRF"
	case WireTSIP:
		return "TSIP"
	case WireEverMore:
		return "EVERMORE"
	case WireZodiac:
		return "ZODIAC"
	case WireUBX:
		return "UBX"
	case WireRTCM2:
		return "RTCM2"
	case WireRTCM3:
		return "RTCM3"
	case WireAIS:
		return "AIS"
	default:
		return "BAD"
	}
}

// Frame is an immutable (wire_type, payload, counters) record produced by
// the lexer. Payload holds exactly the bytes of the recognized packet
// including its framing (sync prefix, length, checksum, trailer); it is
// disjoint from any garbage prefix the lexer skipped to find it. A Frame
// is consumed by exactly one driver parser call and is not retained by
// the lexer.
type Frame struct {
	Type    WireType
	Payload []byte
	// Counters: GarbageSkipped is how many bytes of garbage preceded
	// this frame; TotalConsumed is how many bytes this frame took from
	// the input buffer (its own length). No running total across frames
	// is kept.
	GarbageSkipped int
	TotalConsumed  int64
}

// Status reports what NextFrame accomplished this call.
type Status int

const (
	// StatusFrame means Frame is populated with a freshly recognized packet.
	StatusFrame Status = iota
	// StatusNeedMore means the input buffered so far might be a valid
	// packet prefix; the caller must Write more bytes before calling
	// NextFrame again.
	StatusNeedMore
	// StatusBad means MAX_PACKET_LENGTH bytes were consumed from GROUND
	// without any sync; the dispatcher may use this to step the baud
	// ladder.
	StatusBad
)

// Tunable limits governing buffer sizing and recovery thresholds.
const (
	// MaxPacketLength bounds the lexer's internal buffer and the
	// longest packet it will ever frame.
	MaxPacketLength = 2048
	// NMEAMax is the longest accepted NMEA/AIVDM sentence body,
	// including the leading '$'/'!' but excluding CR/LF.
	NMEAMax = 102
)

// Lexer is the single-producer, single-threaded packet state machine.
// It is not safe for concurrent use; concurrency is the session's
// responsibility.
type Lexer struct {
	buf      []byte
	isgps    *isgps.Assembler
	badRun   int64 // bytes consumed in GROUND since the last sync
	lastType WireType
}

// New returns a Lexer ready to accept bytes via Write.
func New() *Lexer {
	return &Lexer{
		isgps: isgps.NewAssembler(),
	}
}

// Write appends newly read bytes to the lexer's pending input. Callers
// feed it whatever a read(2)-like call returned; NextFrame then drains
// as many complete frames as are present.
func (l *Lexer) Write(p []byte) {
	l.buf = append(l.buf, p...)
	if len(l.buf) > MaxPacketLength*4 {
		// A pathological producer that never yields a sync point must
		// not grow the buffer without bound; MAX_PACKET_LENGTH bytes in
		// GROUND is already reported as StatusBad by NextFrame, so this
		// is a last-ditch guard against a caller that ignores that
		// signal and keeps writing.
		excess := len(l.buf) - MaxPacketLength*4
		l.buf = l.buf[excess:]
	}
}

// Buffered returns the number of bytes currently queued, for tests and
// diagnostics.
func (l *Lexer) Buffered() int {
	return len(l.buf)
}

func (l *Lexer) consume(n int) {
	l.buf = l.buf[n:]
	l.badRun = 0
}

func (l *Lexer) shiftOne() {
	if len(l.buf) == 0 {
		return
	}
	l.buf = l.buf[1:]
	l.badRun++
}
