// Package ais dispatches AIVDM/AIVDO marine traffic messages:
// NMEA-armored sentences carrying a six-bit-sextet payload that unpacks
// to one of the ITU-R M.1371 message types. The lexer yields the
// whole armored sentence unchanged (it only validates the NMEA `*HH`
// checksum); this package splits the sentence's comma fields, reassembles
// any multi-fragment payload, sextet-unpacks it, and decodes a
// representative subset of message types against the unpacked bits.
package ais

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/heliosgnss/gnssd/bitutil"
)

// Sentence is one parsed AIVDM/AIVDO NMEA sentence, before fragment
// reassembly.
type Sentence struct {
	Talker    string // e.g. "AI"
	Own       bool   // AIVDO (own-ship) vs AIVDM (received)
	NumFrags  int
	FragNum   int
	SeqID     int // -1 if the field was empty
	Channel   byte
	Payload   string
	FillBits  int
}

// ParseSentence splits a raw "!AIVDM,..." or "!AIVDO,..." line (with or
// without the trailing '*HH' checksum and CR/LF, both already validated
// by the lexer) into its comma fields.
func ParseSentence(line string) (Sentence, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 1 || (line[0] != '!' && line[0] != '$') {
		return Sentence{}, fmt.Errorf("ais: not a sentence: %q", line)
	}
	if star := strings.IndexByte(line, '*'); star != -1 {
		line = line[:star]
	}
	fields := strings.Split(line[1:], ",")
	if len(fields) < 6 || len(fields[0]) != 5 {
		return Sentence{}, fmt.Errorf("ais: malformed sentence %q", line)
	}
	tag := fields[0]
	if tag[2:] != "VDM" && tag[2:] != "VDO" {
		return Sentence{}, fmt.Errorf("ais: not AIVDM/AIVDO: %q", tag)
	}

	numFrags, _ := strconv.Atoi(fields[1])
	fragNum, _ := strconv.Atoi(fields[2])
	seqID := -1
	if fields[3] != "" {
		seqID, _ = strconv.Atoi(fields[3])
	}
	var channel byte
	if len(fields[4]) > 0 {
		channel = fields[4][0]
	}
	fillBits := 0
	if len(fields) >= 7 && fields[6] != "" {
		fillBits, _ = strconv.Atoi(fields[6])
	}

	return Sentence{
		Talker:   tag[:2],
		Own:      tag[2:] == "VDO",
		NumFrags: numFrags,
		FragNum:  fragNum,
		SeqID:    seqID,
		Channel:  channel,
		Payload:  fields[5],
		FillBits: fillBits,
	}, nil
}

// Assembler reassembles multi-fragment AIVDM messages (types 5, 24, and
// any other payload exceeding one sentence's ~60-character practical
// limit), keyed by channel and sequence ID the way multiple in-flight
// multi-part messages on the same channel are kept apart.
type Assembler struct {
	pending map[string]*partial
}

type partial struct {
	total    int
	got      int
	payload  strings.Builder
	fillBits int
}

// NewAssembler returns an empty fragment reassembler.
func NewAssembler() *Assembler {
	return &Assembler{pending: make(map[string]*partial)}
}

// Feed adds one sentence's fragment and returns the complete,
// sextet-unpacked bitstream once every fragment of its group has
// arrived; single-fragment sentences complete immediately.
func (a *Assembler) Feed(s Sentence) ([]byte, int, bool, error) {
	if s.NumFrags <= 1 {
		bits, n, err := bitutil.UnpackSextets(s.Payload)
		return bits, n, err == nil, err
	}

	key := fmt.Sprintf("%s:%c:%d", s.Talker, s.Channel, s.SeqID)
	p, ok := a.pending[key]
	if !ok {
		p = &partial{total: s.NumFrags}
		a.pending[key] = p
	}
	if s.FragNum != p.got+1 {
		delete(a.pending, key)
		return nil, 0, false, fmt.Errorf("ais: out-of-order fragment %d (expected %d)", s.FragNum, p.got+1)
	}
	p.payload.WriteString(s.Payload)
	p.got++
	p.fillBits = s.FillBits
	if p.got < p.total {
		return nil, 0, false, nil
	}
	delete(a.pending, key)
	bits, n, err := bitutil.UnpackSextets(p.payload.String())
	return bits, n, err == nil, err
}

// MessageType returns a message's six-bit type field (DF 1..27),
// common to every AIS message shape.
func MessageType(bits []byte) int {
	v, err := bitutil.GetBitsU(bits, 0, 6)
	if err != nil {
		return 0
	}
	return int(v)
}

// PositionReport is the decoded content shared by types 1, 2, and 3
// (Class A position reports) and, with a narrower field set, type 18
// (Class B).
type PositionReport struct {
	MessageType int
	MMSI        int
	NavStatus   int // only meaningful for types 1-3
	ROT         int // rate of turn, raw units; types 1-3 only
	SOG         float64
	PosAccurate bool
	Longitude   float64
	Latitude    float64
	COG         float64
	TrueHeading int // 511 = not available
	Timestamp   int // UTC second, 60 = not available
}

// DecodeClassAPositionReport unpacks message types 1, 2, and 3.
func DecodeClassAPositionReport(bits []byte) PositionReport {
	return PositionReport{
		MessageType: MessageType(bits),
		MMSI:        int(gu(bits, 8, 30)),
		NavStatus:   int(gu(bits, 38, 4)),
		ROT:         int(gi(bits, 42, 8)),
		SOG:         float64(gu(bits, 50, 10)) * 0.1,
		PosAccurate: gu(bits, 60, 1) != 0,
		Longitude:   float64(gi(bits, 61, 28)) / 600000.0,
		Latitude:    float64(gi(bits, 89, 27)) / 600000.0,
		COG:         float64(gu(bits, 116, 12)) * 0.1,
		TrueHeading: int(gu(bits, 128, 9)),
		Timestamp:   int(gu(bits, 137, 6)),
	}
}

// DecodeClassBPositionReport unpacks message type 18; it carries no
// navigation-status or rate-of-turn fields.
func DecodeClassBPositionReport(bits []byte) PositionReport {
	return PositionReport{
		MessageType: MessageType(bits),
		MMSI:        int(gu(bits, 8, 30)),
		SOG:         float64(gu(bits, 46, 10)) * 0.1,
		PosAccurate: gu(bits, 56, 1) != 0,
		Longitude:   float64(gi(bits, 57, 28)) / 600000.0,
		Latitude:    float64(gi(bits, 85, 27)) / 600000.0,
		COG:         float64(gu(bits, 112, 12)) * 0.1,
		TrueHeading: int(gu(bits, 124, 9)),
		Timestamp:   int(gu(bits, 133, 6)),
	}
}

// BaseStationReport is message type 4 (and, with a differing MMSI
// interpretation the caller supplies, type 11).
type BaseStationReport struct {
	MMSI      int
	Year, Month, Day, Hour, Minute, Second int
	PosAccurate bool
	Longitude, Latitude float64
}

// DecodeBaseStationReport unpacks message type 4.
func DecodeBaseStationReport(bits []byte) BaseStationReport {
	return BaseStationReport{
		MMSI:        int(gu(bits, 8, 30)),
		Year:        int(gu(bits, 38, 14)),
		Month:       int(gu(bits, 52, 4)),
		Day:         int(gu(bits, 56, 5)),
		Hour:        int(gu(bits, 61, 5)),
		Minute:      int(gu(bits, 66, 6)),
		Second:      int(gu(bits, 72, 6)),
		PosAccurate: gu(bits, 78, 1) != 0,
		Longitude:   float64(gi(bits, 79, 28)) / 600000.0,
		Latitude:    float64(gi(bits, 107, 27)) / 600000.0,
	}
}

// StaticVoyageData is message type 5: a vessel's static/voyage-related
// data (name, callsign, type, dimensions, destination, ETA).
type StaticVoyageData struct {
	MMSI        int
	IMO         int
	Callsign    string
	ShipName    string
	ShipType    int
	Destination string
	DraughtDm   int // decimeters
}

// DecodeStaticVoyageData unpacks message type 5.
func DecodeStaticVoyageData(bits []byte) StaticVoyageData {
	return StaticVoyageData{
		MMSI:        int(gu(bits, 8, 30)),
		IMO:         int(gu(bits, 40, 30)),
		Callsign:    decodeSixBitASCII(bits, 70, 7),
		ShipName:    decodeSixBitASCII(bits, 112, 20),
		ShipType:    int(gu(bits, 232, 8)),
		DraughtDm:   int(gu(bits, 294, 8)),
		Destination: decodeSixBitASCII(bits, 302, 20),
	}
}

// StaticDataReport is message type 24 (parts A and B); callers dispatch
// on PartNumber to know which fields are meaningful.
type StaticDataReport struct {
	MMSI        int
	PartNumber  int
	ShipName    string // part A only
	ShipType    int    // part B only
	Callsign    string // part B only
}

// DecodeStaticDataReport unpacks message type 24.
func DecodeStaticDataReport(bits []byte) StaticDataReport {
	r := StaticDataReport{
		MMSI:       int(gu(bits, 8, 30)),
		PartNumber: int(gu(bits, 38, 2)),
	}
	if r.PartNumber == 0 {
		r.ShipName = decodeSixBitASCII(bits, 40, 20)
	} else {
		r.ShipType = int(gu(bits, 40, 8))
		r.Callsign = decodeSixBitASCII(bits, 90, 7)
	}
	return r
}

// decodeSixBitASCII decodes text in the AIS character table (ITU-R
// M.1371 Annex 8, Table 47): six-bit codes 0-31 map to '@' + code, codes 32-63 map directly to
// the ASCII range 32-63.
func decodeSixBitASCII(bits []byte, start, numChars int) string {
	out := make([]byte, 0, numChars)
	for i := 0; i < numChars; i++ {
		v, err := bitutil.GetBitsU(bits, start+i*6, 6)
		if err != nil {
			break
		}
		var c byte
		if v < 32 {
			c = byte(v) + '@'
		} else {
			c = byte(v)
		}
		out = append(out, c)
	}
	return strings.TrimRight(string(out), "@ ")
}

func gu(buf []byte, start, width int) uint64 {
	v, err := bitutil.GetBitsU(buf, start, width)
	if err != nil {
		return 0
	}
	return v
}

func gi(buf []byte, start, width int) int64 {
	v, err := bitutil.GetBitsI(buf, start, width)
	if err != nil {
		return 0
	}
	return v
}
