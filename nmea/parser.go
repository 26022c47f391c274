package nmea

import (
	"strings"

	"github.com/heliosgnss/gnssd/fix"
)

// Sentence is a framed NMEA/AIVDM body split into its addressable parts:
// the tag is characters 2..4 for standard sentences, or the full word
// after '$' for proprietary (P*) ones. Fields are split on ','; empty
// fields remain addressable and mean "not present".
type Sentence struct {
	Talker string // e.g. "GP", "GN", ""  for proprietary
	Tag    string // e.g. "GGA", "RMC", or the proprietary word, e.g. "PGRME"
	Fields []string
}

// Split extracts the talker/tag and comma-separated fields from a raw
// frame as the lexer handed it over: leading '$'/'!' and trailing
// '*HH\r\n' still present. The checksum has already been verified by the
// lexer; Split does not re-check it.
func Split(raw string) Sentence {
	body := raw
	if len(body) > 0 && (body[0] == '$' || body[0] == '!') {
		body = body[1:]
	}
	if star := strings.LastIndexByte(body, '*'); star != -1 {
		body = body[:star]
	}
	body = strings.TrimRight(body, "\r\n")

	parts := strings.Split(body, ",")
	head := parts[0]
	fields := parts[1:]

	if strings.HasPrefix(head, "P") {
		return Sentence{Tag: head, Fields: fields}
	}
	if len(head) >= 5 {
		return Sentence{Talker: head[:2], Tag: head[2:], Fields: fields}
	}
	return Sentence{Tag: head, Fields: fields}
}

// field returns fields[i] or "" if out of range, so decoders can address
// fields past the end of a short/truncated sentence without panicking.
func (s Sentence) field(i int) string {
	if i < 0 || i >= len(s.Fields) {
		return ""
	}
	return s.Fields[i]
}

// Decode dispatches a split sentence to its tag-specific decoder,
// returning the fields it updated plus a change-mask.
// Per-sentence decoders never error: malformed fields leave the
// corresponding value at its NaN/"not available" sentinel.
func Decode(s Sentence, st *State, sky *SkyView, dop *fix.DOP) (fix.Fix, fix.Mask) {
	switch s.Tag {
	case "RMC":
		return decodeRMC(s, st)
	case "GGA":
		return decodeGGA(s, st, dop)
	case "GLL":
		return decodeGLL(s, st)
	case "GNS":
		return decodeGNS(s, st)
	case "GSA":
		return decodeGSA(s, st, dop)
	case "GSV":
		return decodeGSV(s, st, sky)
	case "VTG":
		return decodeVTG(s)
	case "GST":
		return decodeGST(s)
	case "ZDA":
		return decodeZDA(s, st)
	case "GBS":
		return decodeGBS(s)
	default:
		// HDG/HDT (heading), DBT (marine depth), DTM (datum reference),
		// TXT (free-text receiver messages), and the proprietary
		// PSRFEPE/PASHR/PSTI/PMTK/PGRM families are accepted and counted
		// -- the last five already drive subtype probing via
		// NMEATriggers -- but carry nothing this module folds into a
		// fix: heading/depth/datum sit outside the position/velocity/
		// time model, TXT is diagnostic, and the proprietary sentences
		// duplicate data the corresponding binary driver already
		// reports more completely once autoconfiguration switches to it.
		return fix.New(), fix.Online
	}
}
