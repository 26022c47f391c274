// Package rtcm3 bitfield-unpacks RTCM v3 messages once the
// lexer has framed the message and verified its CRC-24Q trailer. Decode
// takes the raw frame exactly as the lexer matched it (0xd3 preamble,
// length, payload, CRC) and only re-derives the payload slice from it;
// unlike rtcm2 there is no transport layer left to replay, since RTCM v3
// rides on plain framed bytes rather than IS-GPS-200 words.
package rtcm3

import "github.com/heliosgnss/gnssd/bitutil"

// Observation-field scale factors, shared with the legacy RTCM v2 carrier
// phase/pseudorange convention: pseudoranges are coded in units of 2cm,
// carrier phase in units of 0.5mm wavelengths of the pseudorange unit.
const (
	prUnitGPS  = 299792.458  // one GPS L1 pseudorange ambiguity unit, meters
	cLight     = 299792458.0 // speed of light, m/s
	freqL1     = 1.57542e9
	freqL2     = 1.22760e9
	freqG1     = 1.602e9
	freqG2     = 1.246e9
	arpScale   = 0.0001 // ECEF antenna reference point unit, meters
	mjdEpochJD = 2400000.5
)

// Header is the common observation-message header for GPS (1001-1004)
// and GLONASS (1009-1012) types.
type Header struct {
	Type        int
	StationID   int
	Epoch       float64 // TOW (GPS, ms->s) or time-of-day (GLONASS, ms->s)
	Sync        bool
	NumSats     int
	SmoothingOK bool
}

// Observation is one satellite's L1/L2 pseudorange, carrier phase, lock
// time, and CNR for a single observation message.
type Observation struct {
	SatID      int
	L1Code     int
	L1Pseudorange float64
	L1Phase    float64 // cycles
	L1LockTime int
	L1CNR      float64 // dB-Hz, 0 if not extended
	HasL2      bool
	L2Code     int
	L2Pseudorange float64
	L2Phase    float64
	L2LockTime int
	L2CNR      float64
}

// StationARP is message type 1005/1006's antenna reference point.
type StationARP struct {
	StationID      int
	ITRFYear       int
	GPSIndicator   bool
	GLONASSIndicator bool
	GalileoIndicator bool
	ReferenceStationIndicator bool
	X, Y, Z        float64
	OscillatorSingle bool
	AntennaHeight  float64 // only present in 1006; zero for 1005
}

// Text is message type 1029's UTF-8 status/description string.
type Text struct {
	StationID int
	MJD       int
	SecondOfDay float64
	Message   string
}

// Result is everything one RTCM v3 message can produce. Exactly one of
// the non-Header fields is populated, matching the decoded type.
type Result struct {
	Type         int
	Observations []Observation
	ObsHeader    Header
	Station      *StationARP
	Text         *Text
	Unknown      bool
}

// Decode unpacks one RTCM v3 frame's payload (the bytes between the
// preamble+length and the CRC trailer, which the lexer has already
// verified) according to its message number (DF002).
func Decode(frame []byte) (Result, bool) {
	if len(frame) < 6 {
		return Result{}, false
	}
	length := (int(frame[1]&0x03) << 8) | int(frame[2])
	if len(frame) < 3+length+3 {
		return Result{}, false
	}
	payload := frame[3 : 3+length]

	msgType := int(gu(payload, 0, 12))
	r := Result{Type: msgType}

	switch {
	case msgType == 1005 || msgType == 1006:
		r.Station = decodeStationARP(payload, msgType == 1006)
	case msgType == 1029:
		r.Text = decodeText(payload)
	case msgType >= 1001 && msgType <= 1004:
		r.ObsHeader, r.Observations = decodeGPSObservations(payload, msgType)
	case msgType >= 1009 && msgType <= 1012:
		r.ObsHeader, r.Observations = decodeGLONASSObservations(payload, msgType)
	default:
		r.Unknown = true
	}
	return r, true
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

// decodeGPSObsHeader reads the 61-bit header common to types 1001-1004.
func decodeGPSObsHeader(payload []byte) Header {
	return Header{
		Type:        int(gu(payload, 0, 12)),
		StationID:   int(gu(payload, 12, 12)),
		Epoch:       float64(gu(payload, 24, 30)) * 0.001,
		Sync:        gu(payload, 54, 1) != 0,
		NumSats:     int(gu(payload, 55, 5)),
		SmoothingOK: gu(payload, 60, 1) == 0,
	}
}

// decodeGLONASSObsHeader reads the 58-bit header common to types
// 1009-1012; the 27-bit epoch field is a time-of-day, not a week TOW.
func decodeGLONASSObsHeader(payload []byte) Header {
	return Header{
		Type:        int(gu(payload, 0, 12)),
		StationID:   int(gu(payload, 12, 12)),
		Epoch:       float64(gu(payload, 24, 27)) * 0.001,
		Sync:        gu(payload, 51, 1) != 0,
		NumSats:     int(gu(payload, 52, 5)),
		SmoothingOK: gu(payload, 57, 1) == 0,
	}
}

// decodeGPSObservations implements types 1001 (L1-only), 1002 (extended
// L1), 1003 (L1&L2) and 1004 (extended L1&L2), each widening the
// previous type's per-satellite record rather than re-deriving it.
func decodeGPSObservations(payload []byte, msgType int) (Header, []Observation) {
	hdr := decodeGPSObsHeader(payload)
	extended := msgType == 1002 || msgType == 1004
	dualFreq := msgType == 1003 || msgType == 1004

	bit := 61
	out := make([]Observation, 0, hdr.NumSats)
	for i := 0; i < hdr.NumSats; i++ {
		obs := Observation{SatID: int(gu(payload, bit, 6))}
		bit += 6
		obs.L1Code = int(gu(payload, bit, 1))
		bit++
		pr1 := gu(payload, bit, 24)
		bit += 24
		ppr1 := gi(payload, bit, 20)
		bit += 20
		obs.L1LockTime = int(gu(payload, bit, 7))
		bit += 7

		amb := uint64(0)
		if extended {
			amb = gu(payload, bit, 8)
			bit += 8
		}
		obs.L1Pseudorange = float64(pr1)*0.02 + float64(amb)*prUnitGPS
		if ppr1 != -524288 {
			obs.L1Phase = (obs.L1Pseudorange + float64(ppr1)*0.0005) / cLight * freqL1
		}
		if extended {
			cnr1 := gu(payload, bit, 8)
			bit += 8
			obs.L1CNR = float64(cnr1) * 0.25
		}

		if dualFreq {
			obs.HasL2 = true
			obs.L2Code = int(gu(payload, bit, 2))
			bit += 2
			pr21 := gi(payload, bit, 14)
			bit += 14
			ppr2 := gi(payload, bit, 20)
			bit += 20
			obs.L2LockTime = int(gu(payload, bit, 7))
			bit += 7
			if pr21 != -8192 {
				obs.L2Pseudorange = obs.L1Pseudorange + float64(pr21)*0.02
			}
			if ppr2 != -524288 {
				obs.L2Phase = (obs.L1Pseudorange + float64(ppr2)*0.0005) / cLight * freqL2
			}
			if extended {
				cnr2 := gu(payload, bit, 8)
				bit += 8
				obs.L2CNR = float64(cnr2) * 0.25
			}
		}
		out = append(out, obs)
	}
	return hdr, out
}

// decodeGLONASSObservations mirrors decodeGPSObservations for types
// 1009-1012: same per-satellite layout, but the GLONASS satellite
// identifier carries a frequency-channel field GPS doesn't, and the
// ambiguity unit is one GLONASS light-millisecond rather than the GPS
// L1 C/A code-repeat unit.
func decodeGLONASSObservations(payload []byte, msgType int) (Header, []Observation) {
	hdr := decodeGLONASSObsHeader(payload)
	extended := msgType == 1010 || msgType == 1012
	dualFreq := msgType == 1011 || msgType == 1012
	const gloUnit = 599584.916 // one GLONASS pseudorange ambiguity unit, meters

	bit := 58
	out := make([]Observation, 0, hdr.NumSats)
	for i := 0; i < hdr.NumSats; i++ {
		obs := Observation{SatID: int(gu(payload, bit, 6))}
		bit += 6
		obs.L1Code = int(gu(payload, bit, 1))
		bit++
		freqChan := int(gu(payload, bit, 5)) - 7 // centered on channel 0
		bit += 5
		pr1 := gu(payload, bit, 25)
		bit += 25
		ppr1 := gi(payload, bit, 20)
		bit += 20
		obs.L1LockTime = int(gu(payload, bit, 7))
		bit += 7

		amb := uint64(0)
		if extended {
			amb = gu(payload, bit, 7)
			bit += 7
		}
		freqL1Glo := freqG1 + float64(freqChan)*0.5625e6
		freqL2Glo := freqG2 + float64(freqChan)*0.4375e6
		obs.L1Pseudorange = float64(pr1)*0.02 + float64(amb)*gloUnit
		if ppr1 != -524288 {
			obs.L1Phase = (obs.L1Pseudorange + float64(ppr1)*0.0005) / cLight * freqL1Glo
		}
		if extended {
			cnr1 := gu(payload, bit, 8)
			bit += 8
			obs.L1CNR = float64(cnr1) * 0.25
		}

		if dualFreq {
			obs.HasL2 = true
			obs.L2Code = int(gu(payload, bit, 2))
			bit += 2
			pr21 := gi(payload, bit, 14)
			bit += 14
			ppr2 := gi(payload, bit, 20)
			bit += 20
			obs.L2LockTime = int(gu(payload, bit, 7))
			bit += 7
			if pr21 != -8192 {
				obs.L2Pseudorange = obs.L1Pseudorange + float64(pr21)*0.02
			}
			if ppr2 != -524288 {
				obs.L2Phase = (obs.L1Pseudorange + float64(ppr2)*0.0005) / cLight * freqL2Glo
			}
			if extended {
				cnr2 := gu(payload, bit, 8)
				bit += 8
				obs.L2CNR = float64(cnr2) * 0.25
			}
		}
		out = append(out, obs)
	}
	return hdr, out
}

// decodeStationARP implements message types 1005 (stationary antenna
// reference point) and 1006 (the same, plus antenna height).
func decodeStationARP(payload []byte, withHeight bool) *StationARP {
	s := &StationARP{
		StationID:                int(gu(payload, 12, 12)),
		ITRFYear:                 int(gu(payload, 24, 6)),
		GPSIndicator:             gu(payload, 30, 1) != 0,
		GLONASSIndicator:         gu(payload, 31, 1) != 0,
		GalileoIndicator:         gu(payload, 32, 1) != 0,
		ReferenceStationIndicator: gu(payload, 33, 1) != 0,
		X:                        float64(gi(payload, 34, 38)) * arpScale,
		OscillatorSingle:         gu(payload, 72, 1) != 0,
		Y:                        float64(gi(payload, 74, 38)) * arpScale,
		Z:                        float64(gi(payload, 114, 38)) * arpScale,
	}
	if withHeight {
		s.AntennaHeight = float64(gu(payload, 152, 16)) * arpScale
	}
	return s
}

// decodeText implements message type 1029: a UTF-8 status/description
// string tagged with a Modified Julian Day and second-of-day timestamp.
func decodeText(payload []byte) *Text {
	stationID := int(gu(payload, 12, 12))
	mjd := int(gu(payload, 24, 16))
	sod := float64(gu(payload, 40, 17)) * 0.001
	numChars := int(gu(payload, 57, 7))
	numUnits := int(gu(payload, 64, 8))
	_ = numChars // code-point count isn't needed to slice the UTF-8 bytes

	start := 72
	msg := make([]byte, 0, numUnits)
	for i := 0; i < numUnits; i++ {
		if start+8 > len(payload)*8 {
			break
		}
		msg = append(msg, byte(gu(payload, start, 8)))
		start += 8
	}
	return &Text{StationID: stationID, MJD: mjd, SecondOfDay: sod, Message: string(msg)}
}
