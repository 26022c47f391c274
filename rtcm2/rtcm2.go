// Package rtcm2 decodes RTCM SC-104 version 2.x differential correction
// messages once the lexer has framed and parity-checked
// their IS-GPS-200 30-bit words. Like tsip, this package re-derives its
// own parsed form from the raw lexer frame: the lexer only proves the
// frame locks and parity-checks, it keeps no decoded copy, so Decode
// replays the frame bytes through a fresh isgps.Assembler to recover the
// words before unpacking message content from them.
package rtcm2

import (
	"github.com/heliosgnss/gnssd/bitutil"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/isgps"
)

// Scale factors and offsets for the fields below. RTCM SC-104 is a
// copyrighted paper spec; these are the values publicly documented by
// ITU-R M.823 and long-standing open-source RTCM2 decoders.
const (
	pcSmall  = 0.02
	pcLarge  = 0.32
	rrSmall  = 0.002
	rrLarge  = 0.032
	xyzScale = 0.01
	dxyzScale = 0.1
	laScale  = 90.0 / 32768.0
	loScale  = 180.0 / 32768.0
	freqScale  = 0.1
	freqOffset = 190.0
	cnrOffset  = 24
	tuScale    = 5.0 // minutes
	zcountScale = 0.6
)

var txSpeed = [8]int{25, 50, 100, 110, 150, 200, 250, 300}

// Header is the two-word RTCM2 message header common to every type.
type Header struct {
	Type       int
	StationID  int
	ZCount     float64
	SeqNum     int
	FrameLen   int // number of 24-bit data words following the header
	StationHealth int
}

// Correction is one satellite's pseudorange/range-rate correction
// (message types 1 and 9).
type Correction struct {
	Ident      int
	UDRE       int
	IssueData  int
	RangeErr   float64
	RangeRate  float64
}

// ReferenceStation is message type 3's ECEF antenna position.
type ReferenceStation struct {
	X, Y, Z float64
}

// Datum is message type 4's reference datum.
type Datum struct {
	GNSSIsGLONASS bool
	GlobalSense   bool
	Name          string
	DX, DY, DZ    float64
}

// SatHealth is one entry of message type 5's constellation health list.
type SatHealth struct {
	Ident           int
	IssueOfDataLink bool
	DataHealth      int
	SNR             float64
	HealthEnable    bool
	NewNavData      bool
	LossWarning     bool
	TimeUnhealthy   float64 // minutes
}

// AlmanacStation is one entry of message type 7's reference station
// almanac.
type AlmanacStation struct {
	Latitude, Longitude float64
	Range               int
	Frequency           float64
	Health              int
	StationID           int
	BitRate             int
}

// Result is everything one RTCM2 message can produce. Only the fields
// relevant to the decoded type are populated.
type Result struct {
	Header        Header
	Corrections   []Correction
	Reference     *ReferenceStation
	Datum         *Datum
	Health        []SatHealth
	Almanac       []AlmanacStation
	Text          string
	Unknown       bool
}

// Decode replays a raw lexer frame (the six-bit-reversed RTCM2 octet
// stream, still framed exactly as received) through a fresh word
// assembler and unpacks whatever message type its header words name.
func Decode(frame []byte) (Result, bool) {
	words := wordsFromFrame(frame)
	if len(words) < 2 {
		return Result{}, false
	}
	data := packDataBits(words)

	hdr := Header{}
	v, _ := bitutil.GetBitsU(data, 8, 6)
	hdr.Type = int(v)
	v, _ = bitutil.GetBitsU(data, 14, 10)
	hdr.StationID = int(v)
	v, _ = bitutil.GetBitsU(data, 24, 13)
	hdr.ZCount = float64(v) * zcountScale
	v, _ = bitutil.GetBitsU(data, 37, 3)
	hdr.SeqNum = int(v)
	v, _ = bitutil.GetBitsU(data, 40, 5)
	hdr.FrameLen = int(v)
	v, _ = bitutil.GetBitsU(data, 45, 3)
	hdr.StationHealth = int(v)

	body := data[6:] // drop the two 24-bit header words (48 bits = 6 bytes)
	r := Result{Header: hdr}

	switch hdr.Type {
	case 1, 9:
		r.Corrections = decodeCorrections(body, hdr.FrameLen)
	case 3:
		r.Reference = decodeReferenceStation(body, hdr.FrameLen)
	case 4:
		r.Datum = decodeDatum(body, hdr.FrameLen)
	case 5:
		r.Health = decodeHealth(body, hdr.FrameLen)
	case 7:
		r.Almanac = decodeAlmanac(body, hdr.FrameLen)
	case 16:
		r.Text = decodeText(body, hdr.FrameLen)
	default:
		r.Unknown = true
	}
	return r, true
}

func wordsFromFrame(frame []byte) []uint32 {
	a := isgps.NewAssembler()
	var words []uint32
	for _, b := range frame {
		w, ok, err := a.PushByte(b)
		if err != nil {
			a.Reset()
			continue
		}
		if ok {
			words = append(words, w)
		}
	}
	return words
}

// packDataBits concatenates each word's 24 data bits (D1 first, the MSB
// of word>>6) into one continuous MSB-first bit buffer, the same order
// the cross-word bitfields below assume.
func packDataBits(words []uint32) []byte {
	nbits := len(words) * 24
	out := make([]byte, (nbits+7)/8)
	bitpos := 0
	for _, w := range words {
		data := w >> 6
		for i := 23; i >= 0; i-- {
			if (data>>uint(i))&1 != 0 {
				out[bitpos/8] |= 1 << uint(7-bitpos%8)
			}
			bitpos++
		}
	}
	return out
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

// decodeCorrections implements message types 1/9: three satellite
// corrections packed into each 5-word (120-bit) group, with the third
// satellite's pseudorange field split across the group boundary.
func decodeCorrections(body []byte, frameLen int) []Correction {
	var out []Correction
	remaining := frameLen
	group := 0
	for remaining >= 0 {
		base := group * 120
		if remaining >= 2 {
			ident := int(gu(body, base, 5))
			udre := int(gu(body, base+5, 2))
			scale := gu(body, base+7, 1)
			pc := gi(body, base+8, 16)
			rr := gi(body, base+40, 8)
			issue := int(gu(body, base+32, 8))
			out = append(out, Correction{
				Ident: ident, UDRE: udre, IssueData: issue,
				RangeErr:  float64(pc) * scaleFor(scale, pcSmall, pcLarge),
				RangeRate: float64(rr) * scaleFor(scale, rrSmall, rrLarge),
			})
		}
		if remaining >= 4 {
			ident := int(gu(body, base+24, 5))
			udre := int(gu(body, base+29, 2))
			scale := gu(body, base+31, 1)
			issue := int(gu(body, base+80, 8)) // issuedata2 lives in the sat3 header word, not w4
			pc := gi(body, base+48, 16)
			rr := gi(body, base+64, 8)
			out = append(out, Correction{
				Ident: ident, UDRE: udre, IssueData: issue,
				RangeErr:  float64(pc) * scaleFor(scale, pcSmall, pcLarge),
				RangeRate: float64(rr) * scaleFor(scale, rrSmall, rrLarge),
			})
		}
		if remaining >= 5 {
			ident := int(gu(body, base+72, 5))
			udre := int(gu(body, base+77, 2))
			scale := gu(body, base+79, 1)
			issue := int(gu(body, base+96, 8))
			pcH := gu(body, base+88, 8)
			pcL := gu(body, base+104, 8)
			pc := int16(pcH<<8 | pcL)
			rr := gi(body, base+112, 8)
			out = append(out, Correction{
				Ident: ident, UDRE: udre, IssueData: issue,
				RangeErr:  float64(pc) * scaleFor(scale, pcSmall, pcLarge),
				RangeRate: float64(rr) * scaleFor(scale, rrSmall, rrLarge),
			})
		}
		remaining -= 5
		group++
		if group > 16 {
			break // defensive bound; a malformed frameLen should not spin
		}
	}
	return out
}

func scaleFor(scaleBit uint64, small, large float64) float64 {
	if scaleBit != 0 {
		return large
	}
	return small
}

// decodeReferenceStation implements message type 3: an ECEF antenna
// position spread as 32-bit fields across four 24-bit words.
func decodeReferenceStation(body []byte, frameLen int) *ReferenceStation {
	if frameLen < 4 {
		return nil
	}
	x := gi(body, 0, 32)
	y := gi(body, 32, 32)
	z := gi(body, 64, 32)
	return &ReferenceStation{
		X: float64(x) * xyzScale,
		Y: float64(y) * xyzScale,
		Z: float64(z) * xyzScale,
	}
}

// decodeDatum implements message type 4.
func decodeDatum(body []byte, frameLen int) *Datum {
	if frameLen < 2 {
		return nil
	}
	dgnss := gu(body, 0, 2)
	dat := gu(body, 3, 1)
	c1 := byte(gu(body, 4, 8))
	c2 := byte(gu(body, 12, 8))

	d := &Datum{
		GNSSIsGLONASS: dgnss == 1,
		GlobalSense:   dat != 0,
		DX:            fix.NaN, DY: fix.NaN, DZ: fix.NaN,
	}
	var name []byte
	for _, c := range []byte{c1, c2} {
		if c != 0 {
			name = append(name, c)
		}
	}
	if frameLen >= 2 {
		s1 := byte(gu(body, 24, 8))
		s2 := byte(gu(body, 32, 8))
		s3 := byte(gu(body, 40, 8))
		for _, c := range []byte{s1, s2, s3} {
			if c != 0 {
				name = append(name, c)
			}
		}
	}
	d.Name = string(name)

	if frameLen >= 4 {
		dx := gi(body, 48, 16)
		dyH := gu(body, 64, 8)
		dyL := gu(body, 72, 8)
		dy := int16(dyH<<8 | dyL)
		dz := gi(body, 80, 16)
		d.DX = float64(dx) * dxyzScale
		d.DY = float64(dy) * dxyzScale
		d.DZ = float64(dz) * dxyzScale
	}
	return d
}

// decodeHealth implements message type 5: one satellite health entry
// per 24-bit data word.
func decodeHealth(body []byte, frameLen int) []SatHealth {
	out := make([]SatHealth, 0, frameLen)
	for i := 0; i < frameLen; i++ {
		base := i * 24
		if base+24 > len(body)*8 {
			break
		}
		cn0 := gu(body, base+9, 5)
		snr := fix.NaN
		if cn0 != 0 {
			snr = float64(cn0) + cnrOffset
		}
		out = append(out, SatHealth{
			Ident:           int(gu(body, base, 5)),
			IssueOfDataLink: gu(body, base+5, 1) != 0,
			DataHealth:      int(gu(body, base+6, 3)),
			SNR:             snr,
			HealthEnable:    gu(body, base+14, 1) != 0,
			NewNavData:      gu(body, base+15, 1) != 0,
			LossWarning:     gu(body, base+16, 1) != 0,
			TimeUnhealthy:   float64(gu(body, base+17, 7)) * tuScale,
		})
	}
	return out
}

// decodeAlmanac implements message type 7: one reference station entry
// per three 24-bit data words.
func decodeAlmanac(body []byte, frameLen int) []AlmanacStation {
	entries := frameLen / 3
	out := make([]AlmanacStation, 0, entries)
	for i := 0; i < entries; i++ {
		base := i * 72
		if base+72 > len(body)*8 {
			break
		}
		lat := gi(body, base, 16)
		lonH := gu(body, base+16, 8)
		lonL := gu(body, base+24, 8)
		lon := int16(lonH<<8 | lonL)
		rng := gu(body, base+32, 10)
		freqH := gu(body, base+42, 6)
		freqL := gu(body, base+48, 6)
		freq := freqH<<6 | freqL
		health := gu(body, base+54, 5)
		stationID := gu(body, base+59, 10)
		bitRate := gu(body, base+69, 3)

		out = append(out, AlmanacStation{
			Latitude:  float64(lat) * laScale,
			Longitude: float64(lon) * loScale,
			Range:     int(rng),
			Frequency: float64(freq)*freqScale + freqOffset,
			Health:    int(health),
			StationID: int(stationID),
			BitRate:   txSpeed[bitRate%8],
		})
	}
	return out
}

// decodeText implements message type 16: three ASCII bytes per data
// word, NUL-terminated early if a zero byte appears.
func decodeText(body []byte, frameLen int) string {
	var out []byte
	for i := 0; i < frameLen; i++ {
		base := i * 24
		if base+24 > len(body)*8 {
			break
		}
		done := false
		for j := 0; j < 3; j++ {
			c := byte(gu(body, base+j*8, 8))
			if c == 0 {
				done = true
				break
			}
			out = append(out, c)
		}
		if done {
			break
		}
	}
	return string(out)
}
