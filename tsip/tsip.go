// Package tsip decodes Trimble TSIP packets once the
// lexer has found their DLE/ETX framing. TSIP carries no checksum of its
// own, so unlike sirf/rtcm3 this package re-destuffs the frame itself —
// exactly as the driver this is grounded on does, since the lexer only
// proves the framing is well-formed, not that it kept a parsed copy.
package tsip

import (
	"math"

	"github.com/heliosgnss/gnssd/bitutil"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/gtime"
)

const radToDeg = 180 / math.Pi

// State tracks the GPS week and leap-second value TSIP's ECEF/LLA
// messages need but don't themselves always carry.
type State struct {
	gpsWeek     int
	leapSeconds float64
	leapKnown   bool
}

// NewState returns a State with no GPS week or leap-second value learned yet.
func NewState() *State {
	return &State{}
}

// LeapUpdate reports a freshly observed leap-second value for the
// session-wide Context.
type LeapUpdate struct {
	Seconds int
}

// Result is everything one TSIP packet can produce.
type Result struct {
	Fix  fix.Fix
	Mask fix.Mask
	DOP  *fix.DOP
	Sats []fix.Sat
	Leap *LeapUpdate
}

// destuff removes TSIP's DLE byte-stuffing from frame[2:], stopping at
// the unstuffed 0x10 0x03 terminator. frame still carries its leading
// 0x10 and ID byte.
func destuff(frame []byte) []byte {
	out := make([]byte, 0, len(frame))
	for i := 2; i < len(frame); i++ {
		if frame[i] == 0x10 {
			i++
			if i >= len(frame) || frame[i] == 0x03 {
				break
			}
		}
		out = append(out, frame[i])
	}
	return out
}

// Decode dispatches a framed TSIP packet — leading 0x10, ID byte,
// DLE-stuffed body, DLE ETX trailer, exactly as the lexer handed it
// over — to its packet-ID decoder.
func Decode(frame []byte, st *State) Result {
	if len(frame) < 4 || frame[0] != 0x10 {
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
	id := frame[1]
	body := destuff(frame)

	switch id {
	case 0x41:
		return decodeGPSTime(body, st)
	case 0x47:
		return decodeSignalLevels(body)
	case 0x4a:
		return decodeSinglePrecisionLLA(body, st)
	case 0x56:
		return decodeVelocityENU(body)
	case 0x57:
		return decodeLastFixInfo(body, st)
	case 0x6d:
		return decodeAllInView(body)
	case 0x82:
		return decodeDGPSMode(body)
	case 0x84:
		return decodeDoublePrecisionLLA(body, st)
	default:
		// 0x13, 0x42/0x43 (debug-only ECEF), 0x45/0x46/0x48/0x4b/0x55
		// (status/logging only), 0x58/0x59/0x5a/0x5c (raw tracking), 0x8f
		// super-packets: recognized but carry nothing the fix needs.
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
}

func f32(body []byte, off int) float64 {
	v, err := bitutil.F32BE(body, off)
	if err != nil {
		return fix.NaN
	}
	return float64(v)
}

func f64(body []byte, off int) float64 {
	v, err := bitutil.F64BE(body, off)
	if err != nil {
		return fix.NaN
	}
	return v
}

func i16(body []byte, off int) int {
	v, err := bitutil.I16BE(body, off)
	if err != nil {
		return 0
	}
	return int(v)
}

// decodeGPSTime implements packet 0x41.
func decodeGPSTime(body []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 10 {
		return r
	}
	tow := f32(body, 0)
	week := i16(body, 4)
	leap := f32(body, 6)
	if leap <= 10.0 {
		// Firmware reports the sentinel "no leap second known yet" value
		// below 10s; the real UTC-GPS offset has never been that small.
		return r
	}
	st.gpsWeek = week
	st.leapSeconds = math.Round(leap)
	st.leapKnown = true

	r.Fix.Time = gtime.WeekTOWToUnix(week, tow, st.leapSeconds)
	r.Mask = fix.TimeSet
	r.Leap = &LeapUpdate{Seconds: int(st.leapSeconds)}
	return r
}

// decodeSignalLevels implements packet 0x47.
func decodeSignalLevels(body []byte) Result {
	r := Result{Fix: fix.New()}
	if len(body) < 1 {
		return r
	}
	count := int(body[0])
	if len(body) != 5*count+1 {
		return r
	}
	for i := 0; i < count; i++ {
		prn := int(body[5*i+1])
		snr := f32(body, 5*i+2)
		r.Sats = append(r.Sats, fix.Sat{PRN: prn, SNR: snr})
	}
	r.Mask = fix.SatelliteSet
	return r
}

// decodeSinglePrecisionLLA implements packet 0x4a.
func decodeSinglePrecisionLLA(body []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 20 {
		return r
	}
	r.Fix.Lat = f32(body, 0) * radToDeg
	r.Fix.Lon = f32(body, 4) * radToDeg
	r.Fix.AltHAE = f32(body, 8)
	tof := f32(body, 16)

	r.Fix.Status = fix.StatusFix
	r.Mask = fix.LatLonSet | fix.AltitudeSet | fix.StatusSet
	if st.leapKnown {
		r.Fix.Time = gtime.WeekTOWToUnix(st.gpsWeek, tof, st.leapSeconds)
		r.Mask |= fix.TimeSet
	}
	return r
}

// decodeVelocityENU implements packet 0x56. The message name (East-
// North-Up) fixes which component is climb; speed and track are the
// horizontal (east, north) magnitude and bearing.
func decodeVelocityENU(body []byte) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 20 {
		return r
	}
	east := f32(body, 0)
	north := f32(body, 4)
	up := f32(body, 8)

	r.Fix.Climb = up
	r.Fix.Speed = math.Hypot(east, north)
	track := math.Atan2(east, north) * radToDeg
	if track < 0 {
		track += 360.0
	}
	r.Fix.Track = track
	r.Mask = fix.SpeedSet | fix.TrackSet | fix.ClimbSet
	return r
}

// decodeLastFixInfo implements packet 0x57: its only job here is to
// learn the GPS week once the receiver has a good fix.
func decodeLastFixInfo(body []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 8 {
		return r
	}
	goodFix := body[0] != 0
	week := i16(body, 6)
	if goodFix {
		st.gpsWeek = week
	}
	return r
}

// decodeAllInView implements packet 0x6d: dimension, used-satellite
// count and PRN list, and DOP values.
func decodeAllInView(body []byte) Result {
	r := Result{Fix: fix.New()}
	if len(body) < 16 {
		return r
	}
	u1 := int(body[0])
	switch u1 & 0x07 {
	case 3:
		r.Fix.Mode = fix.Mode2D
	case 4:
		r.Fix.Mode = fix.Mode3D
	default:
		r.Fix.Mode = fix.ModeNoFix
	}
	used := (u1 >> 4) & 0x0f
	r.Fix.SatellitesUsed = used

	dop := fix.NewDOP()
	dop.PDOP = f32(body, 1)
	dop.HDOP = f32(body, 5)
	dop.VDOP = f32(body, 9)
	dop.TDOP = f32(body, 13)
	dop.GDOP = math.Sqrt(dop.PDOP*dop.PDOP + dop.TDOP*dop.TDOP)
	r.DOP = &dop

	if len(body) >= 16+used {
		for i := 0; i < used; i++ {
			r.Sats = append(r.Sats, fix.Sat{PRN: int(body[16+i]), Used: true})
		}
	}

	r.Mask = fix.ModeSet | fix.DopSet | fix.UsedSet
	return r
}

// decodeDGPSMode implements packet 0x82.
func decodeDGPSMode(body []byte) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 1 {
		return r
	}
	if body[0]&0x01 != 0 {
		r.Fix.Status = fix.StatusDGPS
		r.Mask = fix.StatusSet
	}
	return r
}

// decodeDoublePrecisionLLA implements packet 0x84.
func decodeDoublePrecisionLLA(body []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	if len(body) != 36 {
		return r
	}
	r.Fix.Lat = f64(body, 0) * radToDeg
	r.Fix.Lon = f64(body, 8) * radToDeg
	r.Fix.AltHAE = f64(body, 16)
	tof := f32(body, 32)

	r.Fix.Status = fix.StatusFix
	r.Mask = fix.LatLonSet | fix.AltitudeSet | fix.StatusSet
	if st.leapKnown {
		r.Fix.Time = gtime.WeekTOWToUnix(st.gpsWeek, tof, st.leapSeconds)
		r.Mask |= fix.TimeSet
	}
	return r
}
