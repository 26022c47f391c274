// Package sirf decodes SiRF Binary protocol payloads once
// the lexer has framed and checksum-verified them. Field layouts follow
// the SiRF Binary Protocol Reference as gpsd's driver for this chipset
// interprets it, including the firmware-revision-conditional behavior
// SiRF's own manuals disagree with their firmware about.
package sirf

import (
	"math"
	"strconv"

	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/gtime"
)

// Firmware revision flags, set by decoding message 0x06's version string.
// Message 0x29 only carries usable fields once the firmware has crossed
// 232 (older firmware leaves them zeroed); on that firmware 0x02's
// position/velocity fields are not decoded.
const (
	FirmwareLT231 uint32 = 1 << iota
	FirmwareEQ231
	FirmwareGE232
)

// State is the per-session SiRF decoding context: the firmware flags
// learned from message 0x06, and the leap-second value the core has
// learned so far (needed to convert GPS week/TOW to Unix time).
type State struct {
	driverstate uint32
	leapSeconds int
	leapKnown   bool
}

// NewState returns a State with no firmware revision learned yet.
func NewState() *State {
	return &State{}
}

// SetLeapSeconds lets the caller seed or refresh the leap-second value
// this package uses to convert GPS time to Unix time; the canonical
// source is context.leap_seconds, populated by this very
// package's own 0x08/0x34 decoders once they observe one.
func (st *State) SetLeapSeconds(leap int) {
	st.leapSeconds = leap
	st.leapKnown = true
}

// LeapUpdate reports a freshly observed leap-second value, to be folded
// into the session-wide Context.
type LeapUpdate struct {
	Seconds int
}

// Result is everything one SiRF message can produce: a fix update, the
// satellites it named (tracker/used lists carry no azimuth/elevation and
// are distinct from the NMEA GSV sky view), and a leap-second update.
type Result struct {
	Fix  fix.Fix
	Mask fix.Mask
	Sats []fix.Sat
	Leap *LeapUpdate
}

// Pre-built control packets for firmware that understands them, sent by
// the driver layer once 0x06 has identified the firmware generation.
var (
	EnableSubframe  = []byte{0xa0, 0xa2, 0x00, 0x19, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x0c, 0x10, 0, 0, 0xb0, 0xb3}
	DisableSubframe = []byte{0xa0, 0xa2, 0x00, 0x19, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x0c, 0x00, 0, 0, 0xb0, 0xb3}
	EnableMID52PPS  = []byte{0xa0, 0xa2, 0x00, 0x08, 0xa6, 0x00, 0x34, 0x01, 0, 0, 0, 0, 0, 0xdb, 0xb0, 0xb3}
)

func getb(buf []byte, off int) int {
	if off < 0 || off >= len(buf) {
		return 0
	}
	return int(buf[off])
}

func getw(buf []byte, off int) int {
	return getb(buf, off)<<8 | getb(buf, off+1)
}

func getl(buf []byte, off int) int32 {
	return int32(uint32(getw(buf, off))<<16 | uint32(getw(buf, off+2))&0xffff)
}

// Decode dispatches one SiRF frame — Payload as the lexer handed it over,
// including the 0xa0 0xa2 sync, length and trailer — to its message-ID
// decoder. Unrecognized or not-yet-implemented message IDs return a mask
// of fix.Online only.
func Decode(frame []byte, st *State) Result {
	if len(frame) < 8 {
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
	buf := frame[4 : len(frame)-4] // strip sync+length and checksum+trailer

	switch buf[0] {
	case 0x02:
		return decodeMND(buf, st)
	case 0x04:
		return decodeMTD(buf)
	case 0x06:
		return decodeFirmwareVersion(buf, st)
	case 0x08:
		return decodeSubframe(buf)
	case 0x29:
		return decodeGeodetic(buf, st)
	case 0x34:
		return decodePPSTime(buf)
	case 0x41:
		return decodeGPSTime(buf, st)
	default:
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
}

// decodeMND implements message 0x02, Measured Navigation Data Out.
func decodeMND(buf []byte, st *State) Result {
	r := Result{Fix: fix.New()}

	used := getb(buf, 28)
	r.Fix.SatellitesUsed = used
	for i := 0; i < fix.MaxChannels && i < 12; i++ {
		prn := getb(buf, 29+i)
		if prn != 0 {
			r.Sats = append(r.Sats, fix.Sat{PRN: prn, Used: true})
		}
	}

	if st.driverstate&FirmwareGE232 != 0 {
		// Position/velocity fields are meaningless on firmware that
		// moved this data to message 0x62; nothing further to decode.
		r.Mask = fix.UsedSet
		return r
	}

	lat, lon, alt := ecefToWGS84(
		float64(getl(buf, 1)), float64(getl(buf, 5)), float64(getl(buf, 9)))
	speed, track, climb := ecefVelocityToENU(lat, lon,
		float64(getw(buf, 13))/8.0, float64(getw(buf, 15))/8.0, float64(getw(buf, 17))/8.0)

	navtype := getb(buf, 19)
	r.Fix.Status = fix.StatusNoFix
	r.Fix.Mode = fix.ModeNoFix
	if navtype&0x80 != 0 {
		r.Fix.Status = fix.StatusDGPS
	} else if navtype&0x07 > 0 && navtype&0x07 < 7 {
		r.Fix.Status = fix.StatusFix
	}
	if navtype&0x07 == 4 || navtype&0x07 == 6 {
		r.Fix.Mode = fix.Mode3D
	} else if r.Fix.Status != fix.StatusNoFix {
		r.Fix.Mode = fix.Mode2D
	}

	r.Fix.Lat, r.Fix.Lon = lat, lon
	if r.Fix.Mode == fix.Mode3D {
		r.Fix.AltHAE = alt
	}
	r.Fix.Speed, r.Fix.Track, r.Fix.Climb = speed, track, climb

	week := getw(buf, 22)
	tow := float64(getl(buf, 24)) * 1e-2
	leap := 0.0
	if st.leapKnown {
		leap = float64(st.leapSeconds)
	}
	r.Fix.Time = gtime.WeekTOWToUnix(week, tow, leap)

	r.Mask = fix.TimeSet | fix.LatLonSet | fix.TrackSet | fix.SpeedSet |
		fix.StatusSet | fix.ModeSet | fix.UsedSet
	if r.Fix.Mode == fix.Mode3D {
		r.Mask |= fix.AltitudeSet
	}
	return r
}

// decodeMTD implements message 0x04, Measured Tracker Data Out: this is
// the per-satellite sky view, not the fix itself.
func decodeMTD(buf []byte) Result {
	r := Result{Fix: fix.New(), Mask: fix.SatelliteSet}
	for i := 0; i < 12; i++ {
		off := 8 + 15*i
		prn := getb(buf, off)
		az := float64(getb(buf, off+1)) * 3.0 / 2.0
		el := float64(getb(buf, off+2)) / 2.0
		cn := 0
		for j := 0; j < 10; j++ {
			cn += getb(buf, off+5+j)
		}
		snr := float64(cn) / 10.0
		if prn == 0 || (az == 0 && el == 0) {
			continue
		}
		r.Sats = append(r.Sats, fix.Sat{PRN: prn, Azimuth: az, Elevation: el, SNR: snr})
	}
	return r
}

// decodeFirmwareVersion implements message 0x06: the version string that
// gates every later message's field layout.
func decodeFirmwareVersion(buf []byte, st *State) Result {
	version := parseFirmwareNumber(buf[1:])
	switch {
	case version < 231.0:
		st.driverstate |= FirmwareLT231
	case version < 232.0:
		st.driverstate |= FirmwareEQ231
	default:
		st.driverstate |= FirmwareGE232
	}
	return Result{Fix: fix.New()}
}

func parseFirmwareNumber(b []byte) float64 {
	// The field is an ASCII string like "231.000.000-GSW3"; only the
	// leading numeric run up to the second '.' (e.g. "231.000") matters here.
	end, dots := 0, 0
	for end < len(b) && (b[end] == '.' || (b[end] >= '0' && b[end] <= '9')) {
		if b[end] == '.' {
			dots++
			if dots == 2 {
				break
			}
		}
		end++
	}
	v, err := strconv.ParseFloat(string(b[:end]), 64)
	if err != nil {
		return 0
	}
	return v
}

// decodeSubframe implements message 0x08: raw GPS subframe words, mined
// for subframe 4 page 18's leap-second byte.
func decodeSubframe(buf []byte) Result {
	r := Result{Fix: fix.New()}
	if len(buf) < 43 {
		return r
	}
	var words [10]uint32
	for i := range words {
		words[i] = uint32(getl(buf, 3+4*i)) & 0x3fffffff >> 6
	}

	lead := words[0] & 0xff0000
	if lead != 0x8b0000 && lead != 0x740000 {
		return r
	}
	if lead == 0x740000 {
		for i := 1; i < 10; i++ {
			words[i] ^= 0xffffff
		}
	}

	subframe := (words[1] >> 2) & 0x07
	if subframe != 4 {
		return r
	}
	pageid := (words[2] & 0x3f0000) >> 16
	if pageid != 56 {
		return r
	}

	leap := int((words[8] & 0xff0000) >> 16)
	if leap > 128 {
		leap ^= 0xff
	}
	r.Leap = &LeapUpdate{Seconds: leap}
	return r
}

// decodeGeodetic implements message 0x29, Geodetic Navigation
// Information — only meaningful once firmware 232+ has been confirmed.
func decodeGeodetic(buf []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	if st.driverstate&FirmwareGE232 == 0 {
		return r
	}

	navtype := getw(buf, 3)
	r.Fix.Status = fix.StatusNoFix
	r.Fix.Mode = fix.ModeNoFix
	if navtype&0x80 != 0 {
		r.Fix.Status = fix.StatusDGPS
	} else if navtype&0x07 > 0 && navtype&0x07 < 7 {
		r.Fix.Status = fix.StatusFix
	}
	if navtype&0x07 == 4 || navtype&0x07 == 6 {
		r.Fix.Mode = fix.Mode3D
	} else if r.Fix.Status != fix.StatusNoFix {
		r.Fix.Mode = fix.Mode2D
	}

	year := getw(buf, 11)
	month := getb(buf, 13)
	day := getb(buf, 14)
	hour := getb(buf, 15)
	minute := getb(buf, 16)
	subsec := float64(getw(buf, 17)) * 1e-3
	if year != 0 {
		r.Fix.Time = gtime.CivilToUnix(year, month, day, hour, minute, 0) + subsec
		r.Mask |= fix.TimeSet
	}

	r.Fix.Lat = float64(getl(buf, 23)) * 1e-7
	r.Fix.Lon = float64(getl(buf, 27)) * 1e-7
	r.Fix.AltHAE = float64(getl(buf, 31)) * 1e-2
	r.Fix.Speed = float64(getw(buf, 36)) * 1e-2
	r.Fix.Track = float64(getw(buf, 38)) * 1e-2
	r.Fix.Climb = float64(getw(buf, 42)) * 1e-2

	r.Mask |= fix.LatLonSet | fix.StatusSet | fix.ModeSet | fix.SpeedSet | fix.TrackSet | fix.ClimbSet
	if r.Fix.Mode == fix.Mode3D {
		r.Mask |= fix.AltitudeSet
	}
	return r
}

// decodePPSTime implements message 0x34: a time fix tied to the leading
// edge of the receiver's 1PPS output, more consistently timed than the
// navigation messages.
func decodePPSTime(buf []byte) Result {
	r := Result{Fix: fix.New()}
	status := getb(buf, 14)
	if status&0x07 != 0x07 {
		return r
	}
	hour := getb(buf, 1)
	minute := getb(buf, 2)
	second := getb(buf, 3)
	day := getb(buf, 4)
	month := getb(buf, 5)
	year := getw(buf, 6)
	leap := getw(buf, 8)

	r.Fix.Time = gtime.CivilToUnix(year, month, day, hour, minute, second)
	r.Mask = fix.TimeSet
	r.Leap = &LeapUpdate{Seconds: leap}
	return r
}

// decodeGPSTime implements message 0x41, a direct GPS-week/TOW time
// report.
func decodeGPSTime(buf []byte, st *State) Result {
	r := Result{Fix: fix.New()}
	week := getw(buf, 1)
	tow := float64(getl(buf, 3)) * 1e-2
	leap := getw(buf, 7)
	if leap != 0 {
		st.SetLeapSeconds(leap)
		r.Leap = &LeapUpdate{Seconds: leap}
	}
	r.Fix.Time = gtime.WeekTOWToUnix(week, tow, float64(leap))
	r.Mask = fix.TimeSet
	return r
}

// ecefToWGS84 converts an Earth-Centered-Earth-Fixed position to
// geodetic latitude/longitude/height via Bowring's closed-form
// approximation, iterated twice for sub-millimeter accuracy. Neither the
// teacher nor the example pack carries this conversion; it is the
// standard WGS84 construction, reconstructed from general geodesy rather
// than a retrieved source file (see DESIGN.md).
func ecefToWGS84(x, y, z float64) (latDeg, lonDeg, altMeters float64) {
	const a = 6378137.0
	const f = 1.0 / 298.257223563
	const e2 = f * (2 - f)
	const b = a * (1 - f)
	const ep2 = (a*a - b*b) / (b * b)

	p := math.Hypot(x, y)
	theta := math.Atan2(z*a, p*b)
	lat := math.Atan2(z+ep2*b*math.Pow(math.Sin(theta), 3), p-e2*a*math.Pow(math.Cos(theta), 3))
	for i := 0; i < 2; i++ {
		sinLat := math.Sin(lat)
		n := a / math.Sqrt(1-e2*sinLat*sinLat)
		alt := p/math.Cos(lat) - n
		lat = math.Atan2(z, p*(1-e2*n/(n+alt)))
	}
	sinLat := math.Sin(lat)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	altMeters = p/math.Cos(lat) - n
	lonDeg = math.Atan2(y, x) * 180 / math.Pi
	latDeg = lat * 180 / math.Pi
	return latDeg, lonDeg, altMeters
}

// ecefVelocityToENU rotates an ECEF velocity vector into local
// east/north/up at (latDeg, lonDeg), the frame Fix.Speed/Track/Climb
// are defined in.
func ecefVelocityToENU(latDeg, lonDeg, vx, vy, vz float64) (speed, track, climb float64) {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	east := -sinLon*vx + cosLon*vy
	north := -sinLat*cosLon*vx - sinLat*sinLon*vy + cosLat*vz
	up := cosLat*cosLon*vx + cosLat*sinLon*vy + sinLat*vz

	speed = math.Hypot(east, north)
	track = math.Atan2(east, north) * 180 / math.Pi
	if track < 0 {
		track += 360
	}
	climb = up
	return speed, track, climb
}
