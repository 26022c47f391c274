// Package ubx decodes u-blox UBX protocol messages once the lexer has
// found their 0xb5 0x62 framing and verified the Fletcher-8 checksum.
// Only UBX-NAV-PVT (class 0x01, ID 0x07) is decoded: the single message
// a modern u-blox receiver uses to carry a complete position/velocity/
// time solution in one payload, the way the SiRF and TSIP decoders each
// key off their own protocol's richest fix message.
package ubx

import (
	"time"

	"github.com/heliosgnss/gnssd/bitutil"
	"github.com/heliosgnss/gnssd/fix"
)

const (
	classNAV = 0x01
	idNAVPVT = 0x07
)

// Result is everything one UBX message can produce.
type Result struct {
	Fix  fix.Fix
	Mask fix.Mask
	DOP  *fix.DOP
}

// Decode dispatches a framed UBX message -- leading 0xb5 0x62 sync,
// class, ID, little-endian length, payload, and two-byte checksum,
// exactly as the lexer handed it over -- to its class/ID decoder.
func Decode(frame []byte) Result {
	if len(frame) < 8 {
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
	class, id := frame[2], frame[3]
	body := frame[6 : len(frame)-2]

	switch {
	case class == classNAV && id == idNAVPVT:
		return decodeNavPVT(body)
	default:
		// Every other class/ID (NAV-DOP, NAV-SAT, RXM-RAWX, MON-VER, ACK-*,
		// CFG-*, and the rest of u-blox's several hundred message IDs) is
		// recognized as framed but carries nothing this decoder turns into
		// a fix, same as an unrecognized SiRF or TSIP packet ID.
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
}

// decodeNavPVT implements NAV-PVT. Only the first 84 payload bytes are
// required; the headVeh/magDec/magAcc fields that newer firmware carries
// past byte 84 (making the payload 92 bytes) are ignored.
func decodeNavPVT(b []byte) Result {
	if len(b) < 84 {
		return Result{Fix: fix.New(), Mask: fix.Online}
	}
	r := Result{Fix: fix.New()}

	year, _ := bitutil.U16LE(b, 4)
	month, _ := bitutil.U8(b, 6)
	day, _ := bitutil.U8(b, 7)
	hour, _ := bitutil.U8(b, 8)
	minute, _ := bitutil.U8(b, 9)
	sec, _ := bitutil.U8(b, 10)
	validFlags, _ := bitutil.U8(b, 11)

	fixType, _ := bitutil.U8(b, 20)
	navFlags, _ := bitutil.U8(b, 21)
	numSV, _ := bitutil.U8(b, 23)

	lon, _ := bitutil.I32LE(b, 24)
	lat, _ := bitutil.I32LE(b, 28)
	hMSL, _ := bitutil.I32LE(b, 36)
	velD, _ := bitutil.I32LE(b, 56)
	gSpeed, _ := bitutil.I32LE(b, 60)
	headMot, _ := bitutil.I32LE(b, 64)
	pDOP, _ := bitutil.U16LE(b, 76)

	r.Fix.Lon = float64(lon) * 1e-7
	r.Fix.Lat = float64(lat) * 1e-7
	r.Fix.AltMSL = float64(hMSL) / 1000.0
	r.Fix.Climb = -float64(velD) / 1000.0 // NED down -> up-positive climb
	r.Fix.Speed = float64(gSpeed) / 1000.0
	r.Fix.Track = float64(headMot) * 1e-5
	r.Fix.SatellitesUsed = int(numSV)

	mask := fix.LatLonSet | fix.AltitudeSet | fix.ClimbSet | fix.SpeedSet | fix.TrackSet | fix.UsedSet

	switch fixType {
	case 2:
		r.Fix.Mode = fix.Mode2D
	case 3, 4:
		r.Fix.Mode = fix.Mode3D
	default:
		r.Fix.Mode = fix.ModeNoFix
	}
	mask |= fix.ModeSet

	const diffSolnBit = 0x02
	switch {
	case fixType == 0 || fixType == 1:
		r.Fix.Status = fix.StatusNoFix
	case navFlags&diffSolnBit != 0:
		r.Fix.Status = fix.StatusDGPS
	default:
		r.Fix.Status = fix.StatusFix
	}
	mask |= fix.StatusSet

	if pDOP != 0xffff {
		dop := fix.NewDOP()
		dop.PDOP = float64(pDOP) * 0.01
		r.DOP = &dop
		mask |= fix.DopSet
	}

	// validFlags bit 0 (validDate) and bit 1 (validTime) together mean
	// the calendar fields below are trustworthy; fullyResolved (bit 2) is
	// not required since the calendar still reads correctly without it.
	const validDate, validTime = 0x01, 0x02
	if validFlags&validDate != 0 && validFlags&validTime != 0 {
		t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(sec), 0, time.UTC)
		r.Fix.Time = float64(t.Unix())
		mask |= fix.TimeSet
	}

	r.Mask = mask
	return r
}
