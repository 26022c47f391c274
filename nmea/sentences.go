package nmea

import (
	"math"
	"time"

	"github.com/heliosgnss/gnssd/fix"
)

// decodeRMC parses an RMC sentence.
func decodeRMC(s Sentence, st *State) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	secOfDay, timeOK := parseHHMMSSFrac(s.field(0))
	status := s.field(1)
	lat := parseLatLon(s.field(2), s.field(3), false)
	lon := parseLatLon(s.field(4), s.field(5), true)
	speedKnots := parseFloat(s.field(6))
	track := parseFloat(s.field(7))
	dateField := s.field(8)
	magvar := parseFloat(s.field(9))
	magvarDir := s.field(10)
	faaMode := s.field(11)

	if magvarDir == "W" && fix.IsSet(magvar) {
		magvar = -magvar
	}

	if timeOK && len(dateField) == 6 {
		day := parseInt(dateField[0:2], -1)
		month := parseInt(dateField[2:4], -1)
		yy := parseInt(dateField[4:6], -1)
		if day > 0 && month > 0 && yy >= 0 {
			year := st.Century.ExpandRMCYear(yy)
			st.year, st.month, st.day = year, month, day
			st.dateKnown = true
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			f.Time = float64(t.Unix()) + secOfDay
			mask |= fix.TimeSet
		}
	}
	if timeOK {
		mask |= st.Cycle.RegisterFractionalTime("RMC", fracPart(secOfDay))
	}

	if status == "A" || status == "D" {
		if fix.IsSet(lat) && fix.IsSet(lon) {
			f.Lat, f.Lon = lat, lon
			mask |= fix.LatLonSet
		}
		if fix.IsSet(speedKnots) {
			f.Speed = speedKnots * knotsToMPS
			mask |= fix.SpeedSet
		}
		if fix.IsSet(track) {
			f.Track = track
			mask |= fix.TrackSet
		}
	}
	if fix.IsSet(magvar) {
		f.MagVar = magvar
		mask |= fix.MagneticVarSet
	}

	f.Status = rmcStatus(status, faaMode)
	mask |= fix.StatusSet

	if st.lastSatsUsedCount >= 4 {
		f.Mode = fix.Mode3D
	} else {
		f.Mode = fix.Mode2D
	}
	mask |= fix.ModeSet

	return f, mask
}

func rmcStatus(status, faaMode string) fix.Status {
	switch faaMode {
	case "A":
		return fix.StatusFix
	case "D", "P":
		return fix.StatusDGPS
	case "E":
		return fix.StatusDR
	case "F":
		return fix.StatusRTKFloat
	case "R":
		return fix.StatusRTKFixed
	case "N", "S":
		return fix.StatusNoFix
	}
	if status == "A" {
		return fix.StatusFix
	}
	return fix.StatusNoFix
}

// gqualityToStatus maps the GGA fix-quality field (0..8) onto the
// session-wide Status enum.
func gqualityToStatus(quality int) fix.Status {
	switch quality {
	case 0:
		return fix.StatusNoFix
	case 1:
		return fix.StatusFix
	case 2:
		return fix.StatusDGPS
	case 4:
		return fix.StatusRTKFixed
	case 5:
		return fix.StatusRTKFloat
	case 6:
		return fix.StatusDR
	default:
		return fix.StatusFix
	}
}

// decodeGGA parses a GGA sentence, including the same-talker,
// same-timestamp latch detector that suppresses a re-reported cycle.
func decodeGGA(s Sentence, st *State, dop *fix.DOP) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	hhmmss := s.field(0)
	secOfDay, timeOK := parseHHMMSSFrac(hhmmss)

	latched := hhmmss != "" && hhmmss == st.lastGGATime && s.Talker == st.lastGGATalker
	if hhmmss != "" {
		st.lastGGATime = hhmmss
		st.lastGGATalker = s.Talker
	}

	if timeOK {
		if t, ok := st.combineTime(secOfDay); ok {
			f.Time = t
			mask |= fix.TimeSet
		}
		mask |= st.Cycle.RegisterFractionalTime("GGA", fracPart(secOfDay))
	}

	lat := parseLatLon(s.field(1), s.field(2), false)
	lon := parseLatLon(s.field(3), s.field(4), true)
	quality := parseInt(s.field(5), 0)
	numSats := parseInt(s.field(6), -1)
	hdop := parseFloat(s.field(7))
	alt := parseFloat(s.field(8))
	geoid := parseFloat(s.field(10))
	dgpsAge := parseFloat(s.field(12))
	dgpsStation := parseInt(s.field(13), -1)

	if quality > 0 {
		f.Status = gqualityToStatus(quality)
		mask |= fix.StatusSet

		if !latched {
			if fix.IsSet(lat) && fix.IsSet(lon) {
				f.Lat, f.Lon = lat, lon
				mask |= fix.LatLonSet
			}
			if numSats >= 0 {
				f.SatellitesUsed = numSats
				mask |= fix.UsedSet
			}
			if fix.IsSet(hdop) {
				dop.HDOP = hdop
				mask |= fix.DopSet
			}
			if fix.IsSet(alt) {
				f.AltMSL = alt
				f.GeoidSep = geoid
				mask |= fix.AltitudeSet
			}
			f.DGPSAge = dgpsAge
			f.DGPSStation = dgpsStation
		}
	}

	return f, mask
}

// gnsModeToStatus maps a GNS posMode indicator string (one character per
// constituent GNSS, e.g. "AA" for a GPS+GLONASS combined fix) onto the
// session-wide Status enum, taking the best fix quality any constituent
// reports.
func gnsModeToStatus(posMode string) (fix.Status, bool) {
	best := fix.StatusNoFix
	seen := false
	for _, c := range posMode {
		var s fix.Status
		switch c {
		case 'R':
			s = fix.StatusRTKFixed
		case 'F':
			s = fix.StatusRTKFloat
		case 'D':
			s = fix.StatusDGPS
		case 'A':
			s = fix.StatusFix
		case 'E':
			s = fix.StatusDR
		case 'N':
			continue
		default:
			continue
		}
		seen = true
		if s > best {
			best = s
		}
	}
	return best, seen
}

// decodeGNS parses a GNS sentence: the multi-constellation counterpart
// to GGA, carrying the same lat/lon/altitude/DGPS fields behind a
// per-constellation mode-indicator string instead of a single numeric
// quality field.
func decodeGNS(s Sentence, st *State) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	secOfDay, timeOK := parseHHMMSSFrac(s.field(0))
	if timeOK {
		if t, ok := st.combineTime(secOfDay); ok {
			f.Time = t
			mask |= fix.TimeSet
		}
		mask |= st.Cycle.RegisterFractionalTime("GNS", fracPart(secOfDay))
	}

	lat := parseLatLon(s.field(1), s.field(2), false)
	lon := parseLatLon(s.field(3), s.field(4), true)
	posMode := s.field(5)
	numSats := parseInt(s.field(6), -1)
	alt := parseFloat(s.field(8))
	geoid := parseFloat(s.field(9))
	dgpsAge := parseFloat(s.field(10))
	dgpsStation := parseInt(s.field(11), -1)

	status, ok := gnsModeToStatus(posMode)
	if !ok {
		return f, mask
	}
	f.Status = status
	mask |= fix.StatusSet

	if fix.IsSet(lat) && fix.IsSet(lon) {
		f.Lat, f.Lon = lat, lon
		mask |= fix.LatLonSet
	}
	if numSats >= 0 {
		f.SatellitesUsed = numSats
		mask |= fix.UsedSet
	}
	if fix.IsSet(alt) {
		f.AltMSL = alt
		f.GeoidSep = geoid
		mask |= fix.AltitudeSet
	}
	f.DGPSAge = dgpsAge
	f.DGPSStation = dgpsStation

	return f, mask
}

// decodeGLL parses a GLL sentence.
func decodeGLL(s Sentence, st *State) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	lat := parseLatLon(s.field(0), s.field(1), false)
	lon := parseLatLon(s.field(2), s.field(3), true)
	secOfDay, timeOK := parseHHMMSSFrac(s.field(4))
	status := s.field(5)

	if status == "A" && fix.IsSet(lat) && fix.IsSet(lon) {
		f.Lat, f.Lon = lat, lon
		mask |= fix.LatLonSet
	}
	if timeOK {
		if t, ok := st.combineTime(secOfDay); ok {
			f.Time = t
			mask |= fix.TimeSet
		}
		mask |= st.Cycle.RegisterFractionalTime("GLL", fracPart(secOfDay))
	}
	return f, mask
}

// decodeGSA parses a GSA sentence: fix mode plus up to 12 used-PRN
// slots, accumulated across sentences from different talkers until the
// talker repeats.
func decodeGSA(s Sentence, st *State, dop *fix.DOP) (fix.Fix, fix.Mask) {
	if st.gsaTalker == "" || s.Talker == st.gsaTalker {
		st.gsaSats = st.gsaSats[:0]
	}
	st.gsaTalker = s.Talker

	for i := 0; i < 12; i++ {
		if prn := parseInt(s.field(2+i), 0); prn > 0 {
			st.gsaSats = append(st.gsaSats, prn)
		}
	}

	fixModeField := parseInt(s.field(1), 1)
	mode := fix.ModeNoFix
	switch fixModeField {
	case 2:
		mode = fix.Mode2D
	case 3:
		mode = fix.Mode3D
	}

	pdop := parseFloat(s.field(14))
	hdop := parseFloat(s.field(15))
	vdop := parseFloat(s.field(16))
	if fix.IsSet(pdop) {
		dop.PDOP = pdop
	}
	if fix.IsSet(hdop) {
		dop.HDOP = hdop
	}
	if fix.IsSet(vdop) {
		dop.VDOP = vdop
	}

	f := fix.New()
	f.Mode = mode
	f.SatellitesUsed = len(st.gsaSats)
	st.lastSatsUsedCount = f.SatellitesUsed

	return f, fix.ModeSet | fix.UsedSet
}

// decodeGSV parses a GSV sentence, including the PRN-mapping table
// (satnum.go) and the bogus-azimuth heuristic.
func decodeGSV(s Sentence, st *State, sky *SkyView) (fix.Fix, fix.Mask) {
	totalParts := parseInt(s.field(0), 1)
	partNum := parseInt(s.field(1), 1)

	if partNum == 1 {
		sky.Sats = sky.Sats[:0]
	}

	for i, idx := 0, 3; i < 4; i, idx = i+1, idx+4 {
		prnField := s.field(idx)
		if prnField == "" {
			continue
		}
		satNum := parseInt(prnField, 0)
		el := parseFloat(s.field(idx + 1))
		az := parseFloat(s.field(idx + 2))
		snr := parseFloat(s.field(idx + 3))
		prn, gnssID, svID := mapSatNum(s.Talker, satNum)
		sky.Sats = append(sky.Sats, fix.Sat{
			PRN: prn, GNSSID: gnssID, SigID: svID,
			Elevation: el, Azimuth: az, SNR: snr,
		})
	}

	st.gsvTalker = s.Talker
	st.gsvPart = partNum
	st.gsvTotalParts = totalParts

	if partNum < totalParts {
		return fix.New(), fix.Online
	}

	allAzZero, anyElNonzero := true, false
	for _, sat := range sky.Sats {
		if fix.IsSet(sat.Azimuth) && sat.Azimuth != 0 {
			allAzZero = false
		}
		if fix.IsSet(sat.Elevation) && sat.Elevation != 0 {
			anyElNonzero = true
		}
	}
	if allAzZero && anyElNonzero {
		sky.Sats = sky.Sats[:0]
		return fix.New(), fix.Online
	}

	return fix.New(), fix.SatelliteSet
}

// MarkUsed flags the sky-view entries whose PRN appears in usedPRNs,
// cross-referencing GSA's used-satellite list onto GSV's sky view.
// Callers invoke this once both sentences for a cycle have been
// decoded.
func MarkUsed(sky *SkyView, usedPRNs []int) {
	used := make(map[int]bool, len(usedPRNs))
	for _, p := range usedPRNs {
		used[p] = true
	}
	for i := range sky.Sats {
		sky.Sats[i].Used = used[sky.Sats[i].PRN]
	}
}

// decodeVTG parses a VTG sentence.
func decodeVTG(s Sentence) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	track := parseFloat(s.field(0))
	speedKnots := parseFloat(s.field(4))

	if fix.IsSet(track) {
		f.Track = track
		mask |= fix.TrackSet
	}
	if fix.IsSet(speedKnots) {
		f.Speed = speedKnots * knotsToMPS
		mask |= fix.SpeedSet
	}
	return f, mask
}

// decodeGST parses a GST sentence.
func decodeGST(s Sentence) (fix.Fix, fix.Mask) {
	f := fix.New()
	f.Epx = parseFloat(s.field(5))
	f.Epy = parseFloat(s.field(6))
	f.Epv = parseFloat(s.field(7))
	return f, fix.ErrSet
}

// decodeZDA parses a ZDA sentence: the authoritative date source.
func decodeZDA(s Sentence, st *State) (fix.Fix, fix.Mask) {
	f := fix.New()
	var mask fix.Mask

	secOfDay, timeOK := parseHHMMSSFrac(s.field(0))
	day := parseInt(s.field(1), -1)
	month := parseInt(s.field(2), -1)
	year := parseInt(s.field(3), -1)

	if day > 0 && month > 0 && year > 0 {
		st.Century.ZDAYear(year)
		st.year, st.month, st.day = year, month, day
		st.dateKnown = true

		if timeOK {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			f.Time = float64(t.Unix()) + secOfDay
			mask |= fix.TimeSet
		}
	}
	if timeOK {
		mask |= st.Cycle.RegisterFractionalTime("ZDA", fracPart(secOfDay))
	}
	return f, mask
}

// decodeGBS parses a GBS sentence.
func decodeGBS(s Sentence) (fix.Fix, fix.Mask) {
	f := fix.New()
	f.Epx = parseFloat(s.field(1))
	f.Epy = parseFloat(s.field(2))
	f.Epv = parseFloat(s.field(3))
	return f, fix.ErrSet
}

func fracPart(v float64) float64 {
	return v - math.Floor(v)
}
