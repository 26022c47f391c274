package fix

import "math"

// H_UERE/V_UERE are the user equivalent range error constants the
// horizontal/vertical error defaults scale DOP by.
const (
	hUERE2D   = 15.0
	hUEREDGPS = 3.75
	vUERE2D   = 23.0
	vUEREDGPS = 5.75
)

// ApplyErrorModel fills in speed, climb, and the ep* error estimates that
// weren't directly reported this cycle, using old as the previous fix
// and dop as the current DOP set.
func ApplyErrorModel(old, cur Fix, dop DOP) Fix {
	result := cur

	dt := cur.Time - old.Time
	dtValid := IsSet(cur.Time) && IsSet(old.Time) && dt != 0

	if !IsSet(result.Speed) && dtValid && IsSet(old.Lat) && IsSet(cur.Lat) {
		d := EarthDistance(old.Lat, old.Lon, cur.Lat, cur.Lon)
		result.Speed = d / dt
	}
	if !IsSet(result.Climb) && dtValid && IsSet(old.AltMSL) && IsSet(cur.AltMSL) {
		result.Climb = (cur.AltMSL - old.AltMSL) / dt
	}
	if !IsSet(result.Ept) {
		result.Ept = 0.005
	}

	hUERE, vUERE := hUERE2D, vUERE2D
	switch cur.Status {
	case StatusDGPS, StatusRTKFloat, StatusRTKFixed:
		hUERE, vUERE = hUEREDGPS, vUEREDGPS
	}

	if !IsSet(result.Epx) && IsSet(dop.XDOP) {
		result.Epx = dop.XDOP * hUERE
	}
	if !IsSet(result.Epy) && IsSet(dop.YDOP) {
		result.Epy = dop.YDOP * hUERE
	}
	if !IsSet(result.Epv) && IsSet(dop.VDOP) {
		result.Epv = dop.VDOP * vUERE
	}
	if !IsSet(result.Epd) {
		result.Epd = computeEpd(old, cur, result.Epx, result.Epy)
	}

	return result
}

// emix returns whichever of |x|, |y| is larger when both are finite, or
// whichever one is finite otherwise; NaN when neither is.
func emix(x, y float64) float64 {
	xOK, yOK := IsSet(x), IsSet(y)
	switch {
	case xOK && yOK:
		return math.Max(math.Abs(x), math.Abs(y))
	case xOK:
		return math.Abs(x)
	case yOK:
		return math.Abs(y)
	default:
		return NaN
	}
}

func computeEpd(old, cur Fix, epx, epy float64) float64 {
	e := emix(epx, epy)
	if !IsSet(e) || !IsSet(old.Lat) || !IsSet(cur.Lat) {
		return NaN
	}
	adj := EarthDistance(old.Lat, old.Lon, cur.Lat, cur.Lon)
	if adj <= e {
		return NaN
	}
	radians := 2 * math.Asin(e/math.Hypot(adj, e))
	return radians * 180 / math.Pi
}
