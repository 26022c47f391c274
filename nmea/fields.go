package nmea

import (
	"math"
	"strconv"

	"github.com/heliosgnss/gnssd/fix"
)

// parseFloat returns fix.NaN for an empty or malformed field rather than
// an error: a malformed sentence field degrades a fix, it never aborts
// decoding.
func parseFloat(s string) float64 {
	if s == "" {
		return fix.NaN
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fix.NaN
	}
	return v
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// parseLatLon converts an NMEA DDMM.MMMM / DDDMM.MMMM coordinate plus a
// hemisphere letter into signed decimal degrees.
func parseLatLon(coord, hemi string, lonField bool) float64 {
	if coord == "" {
		return fix.NaN
	}
	v, err := strconv.ParseFloat(coord, 64)
	if err != nil {
		return fix.NaN
	}
	deg := math.Floor(v / 100)
	min := v - deg*100
	result := deg + min/60
	if hemi == "S" || hemi == "W" {
		result = -result
	}
	_ = lonField
	return result
}

// parseHHMMSSFrac converts an hhmmss.ss time field into seconds since
// midnight, fractional part included; callers take the fractional-second
// remainder the cycle detector latches onto with fracPart.
func parseHHMMSSFrac(s string) (secondsOfDay float64, ok bool) {
	if len(s) < 6 {
		return 0, false
	}
	hh := parseFloat(s[0:2])
	mm := parseFloat(s[2:4])
	ss := parseFloat(s[4:])
	if math.IsNaN(hh) || math.IsNaN(mm) || math.IsNaN(ss) {
		return 0, false
	}
	return hh*3600 + mm*60 + ss, true
}

const knotsToMPS = 0.51444444
