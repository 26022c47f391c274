// Package gtime handles the two time representations the core has to
// reconcile: NMEA's two-digit-year civil date and the GPS week/TOW pairs
// binary protocols report, including the century and week-rollover
// heuristics gpsd-style drivers apply to both.
package gtime

import "time"

// GPSEpoch is the Unix time of the GPS epoch, 1980-01-06T00:00:00Z.
const GPSEpoch = 315964800

// SecondsPerWeek is the number of seconds in one GPS week.
const SecondsPerWeek = 604800

// CenturyHint tracks the rolling two-digit-year expansion NMEA RMC/GGA/GLL
// sentences need, plus the ZDA override and 99→00 rollover bump.
type CenturyHint struct {
	century  int  // e.g. 2000
	lastYY   int  // last two-digit year seen, -1 if none yet
	zdaFixed bool // true once a ZDA sentence has supplied an authoritative year
}

// NewCenturyHint seeds the hint from the process start time, the
// default taken from the system clock when nothing better is known.
func NewCenturyHint(startTime time.Time) *CenturyHint {
	return &CenturyHint{
		century: (startTime.Year() / 100) * 100,
		lastYY:  -1,
	}
}

// ExpandRMCYear expands a two-digit RMC/GGA year into a four-digit one,
// applying the 99→00 rollover bump and the 2080 wrap.
// The 99→00 bump still applies after ZDA has supplied a year; each
// ZDAYear call re-seeds the century from ZDA's four-digit year.
func (c *CenturyHint) ExpandRMCYear(yy int) int {
	if c.lastYY == 99 && yy == 0 {
		c.century += 100
	}
	c.lastYY = yy

	year := c.century + yy
	if year >= 2080 {
		year -= 100
	}
	return year
}

// ZDAYear records an authoritative four-digit year from a ZDA sentence
// and fixes the century hint to it going forward.
func (c *CenturyHint) ZDAYear(year int) {
	c.century = (year / 100) * 100
	c.lastYY = year % 100
	c.zdaFixed = true
}

// ZDAFixed reports whether a ZDA sentence has already supplied an
// authoritative year this session.
func (c *CenturyHint) ZDAFixed() bool {
	return c.zdaFixed
}

// WeekTOWToUnix converts a GPS week number and time-of-week (seconds)
// into a Unix timestamp, applying the current leap-second offset. It
// does not itself resolve the 10-bit week rollover; callers pass an
// already-unrolled absolute week number (see ResolveRollover).
func WeekTOWToUnix(week int, tow, leapSeconds float64) float64 {
	return float64(GPSEpoch) + float64(week)*SecondsPerWeek + tow - leapSeconds
}

// ResolveRollover unrolls a 10-bit (mod-1024) GPS week number relative to
// a reference Unix time, by choosing the candidate absolute week that
// lands closest to the reference time. This is the ordinary case; the
// "Rollover of Doom" consistency check (RolloverOfDoom) additionally
// flags a session whose reported leap-second count is inconsistent with
// the era implied by the reference time.
func ResolveRollover(week10Bit int, referenceUnix float64) int {
	const rolloverWeeks = 1024
	refWeek := int((referenceUnix - GPSEpoch) / SecondsPerWeek)
	epoch := (refWeek / rolloverWeeks) * rolloverWeeks
	candidate := epoch + week10Bit

	best := candidate
	bestDelta := absInt(candidate - refWeek)
	for _, c := range []int{candidate - rolloverWeeks, candidate + rolloverWeeks} {
		if d := absInt(c - refWeek); d < bestDelta {
			best, bestDelta = c, d
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CivilToUnix converts a UTC calendar date/time (as binary protocols like
// SiRF's 0x29/0x34 report it, with a two-digit-safe four-digit year, a
// 1-based month, and no location info since UTC is assumed) to a Unix
// timestamp.
func CivilToUnix(year, month, day, hour, minute, second int) float64 {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return float64(t.Unix())
}

// LeapSecondEntry is one row of the built-in table used by
// RolloverOfDoom to sanity-check a device-reported leap-second count
// against the era a system clock reading implies.
type LeapSecondEntry struct {
	EffectiveUnix int64
	LeapSeconds   int
}

// LeapSecondTable is a minimal, monotonically increasing table of
// historical GPS-UTC leap-second introductions. It is intentionally not
// exhaustive of every leap second ever inserted before GPS existed to
// count them (none are, by construction); it only needs entries from the
// GPS epoch onward, since that is the range RolloverOfDoom checks
// against.
var LeapSecondTable = []LeapSecondEntry{
	{EffectiveUnix: 315964800, LeapSeconds: 0},
	{EffectiveUnix: 362793600, LeapSeconds: 1},  // 1981-07-01
	{EffectiveUnix: 820454400, LeapSeconds: 11}, // 1996-01-01
	{EffectiveUnix: 1136073600, LeapSeconds: 14}, // 2006-01-01
	{EffectiveUnix: 1230768000, LeapSeconds: 15}, // 2009-01-01
	{EffectiveUnix: 1341100800, LeapSeconds: 16}, // 2012-07-01
	{EffectiveUnix: 1435708800, LeapSeconds: 17}, // 2015-07-01
	{EffectiveUnix: 1483228800, LeapSeconds: 18}, // 2017-01-01
}

// expectedLeapSeconds returns the leap-second count the table says should
// be in force at a given Unix time.
func expectedLeapSeconds(unixTime int64) int {
	got := 0
	for _, e := range LeapSecondTable {
		if unixTime >= e.EffectiveUnix {
			got = e.LeapSeconds
		}
	}
	return got
}

// RolloverOfDoom checks for a week-rollover-clobbered device clock:
// given the system clock's current Unix time (used only to bound the
// plausible era) and a device-reported leap-second count, it reports
// whether that count is inconsistent with any era the table covers.
func RolloverOfDoom(systemUnix int64, deviceLeapSeconds int) bool {
	if len(LeapSecondTable) == 0 {
		return false
	}
	first := LeapSecondTable[0].EffectiveUnix
	last := LeapSecondTable[len(LeapSecondTable)-1].EffectiveUnix
	if systemUnix < first || systemUnix > last+SecondsPerWeek*rolloverWeeksOfDoom {
		// Outside the table's covered span; nothing to check against.
		return false
	}
	return deviceLeapSeconds != expectedLeapSeconds(systemUnix)
}

const rolloverWeeksOfDoom = 1024
