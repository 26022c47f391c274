// Package nmea decodes NMEA 0183 / NMEA 2000-bridge sentence bodies
// already framed and checksum-verified by the lexer, translating each
// supported tag into fix.Mask-tagged updates.
package nmea

import (
	"time"

	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/gtime"
)

// State is the per-session accumulator stateful NMEA decoding needs
// across sentences: partial date handling, GGA latch detection, and
// the GSA/GSV multi-sentence accumulators.
type State struct {
	Century *gtime.CenturyHint

	lastGGATime   string
	lastGGATalker string

	year, month, day int
	dateKnown         bool // true once RMC or ZDA has supplied a year this session

	gsaTalker         string
	gsaSats           []int // accumulated PRNs across GSA sentences this cycle
	lastSatsUsedCount int

	gsvTalker     string
	gsvPart       int
	gsvTotalParts int

	Cycle *CycleDetector
}

// UsedPRNs returns the satellite PRNs accumulated from GSA sentences
// this cycle, for cross-referencing onto the GSV sky view via MarkUsed.
func (st *State) UsedPRNs() []int {
	return st.gsaSats
}

// combineTime folds GGA/GLL's bare time-of-day onto the most recently
// known calendar date (from RMC or ZDA). GGA and GLL never carry a date
// field themselves.
func (st *State) combineTime(secOfDay float64) (float64, bool) {
	if !st.dateKnown {
		return 0, false
	}
	t := time.Date(st.year, time.Month(st.month), st.day, 0, 0, 0, 0, time.UTC)
	return float64(t.Unix()) + secOfDay, true
}

// NewState returns a freshly initialized State, seeding the century
// hint from the process start time.
func NewState(startTime time.Time) *State {
	return &State{
		Century: gtime.NewCenturyHint(startTime),
		Cycle:   NewCycleDetector(),
	}
}

// SkyView accumulates GSV satellite records across a multi-sentence
// group; the parser zeroes it on the first part of a new group and the
// dispatcher reads it once the group completes.
type SkyView struct {
	Sats []fix.Sat
}
