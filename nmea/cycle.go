package nmea

import (
	"math"

	"github.com/heliosgnss/gnssd/fix"
)

// fracTimeSlopSeconds is the threshold a fractional-second value must
// move by, between latched sentences, to be judged a new reporting
// cycle.
const fracTimeSlopSeconds = 0.010

// CycleDetector implements an end-of-cycle heuristic: most devices
// never declare their reporting cycle explicitly, so cycle boundaries
// are inferred from how each sentence's fractional-second field moves
// relative to the previously latched one.
type CycleDetector struct {
	haveFrac      bool
	thisFracTime  float64
	lastFracTime  float64
	currentEnder  string
	cycleEnders   map[string]bool
}

// NewCycleDetector returns a detector with no latched sentence yet.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{cycleEnders: make(map[string]bool)}
}

// RegisterFractionalTime records the fractional-second value carried by
// tag's timestamp field. If it has moved more than fracTimeSlopSeconds
// since the last registration, tag is a cycle starter: ClearIs is set in
// the returned mask and the previously-current sentence (the last one
// registered before tag) is recorded as this talker's cycle ender.
func (c *CycleDetector) RegisterFractionalTime(tag string, fracSeconds float64) fix.Mask {
	var mask fix.Mask
	if c.haveFrac {
		if math.Abs(fracSeconds-c.thisFracTime) > fracTimeSlopSeconds {
			mask |= fix.ClearIs
			if c.currentEnder != "" {
				c.cycleEnders[c.currentEnder] = true
			}
		}
	}
	c.currentEnder = tag
	c.lastFracTime = c.thisFracTime
	c.thisFracTime = fracSeconds
	c.haveFrac = true
	return mask
}

// ContinueCycle moves the current cycle-ender forward to tag, for
// sentences flagged cycle-continue in the table (e.g. DBT) that should
// not themselves start a new cycle but do extend it.
func (c *CycleDetector) ContinueCycle(tag string) {
	if c.currentEnder != "" {
		c.currentEnder = tag
	}
}

// CheckReport returns Report if tag is a sentence this talker has
// previously learned ends a cycle.
func (c *CycleDetector) CheckReport(tag string) fix.Mask {
	if c.cycleEnders[tag] {
		return fix.Report
	}
	return 0
}
