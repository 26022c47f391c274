// Package fix synthesizes the session's running Fix from the
// change-masked updates each sentence/message decoder produces: merging
// with mode-downgrade suppression, the error model, and the DOP solver.
package fix

// Mask is a bitset naming which Fix fields (or session-level events) a
// decoder call touched. Dispatch, merge, and cycle detection all read
// and write it.
type Mask uint32

const (
	TimeSet Mask = 1 << iota
	LatLonSet
	AltitudeSet
	SpeedSet
	TrackSet
	ClimbSet
	StatusSet
	ModeSet
	DopSet
	UsedSet
	SatelliteSet // sky view changed (GSV accumulation completed)
	ErrSet       // epx/epy/epv/epd/ept recomputed
	MagneticVarSet
	DeviceIDSet
	// ClearIs marks a cycle-starter sentence: the dispatcher should treat
	// the sentence before this one as the end of the previous cycle.
	ClearIs
	// Report is set by the dispatcher, not a decoder, once end-of-cycle
	// detection fires.
	Report
	// Online means a frame was recognized and parsed but carried no
	// fix-relevant fields (comments, unknown-but-framed packets).
	Online
)

// Has reports whether every bit in want is set in m.
func (m Mask) Has(want Mask) bool {
	return m&want == want
}

// Any reports whether any bit in want is set in m.
func (m Mask) Any(want Mask) bool {
	return m&want != 0
}
