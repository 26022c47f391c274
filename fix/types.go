package fix

import "math"

// NaN is the "not available" sentinel used for every numeric Fix/DOP
// field.
var NaN = math.NaN()

// IsSet reports whether v carries a real value rather than the NaN
// sentinel.
func IsSet(v float64) bool {
	return !math.IsNaN(v)
}

// Mode is the fix quality/dimensionality, ordered so that comparisons
// like "mode would downgrade" are plain integer comparisons.
type Mode int

const (
	ModeNoFix Mode = iota
	Mode2D
	Mode3D
)

// Status is the RMC/GGA-derived fix status enum.
type Status int

const (
	StatusNoFix Status = iota
	StatusFix
	StatusDGPS
	StatusRTKFloat
	StatusRTKFixed
	StatusDR
)

// Sat is one sky-view entry. Elevation and
// Azimuth carry NaN when unknown rather than 0, so a legitimately
// zero-azimuth satellite is distinguishable from an absent one.
type Sat struct {
	PRN       int
	GNSSID    int
	SigID     int
	Elevation float64
	Azimuth   float64
	SNR       float64
	Used      bool
}

// MaxChannels bounds the sky view length.
const MaxChannels = 80

// DOP is the dilution-of-precision set. Device-reported values take
// precedence over the solver's computed ones; FillDOP only fills slots
// that are still NaN.
type DOP struct {
	XDOP, YDOP, HDOP, VDOP, PDOP, TDOP, GDOP float64
}

// NewDOP returns a DOP set with every slot unset.
func NewDOP() DOP {
	return DOP{NaN, NaN, NaN, NaN, NaN, NaN, NaN}
}

// Fix is the position/velocity/time solution the core maintains per
// session. Every field defaults to the NaN sentinel via New.
type Fix struct {
	Time    float64 // Unix seconds; fractional part carries sub-second precision
	Mode    Mode
	Status  Status
	Lat     float64
	Lon     float64
	AltMSL  float64
	AltHAE  float64
	Track   float64
	Speed   float64
	Climb   float64
	Ept     float64
	Epx     float64
	Epy     float64
	Epv     float64
	Eps     float64
	Epc     float64
	Epd     float64
	MagVar  float64
	GeoidSep   float64
	DGPSAge    float64
	DGPSStation int

	SatellitesUsed int
}

// New returns a Fix with every numeric field set to the NaN sentinel and
// Mode/Status at their zero (NoFix) values.
func New() Fix {
	return Fix{
		Time: NaN, Lat: NaN, Lon: NaN, AltMSL: NaN, AltHAE: NaN,
		Track: NaN, Speed: NaN, Climb: NaN,
		Ept: NaN, Epx: NaN, Epy: NaN, Epv: NaN, Eps: NaN, Epc: NaN, Epd: NaN,
		MagVar: NaN, GeoidSep: NaN, DGPSAge: NaN,
		DGPSStation: -1,
	}
}
