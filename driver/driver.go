// Package driver holds the static registry of wire-format driver
// descriptors: one entry per WireType, each naming its framing tag,
// behavioral flags, and the collaborator methods the dispatcher may
// call (parser, probe, speed/mode/rate switchers, control channel, time
// offset). Descriptors refer to each other only by their position in
// the registry, never by pointer, so the table itself has no
// import-cycle risk with session.
package driver

import (
	"strings"
	"time"

	"github.com/heliosgnss/gnssd/ais"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/lexer"
	"github.com/heliosgnss/gnssd/nmea"
	"github.com/heliosgnss/gnssd/rtcm2"
	"github.com/heliosgnss/gnssd/rtcm3"
	"github.com/heliosgnss/gnssd/sirf"
	"github.com/heliosgnss/gnssd/tsip"
	"github.com/heliosgnss/gnssd/ubx"
)

// Event is one of the lifecycle notifications a driver's EventHook may
// receive.
type Event int

const (
	EventWakeup Event = iota
	EventProbeSubtype
	EventIdentified
	EventConfigure
	EventDriverSwitch
	EventReactivate
	EventDeactivate
	EventTriggerMatch
)

func (e Event) String() string {
	switch e {
	case EventWakeup:
		return "wakeup"
	case EventProbeSubtype:
		return "probe_subtype"
	case EventIdentified:
		return "identified"
	case EventConfigure:
		return "configure"
	case EventDriverSwitch:
		return "driver_switch"
	case EventReactivate:
		return "reactivate"
	case EventDeactivate:
		return "deactivate"
	case EventTriggerMatch:
		return "triggermatch"
	default:
		return "unknown"
	}
}

// Context bundles the per-session stateful accumulators a descriptor's
// ParsePacket needs: the NMEA cycle/date/GSA/GSV state, the SiRF/TSIP
// epoch-learning state, the shared sky view GSV fills in, and the DOP
// slot GSA/driver-computed DOPs write through. Session owns and
// constructs one Context per connection; driver only consumes it.
type Context struct {
	NMEA *nmea.State
	Sky  *nmea.SkyView
	DOP  *fix.DOP
	SiRF *sirf.State
	TSIP *tsip.State

	AIS *ais.Assembler
}

// NewContext returns a Context with every sub-state freshly initialized,
// seeding the NMEA century hint from startTime.
func NewContext(startTime time.Time) *Context {
	dop := fix.NewDOP()
	return &Context{
		NMEA: nmea.NewState(startTime),
		Sky:  &nmea.SkyView{},
		DOP:  &dop,
		SiRF: sirf.NewState(),
		TSIP: tsip.NewState(),
		AIS:  ais.NewAssembler(),
	}
}

// Descriptor is one entry of the static driver registry. Every function field may be nil; a nil
// ParsePacket marks a framing-only stub (the lexer can recognize the
// wire type but no content decoder has been written for it yet).
type Descriptor struct {
	Name          string
	PacketType    lexer.WireType
	Sticky        bool
	NoAutoconf    bool
	TriggerString string
	MinCycle      time.Duration
	Channels      int

	// ProbeDetect inspects a just-parsed generic-NMEA frame's payload
	// and reports whether it is this driver's characteristic trigger
	// sentence (e.g. "$PASHR" for the Ashtech-family driver).
	ProbeDetect func(payload []byte) bool

	// ParsePacket decodes payload (the lexer's raw Frame.Payload) using
	// ctx's per-protocol state, returning the same (fix.Fix, fix.Mask)
	// shape every protocol decoder in this module produces.
	ParsePacket func(ctx *Context, payload []byte) (fix.Fix, fix.Mask)

	InitQuery     func(ctx *Context) []byte
	EventHook     func(ctx *Context, ev Event)
	SpeedSwitcher func(bps int, parity byte, stopbits int) bool
	ModeSwitcher  func(nmeaMode bool)
	RateSwitcher  func(hz float64) bool
	ControlSend   func(payload []byte) error
	TimeOffset    func(ctx *Context) (seconds float64, ok bool)
}

// BaudLadder is the fixed autobaud sequence the dispatcher steps
// through on repeated bad packets from a tty.
var BaudLadder = [...]int{4800, 9600, 19200, 38400, 57600, 115200, 230400}

// NMEATriggers maps a prefix of a proprietary sentence's Tag (as
// nmea.Split would return it, e.g. "PGRME" for the "PGRM" family) to the
// driver name it identifies, used by the Generic NMEA probe sub-state.
var NMEATriggers = map[string]string{
	"PSRFEPE": "SiRF",
	"PASHR":   "Ashtech",
	"PSTI":    "SkyTraq",
	"PMTK":    "MediaTek",
	"PGRM":    "Garmin",
}

// Registry is the static, indexable list of driver descriptors. Index
// order is stable and is what "refer to each other only by index"
// means in practice — nothing here holds a *Descriptor to another
// entry.
var Registry = []Descriptor{
	{
		Name:       "Generic NMEA",
		PacketType: lexer.WireNMEA,
		MinCycle:   time.Second,
		Channels:   12,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			s := nmea.Split(string(payload))
			f, mask := nmea.Decode(s, ctx.NMEA, ctx.Sky, ctx.DOP)
			nmea.MarkUsed(ctx.Sky, ctx.NMEA.UsedPRNs())
			return f, mask
		},
	},
	{
		Name:       "SiRF binary",
		PacketType: lexer.WireSiRF,
		Sticky:     true,
		Channels:   12,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			r := sirf.Decode(payload, ctx.SiRF)
			if r.Leap != nil {
				ctx.SiRF.SetLeapSeconds(r.Leap.Seconds)
			}
			return r.Fix, r.Mask
		},
	},
	{
		Name:       "Trimble TSIP",
		PacketType: lexer.WireTSIP,
		Sticky:     true,
		Channels:   12,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			r := tsip.Decode(payload, ctx.TSIP)
			return r.Fix, r.Mask
		},
	},
	{
		Name:       "RTCM104V2",
		PacketType: lexer.WireRTCM2,
		NoAutoconf: true,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			if _, ok := rtcm2.Decode(payload); ok {
				return fix.Fix{}, fix.Online
			}
			return fix.Fix{}, 0
		},
	},
	{
		Name:       "RTCM104V3",
		PacketType: lexer.WireRTCM3,
		NoAutoconf: true,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			if _, ok := rtcm3.Decode(payload); ok {
				return fix.Fix{}, fix.Online
			}
			return fix.Fix{}, 0
		},
	},
	{
		Name:       "AIS",
		PacketType: lexer.WireAIS,
		NoAutoconf: true,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			s, err := ais.ParseSentence(string(payload))
			if err != nil {
				return fix.Fix{}, 0
			}
			if _, _, done, err := ctx.AIS.Feed(s); err != nil || !done {
				return fix.Fix{}, 0
			}
			return fix.Fix{}, fix.Online
		},
	},
	{
		Name:       "uBlox UBX",
		PacketType: lexer.WireUBX,
		Sticky:     true,
		Channels:   32,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			r := ubx.Decode(payload)
			if r.DOP != nil {
				*ctx.DOP = *r.DOP
			}
			return r.Fix, r.Mask
		},
	},
	// Stub entries: the lexer can frame these wire types
	// but no vendor-specific content decoder has been written; they
	// parse as an online-only acknowledgement, same as an unrecognized
	// but well-framed SiRF/TSIP message ID.
	{
		Name:       "EverMore",
		PacketType: lexer.WireEverMore,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			return fix.Fix{}, fix.Online
		},
	},
	{
		Name:       "Zodiac",
		PacketType: lexer.WireZodiac,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			return fix.Fix{}, fix.Online
		},
	},
	{
		Name:       "Garmin Text",
		PacketType: lexer.WireGarminText,
		ParsePacket: func(ctx *Context, payload []byte) (fix.Fix, fix.Mask) {
			return fix.Fix{}, fix.Online
		},
	},
}

// byTag is built once at init for the dispatcher's O(1) "tag -> driver"
// lookup.
var byTag map[lexer.WireType]int

func init() {
	byTag = make(map[lexer.WireType]int, len(Registry))
	for i, d := range Registry {
		if _, exists := byTag[d.PacketType]; !exists {
			byTag[d.PacketType] = i
		}
	}
}

// LookupByTag returns the registry index of the driver whose
// PacketType matches tag, and false if no driver claims that tag.
func LookupByTag(tag lexer.WireType) (int, bool) {
	i, ok := byTag[tag]
	return i, ok
}

// LookupByName returns the registry index of the driver named name.
func LookupByName(name string) (int, bool) {
	for i, d := range Registry {
		if d.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ProbeTrigger checks an NMEA frame's tag against the NMEATriggers
// prefixes and returns the driver name it identifies, if any.
func ProbeTrigger(raw string) (string, bool) {
	s := nmea.Split(raw)
	for prefix, name := range NMEATriggers {
		if strings.HasPrefix(s.Tag, prefix) {
			return name, true
		}
	}
	return "", false
}
