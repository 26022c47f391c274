// Package session ties the lexer, driver registry, and fix merge logic
// into the per-connection glue/state machine: one Dispatcher step per
// I/O-readiness or timer tick, advancing the lexer, switching drivers
// on a wire-type change, merging each parsed update into the running
// Fix, and detecting end-of-cycle.
package session

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heliosgnss/gnssd/driver"
	"github.com/heliosgnss/gnssd/fix"
	"github.com/heliosgnss/gnssd/lexer"
)

// redirectSniff bounds how many additional Generic-NMEA frames the
// probe sub-state will inspect for a vendor trigger sentence before
// giving up.
const redirectSniff = 3

// maxZeroLengthReads is how many consecutive empty reads from the
// device are tolerated before Step reports deactivation: after the first,
// Step carries on as usual and schedules nothing; the second makes Step
// report Deactivate. A non-empty Feed resets the count.
const maxZeroLengthReads = 2

// Config is the embedding application's knobs for one session: no CLI
// flags, env vars, or files — just this struct.
type Config struct {
	InitialBaud      int
	AllowAutobaud    bool
	ReadOnly         bool
	MinCycleOverride time.Duration

	// OnRawFrame, if set, is called with every frame the lexer yields
	// (including COMMENT and unrecognized-but-framed packets) before any
	// driver parsing happens — a raw_frame tap for clients that want
	// unprocessed packets.
	OnRawFrame func(wireType lexer.WireType, payload []byte)
}

// StepResult is everything one Dispatcher.Step call reports back:
// which fields changed, whether a displayable packet was produced, and
// whether the session needs a baud-ladder step or full deactivation.
type StepResult struct {
	Mask           fix.Mask
	Fix            fix.Fix
	FrameProduced  bool
	AdvanceBaud    bool
	Deactivate     bool
}

// Session is one connection's worth of state: the lexer, the driver
// context (NMEA/SiRF/TSIP per-protocol accumulators), the currently
// selected driver, and the bookkeeping this implies (observed_types,
// drivers-identified bits, sticky-driver memory).
type Session struct {
	ID     uuid.UUID
	Config Config
	Log    *logrus.Entry

	lexer *lexer.Lexer
	ctx   *driver.Context

	deviceType     int
	haveDeviceType bool
	stickyDriver   int
	haveSticky     bool

	badPackets    int
	baudIndex     int
	zeroReads     int
	observedTypes map[lexer.WireType]bool
	identified    map[int]bool

	probing    bool
	probeCount int

	gpsdata  fix.Fix
	subtype  string
	onlineAt time.Time
}

// NewSession constructs a Session with a fresh lexer and driver
// context, logging through log (a nil logger falls back to a
// discarding one so callers need not special-case tests).
func NewSession(cfg Config, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	id := uuid.New()
	return &Session{
		ID:            id,
		Config:        cfg,
		Log:           log.WithField("session", id.String()),
		lexer:         lexer.New(),
		ctx:           driver.NewContext(time.Now()),
		deviceType:    -1,
		stickyDriver:  -1,
		observedTypes: make(map[lexer.WireType]bool),
		identified:    make(map[int]bool),
		gpsdata:       fix.New(),
	}
}

// Fix returns the session's current merged Fix.
func (s *Session) Fix() fix.Fix { return s.gpsdata }

// Status returns the current fix status, the same value carried in
// Fix().Status, exposed separately since callers often want just this.
func (s *Session) Status() fix.Status { return s.gpsdata.Status }

// DOP returns the current dilution-of-precision set.
func (s *Session) DOP() fix.DOP { return *s.ctx.DOP }

// SkyView returns a copy of the currently known satellite sky view.
func (s *Session) SkyView() []fix.Sat {
	return append([]fix.Sat(nil), s.ctx.Sky.Sats...)
}

// SatellitesUsed returns the PRNs of satellites currently marked used in
// the solution, as distinct from Fix().SatellitesUsed's bare count.
func (s *Session) SatellitesUsed() []int {
	var used []int
	for _, sat := range s.ctx.Sky.Sats {
		if sat.Used {
			used = append(used, sat.PRN)
		}
	}
	return used
}

// Subtype returns the name of the driver that has identified this
// session's device, or "" if no driver has identified it yet.
func (s *Session) Subtype() string { return s.subtype }

// OnlineTimestamp returns the time the most recently recognized frame
// (of any kind, including COMMENT) was produced by the lexer.
func (s *Session) OnlineTimestamp() time.Time { return s.onlineAt }

// Feed appends freshly read bytes to the lexer's input, for the caller
// to do once per I/O-readiness notification before calling Step in a
// loop until it reports StatusNeedMore-equivalent (FrameProduced=false
// with no error condition).
func (s *Session) Feed(data []byte) {
	if len(data) == 0 {
		s.zeroReads++
		return
	}
	s.zeroReads = 0
	s.lexer.Write(data)
}

// Step runs the per-frame dispatch algorithm once: advance the lexer,
// handle baud/deactivation signals, switch drivers, parse, and merge.
// Call it repeatedly after Feed until it stops producing frames.
func (s *Session) Step() StepResult {
	if s.zeroReads >= maxZeroLengthReads {
		s.Log.Warn("deactivating session after repeated zero-length reads")
		return StepResult{Deactivate: true}
	}

	// 1. Call lexer.step() consuming any available bytes.
	frame, status := s.lexer.NextFrame()

	// 2. BAD frame handling: step the baud ladder after repeated bad packets.
	if status == lexer.StatusBad {
		s.badPackets++
		if s.badPackets > 1 && s.Config.AllowAutobaud {
			s.baudIndex = (s.baudIndex + 1) % len(driver.BaudLadder)
			s.Log.WithField("baud", driver.BaudLadder[s.baudIndex]).Info("advancing baud ladder")
			return StepResult{AdvanceBaud: true}
		}
		return StepResult{}
	}

	// 3. Incomplete/no frame: caller must feed more bytes.
	if status == lexer.StatusNeedMore || frame == nil {
		return StepResult{}
	}

	s.onlineAt = time.Now()

	if s.Config.OnRawFrame != nil {
		s.Config.OnRawFrame(frame.Type, frame.Payload)
	}

	// 4. COMMENT frames: emit via logging, ONLINE only.
	if frame.Type == lexer.WireComment {
		s.Log.WithField("comment", string(frame.Payload)).Debug("log-replay comment")
		return StepResult{Mask: fix.Online, FrameProduced: true}
	}

	// 5. Record observed type, then resolve the descriptor for this
	// frame's wire type directly: NoAutoconf drivers (RTCM2/RTCM3/AIS,
	// auxiliary correction/traffic streams) are always parsed but never
	// allowed to claim device identity, so they bypass maybeSwitchDriver
	// entirely and deviceType is left to whatever identifies the actual
	// receiver.
	s.observedTypes[frame.Type] = true
	idx, ok := driver.LookupByTag(frame.Type)
	if !ok {
		// No driver claims this tag at all; nothing further to do.
		return StepResult{FrameProduced: true}
	}
	d := driver.Registry[idx]
	if !d.NoAutoconf {
		s.maybeSwitchDriver(frame, idx)
	}

	// Probe sub-state: while parked on Generic NMEA, watch a bounded
	// number of frames for a vendor trigger sentence.
	if d.Name == "Generic NMEA" && frame.Type == lexer.WireNMEA {
		s.runProbe(frame)
	}

	// 6. Parse the frame with the selected driver.
	if d.ParsePacket == nil {
		return StepResult{FrameProduced: true, Mask: fix.Online}
	}
	newFix, mask := d.ParsePacket(s.ctx, frame.Payload)

	// 7. First successful identification fires identified/init_query/configure.
	if !s.identified[idx] {
		s.identified[idx] = true
		if !d.NoAutoconf {
			s.subtype = d.Name
		}
		s.fireEvent(d, driver.EventIdentified)
		if d.InitQuery != nil {
			d.InitQuery(s.ctx)
		}
		s.fireEvent(d, driver.EventConfigure)
	}

	// 8. Merge newdata into gpsdata per the change-mask.
	old := s.gpsdata
	s.gpsdata = fix.Merge(s.gpsdata, mask, newFix)

	// Fix synthesis: fill in the sky-geometry DOP slots still NaN after
	// the merge, then derive speed/climb/error-estimate fields from the
	// old/new fix pair and the (now current) DOP set.
	if fix.FillDOP(s.ctx.Sky.Sats, s.ctx.DOP) {
		mask |= fix.DopSet
	}
	s.gpsdata = fix.ApplyErrorModel(old, s.gpsdata, *s.ctx.DOP)
	mask |= fix.ErrSet

	// 9. End-of-cycle detection (delegated to nmea.CycleDetector for
	// NMEA-derived frames; binary protocols report their own cycle via
	// their decoder's mask in a future extension, so only NMEA
	// contributes ClearIs/Report today).
	if frame.Type == lexer.WireNMEA {
		sTag := s.currentNMEATag(frame)
		reportMask := s.ctx.NMEA.Cycle.CheckReport(sTag)
		mask |= reportMask
	}

	// Revert to the remembered sticky driver once this frame's parse is
	// done, if the prior driver was sticky and the new one is not.
	if s.haveSticky {
		s.deviceType = s.stickyDriver
		s.haveSticky = false
	}

	// 10. Return the mask plus whether a displayable packet was produced.
	return StepResult{Mask: mask, Fix: s.gpsdata, FrameProduced: true}
}

func (s *Session) currentNMEATag(frame *lexer.Frame) string {
	raw := string(frame.Payload)
	if len(raw) < 1 {
		return ""
	}
	// Mirrors nmea.Split's tag extraction without importing it twice;
	// Decode already ran this, but CheckReport only needs the tag.
	body := raw
	if body[0] == '$' || body[0] == '!' {
		body = body[1:]
	}
	for i, c := range body {
		if c == ',' {
			body = body[:i]
			break
		}
	}
	if len(body) >= 5 {
		return body[2:]
	}
	return body
}

// maybeSwitchDriver switches the active driver to idx (already resolved
// from frame's wire type by the caller, and never called for a
// NoAutoconf descriptor): if device_type is unset, or the frame's tag
// doesn't match the current driver's tag and the current driver isn't a
// dependent-NMEA binary driver, the registry index becomes the new
// device_type. A sticky prior driver is remembered so control methods
// stay reachable once this frame's parse completes.
func (s *Session) maybeSwitchDriver(frame *lexer.Frame, idx int) {
	if s.haveDeviceType {
		cur := driver.Registry[s.deviceType]
		if cur.PacketType == frame.Type {
			return
		}
		// A binary driver that also accepts NMEA via its own mode
		// switcher (none in this registry yet) would be excluded here;
		// every current entry's PacketType is a single fixed tag, so
		// any mismatch means a real switch.
	}

	if s.haveDeviceType {
		prior := driver.Registry[s.deviceType]
		next := driver.Registry[idx]
		if prior.Sticky && !next.Sticky {
			s.stickyDriver = s.deviceType
			s.haveSticky = true
		}
		s.Log.WithFields(logrus.Fields{
			"from": prior.Name,
			"to":   next.Name,
		}).Info("driver switch")
		s.fireEvent(next, driver.EventDriverSwitch)
	}

	s.deviceType = idx
	s.haveDeviceType = true
}

// runProbe implements the REDIRECT_SNIFF sub-state: while parked on
// Generic NMEA, inspect up to redirectSniff additional frames for a
// vendor trigger sentence and switch drivers on a match.
func (s *Session) runProbe(frame *lexer.Frame) {
	name, ok := driver.ProbeTrigger(string(frame.Payload))
	if ok {
		if idx, found := driver.LookupByName(name); found {
			s.Log.WithField("trigger", name).Info("probe matched vendor trigger sentence")
			s.fireEvent(driver.Registry[idx], driver.EventTriggerMatch)
			s.deviceType = idx
			s.probing = false
			s.probeCount = 0
			return
		}
	}
	s.probing = true
	s.probeCount++
	if s.probeCount >= redirectSniff {
		s.probing = false
		s.probeCount = 0
	}
}

func (s *Session) fireEvent(d driver.Descriptor, ev driver.Event) {
	if d.EventHook != nil {
		d.EventHook(s.ctx, ev)
	}
}
