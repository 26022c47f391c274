package nmea

import (
	"testing"
	"time"

	"github.com/heliosgnss/gnssd/fix"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

// S1 — Basic NMEA GGA.
func TestDecodeGGAScenarioS1(t *testing.T) {
	st := newTestState()
	raw := "$GPGGA,123519,4807.038,N,01131.324,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
	s := Split(raw)
	require.Equal(t, "GP", s.Talker)
	require.Equal(t, "GGA", s.Tag)

	f, mask := Decode(s, st, &SkyView{}, &fix.DOP{})
	require.True(t, mask.Has(fix.LatLonSet))
	require.True(t, mask.Has(fix.AltitudeSet))
	require.True(t, mask.Has(fix.StatusSet))
	require.True(t, mask.Has(fix.UsedSet))

	require.InDelta(t, 48.1173, f.Lat, 1e-3)
	require.InDelta(t, 11.5220, f.Lon, 1e-3)
	require.InDelta(t, 545.4, f.AltMSL, 1e-6)
	require.InDelta(t, 46.9, f.GeoidSep, 1e-6)
	require.Equal(t, 8, f.SatellitesUsed)
	require.Equal(t, fix.StatusFix, f.Status)
}

// S2 — Garbage + RMC.
func TestDecodeRMCScenarioS2(t *testing.T) {
	// The scenario's literal date (19 Nov 1994) predates this test
	// session's real clock, so the century hint is seeded as if the
	// session itself started in 1994 — the default century hint is
	// taken from the system clock at process start, not from any
	// sentence field.
	st := NewState(time.Date(1994, 1, 1, 0, 0, 0, 0, time.UTC))
	raw := "$GPRMC,225446,A,4916.45,N,12311.12,W,000.5,054.7,191194,020.3,E*68\r\n"
	s := Split(raw)
	f, mask := Decode(s, st, &SkyView{}, &fix.DOP{})

	require.True(t, mask.Has(fix.LatLonSet))
	require.True(t, mask.Has(fix.SpeedSet))
	require.True(t, mask.Has(fix.TrackSet))
	require.True(t, mask.Has(fix.TimeSet))

	require.InDelta(t, 49.2742, f.Lat, 1e-3)
	require.InDelta(t, -123.1853, f.Lon, 1e-3)
	require.InDelta(t, 0.257, f.Speed, 1e-2)
	require.InDelta(t, 54.7, f.Track, 1e-6)
	require.InDelta(t, 20.3, f.MagVar, 1e-6)

	expected := time.Date(1994, 11, 19, 22, 54, 46, 0, time.UTC)
	require.InDelta(t, float64(expected.Unix()), f.Time, 1.0)
}

// S5 — GSV multi-sentence set.
func TestDecodeGSVScenarioS5(t *testing.T) {
	st := newTestState()
	sky := &SkyView{}

	lines := []string{
		"$GPGSV,3,1,11,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45*75\r\n",
		"$GPGSV,3,2,11,15,00,128,,20,00,064,,22,00,268,,25,00,042,*7F\r\n",
		"$GPGSV,3,3,11,29,00,358,,31,00,276,,32,00,172,,,,,*48\r\n",
	}

	var lastMask fix.Mask
	for _, l := range lines {
		s := Split(l)
		_, mask := Decode(s, st, sky, &fix.DOP{})
		lastMask = mask
	}

	require.True(t, lastMask.Has(fix.SatelliteSet), "SATELLITE change event expected only after the final GSV sentence")
	require.Len(t, sky.Sats, 11)

	nonzeroSNR := 0
	for _, sat := range sky.Sats {
		if fix.IsSet(sat.SNR) && sat.SNR != 0 {
			nonzeroSNR++
		}
	}
	require.Equal(t, 4, nonzeroSNR)
}

func TestDecodeGSVBogusAzimuthDiscarded(t *testing.T) {
	st := newTestState()
	sky := &SkyView{}
	// Single-part group where every azimuth is zero but elevation is not:
	// judged bogus and discarded.
	raw := "$GPGSV,1,1,01,01,40,000,46*00\r\n"
	s := Split(raw)
	_, mask := Decode(s, st, sky, &fix.DOP{})
	require.False(t, mask.Has(fix.SatelliteSet))
	require.Empty(t, sky.Sats)
}

func TestGSAAccumulatesAcrossTalkersAndSetsDOP(t *testing.T) {
	st := newTestState()
	dop := fix.DOP{}

	s1 := Split("$GPGSA,A,3,01,02,12,14,,,,,,,,,1.8,0.9,1.2*00\r\n")
	f1, mask1 := Decode(s1, st, &SkyView{}, &dop)
	require.True(t, mask1.Has(fix.UsedSet))
	require.Equal(t, 4, f1.SatellitesUsed)
	require.InDelta(t, 1.8, dop.PDOP, 1e-9)

	s2 := Split("$GLGSA,A,3,65,66,,,,,,,,,,,1.8,0.9,1.2*00\r\n")
	f2, _ := Decode(s2, st, &SkyView{}, &dop)
	require.Equal(t, 6, f2.SatellitesUsed, "GSA accumulates PRNs across talkers within a cycle")
}

func TestMarkUsedFlagsSkyViewEntries(t *testing.T) {
	sky := &SkyView{Sats: []fix.Sat{{PRN: 1}, {PRN: 2}, {PRN: 3}}}
	MarkUsed(sky, []int{2, 3})
	require.False(t, sky.Sats[0].Used)
	require.True(t, sky.Sats[1].Used)
	require.True(t, sky.Sats[2].Used)
}

func TestZDAFixesCenturyAndDate(t *testing.T) {
	st := newTestState()
	s := Split("$GPZDA,123519.00,07,08,2031,00,00*00\r\n")
	f, mask := Decode(s, st, &SkyView{}, &fix.DOP{})
	require.True(t, mask.Has(fix.TimeSet))
	expected := time.Date(2031, 8, 7, 12, 35, 19, 0, time.UTC)
	require.InDelta(t, float64(expected.Unix()), f.Time, 1.0)
}
