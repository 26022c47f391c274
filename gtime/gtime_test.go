package gtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Century rollover: RMC year "99" followed by "00" bumps century by 100.
func TestCenturyHintRollover99To00(t *testing.T) {
	c := NewCenturyHint(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	y1 := c.ExpandRMCYear(99)
	require.Equal(t, 1999, y1)
	y2 := c.ExpandRMCYear(0)
	require.Equal(t, 2000, y2)
}

// 2080 wrap: a decoded year of 2080 or beyond is pulled back by 100.
func TestYear2080Wrap(t *testing.T) {
	c := &CenturyHint{century: 2000, lastYY: -1}
	y := c.ExpandRMCYear(80)
	require.Equal(t, 1980, y)
}

func TestZDAFixesCentury(t *testing.T) {
	c := NewCenturyHint(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c.ZDAYear(2031)
	require.True(t, c.ZDAFixed())
	require.Equal(t, 2031, c.ExpandRMCYear(31))
}

func TestResolveRolloverPicksNearestWeek(t *testing.T) {
	ref := float64(GPSEpoch) + 1500*SecondsPerWeek
	got := ResolveRollover(1500-1024, ref)
	require.Equal(t, 1500, got)
}

func TestWeekTOWToUnix(t *testing.T) {
	got := WeekTOWToUnix(0, 0, 0)
	require.Equal(t, float64(GPSEpoch), got)
}

func TestRolloverOfDoomDetectsMismatch(t *testing.T) {
	require.True(t, RolloverOfDoom(1483228800, 99))
	require.False(t, RolloverOfDoom(1483228800, 18))
}
