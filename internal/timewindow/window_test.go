package timewindow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/raidline/internal/timewindow"
)

var testSettings = timewindow.Settings{
	Incubation:    60 * time.Minute,
	Active:        45 * time.Minute,
	TrainLeadtime: 3 * 24 * time.Hour,
	Layouts:       timewindow.CompileLayouts(timewindow.DefaultFormats),
}

func testNow() time.Time {
	return time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
}

func TestCompute_MeetWindow(t *testing.T) {
	now := testNow()
	c := timewindow.Context{CreationTime: now}

	win := timewindow.Compute(timewindow.ParamMeet, c, testSettings, now)
	require.Equal(t, now, win.First)
	require.Equal(t, now.Add(105*time.Minute), win.Last)
	require.Equal(t, 105*time.Minute, win.Max)
}

func TestCompute_MeetWindow_FutureHatchRaisesFirst(t *testing.T) {
	now := testNow()
	hatch := now.Add(30 * time.Minute)
	c := timewindow.Context{CreationTime: now, HatchTime: &hatch}

	win := timewindow.Compute(timewindow.ParamMeet, c, testSettings, now)
	require.Equal(t, hatch, win.First)
}

func TestCompute_MeetWindow_PastHatchIgnored(t *testing.T) {
	now := testNow()
	hatch := now.Add(-30 * time.Minute)
	c := timewindow.Context{CreationTime: now.Add(-time.Hour), HatchTime: &hatch}

	win := timewindow.Compute(timewindow.ParamMeet, c, testSettings, now)
	require.Equal(t, now, win.First)
}

func TestCompute_MeetWindow_EndTimeOverridesLast(t *testing.T) {
	now := testNow()
	end := now.Add(20 * time.Minute)
	c := timewindow.Context{CreationTime: now, EndTime: &end}

	win := timewindow.Compute(timewindow.ParamMeet, c, testSettings, now)
	require.Equal(t, end, win.Last)
}

func TestCompute_MeetWindow_TrainUsesLeadtime(t *testing.T) {
	now := testNow()
	c := timewindow.Context{Train: true, CreationTime: now}

	win := timewindow.Compute(timewindow.ParamMeet, c, testSettings, now)
	require.Equal(t, now.Add(3*24*time.Hour), win.Last)
	require.Equal(t, 3*24*time.Hour, win.Max)
}

func TestCompute_HatchWindow(t *testing.T) {
	now := testNow()
	creation := now.Add(-10 * time.Minute)
	c := timewindow.Context{CreationTime: creation}

	win := timewindow.Compute(timewindow.ParamHatch, c, testSettings, now)
	require.Equal(t, now.Add(-45*time.Minute), win.First)
	require.Equal(t, creation.Add(60*time.Minute), win.Last)
}

func TestCompute_EndWindow(t *testing.T) {
	now := testNow()
	c := timewindow.Context{CreationTime: now}

	win := timewindow.Compute(timewindow.ParamEnd, c, testSettings, now)
	require.Equal(t, now, win.First)
	require.Equal(t, now.Add(105*time.Minute), win.Last)
}

func TestCompute_EndWindow_TrainAddsDayPastLeadtime(t *testing.T) {
	now := testNow()
	c := timewindow.Context{Train: true, CreationTime: now}

	win := timewindow.Compute(timewindow.ParamEnd, c, testSettings, now)
	require.Equal(t, now.Add(3*24*time.Hour+24*time.Hour), win.Last)
}

func TestContains_InclusiveBothEnds(t *testing.T) {
	now := testNow()
	win := timewindow.Window{First: now, Last: now.Add(time.Hour)}

	require.True(t, win.Contains(now))
	require.True(t, win.Contains(now.Add(time.Hour)))
	require.True(t, win.Contains(now.Add(30*time.Minute)))
	require.False(t, win.Contains(now.Add(-time.Second)))
	require.False(t, win.Contains(now.Add(time.Hour+time.Second)))
}

// Growing the configured durations must never shrink a window.
func TestCompute_WindowMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := testNow()
		c := timewindow.Context{CreationTime: now}

		incA := time.Duration(rapid.IntRange(1, 300).Draw(t, "incA")) * time.Minute
		incB := incA + time.Duration(rapid.IntRange(0, 300).Draw(t, "incGrow"))*time.Minute
		act := time.Duration(rapid.IntRange(1, 300).Draw(t, "act")) * time.Minute

		a := timewindow.Settings{Incubation: incA, Active: act, TrainLeadtime: testSettings.TrainLeadtime}
		b := timewindow.Settings{Incubation: incB, Active: act, TrainLeadtime: testSettings.TrainLeadtime}

		for _, p := range []timewindow.Param{timewindow.ParamMeet, timewindow.ParamHatch, timewindow.ParamEnd} {
			winA := timewindow.Compute(p, c, a, now)
			winB := timewindow.Compute(p, c, b, now)
			require.False(t, winB.Last.Before(winA.Last), "param %s: larger incubation shrank the window", p)
			require.False(t, winB.First.After(winA.First), "param %s: larger incubation raised the lower bound", p)
		}
	})
}

func TestFormatBound(t *testing.T) {
	now := testNow()

	require.Equal(t, "9:45 AM", timewindow.FormatBound(now.Add(105*time.Minute), now))
	require.Equal(t, "3/17/2024 8:00 AM", timewindow.FormatBound(now.AddDate(0, 0, 2), now))
}
