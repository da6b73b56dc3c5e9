// Package timewindow computes the valid absolute-time window for a party
// time parameter and resolves free-form time input against it.
//
// All functions are pure: callers pass a snapshot of the relevant party
// state plus the current time, so nothing here needs to hold a party lock.
package timewindow

import (
	"time"
)

// Param identifies which time field a window is being computed for.
type Param int

const (
	// ParamMeet is the planned meeting time.
	ParamMeet Param = iota
	// ParamHatch is the hatch time.
	ParamHatch
	// ParamEnd is the end time.
	ParamEnd
)

func (p Param) String() string {
	switch p {
	case ParamMeet:
		return "meet"
	case ParamHatch:
		return "hatch"
	case ParamEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Context is the party-state snapshot a window is derived from.
type Context struct {
	// Train is true for multi-stop train parties, which use lead-time
	// based windows and always resolve input as absolute times.
	Train bool

	CreationTime time.Time

	// HatchTime, EndTime, and MeetTime are nil when not set.
	HatchTime *time.Time
	EndTime   *time.Time
	MeetTime  *time.Time
}

// Settings carries the effective durations and accepted input layouts.
// Incubation and Active already reflect any subject override and the
// party's exclusive flag.
type Settings struct {
	Incubation    time.Duration
	Active        time.Duration
	TrainLeadtime time.Duration
	Layouts       []Layout
}

// Window is the inclusive range a time value must fall within, plus the
// maximum duration accepted for relative ("in ...") input.
type Window struct {
	First time.Time
	Last  time.Time
	Max   time.Duration
}

// Contains reports whether t falls inside the window, inclusive both ends.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.First) && !t.After(w.Last)
}

// Compute derives the valid window for the given parameter.
func Compute(p Param, c Context, s Settings, now time.Time) Window {
	switch p {
	case ParamMeet:
		// Valid from now (or the hatch time if that is later) through
		// the party's end time.
		first := now
		if c.HatchTime != nil && c.HatchTime.After(now) {
			first = *c.HatchTime
		}
		if c.Train {
			return Window{
				First: first,
				Last:  c.CreationTime.Add(s.TrainLeadtime),
				Max:   s.TrainLeadtime,
			}
		}
		last := c.CreationTime.Add(s.Incubation + s.Active)
		if c.EndTime != nil {
			last = *c.EndTime
		}
		return Window{First: first, Last: last, Max: s.Incubation + s.Active}

	case ParamHatch:
		// Valid from up to the active duration in the past through the
		// incubation period past creation.
		return Window{
			First: now.Add(-s.Active),
			Last:  c.CreationTime.Add(s.Incubation),
			Max:   s.Incubation,
		}

	case ParamEnd:
		if c.Train {
			span := s.TrainLeadtime + 24*time.Hour
			return Window{First: now, Last: c.CreationTime.Add(span), Max: span}
		}
		span := s.Incubation + s.Active
		return Window{First: now, Last: c.CreationTime.Add(span), Max: span}
	}

	panic("timewindow: unknown parameter")
}

// FormatBound formats a window bound for display: clock only when the
// bound falls on the same day as now, date and clock otherwise.
func FormatBound(t, now time.Time) string {
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format(clockLayout)
	}
	return t.Format("1/2/2006 3:04 PM")
}
