package timewindow

import (
	"strconv"
	"strings"
	"time"
)

// Resolution is the outcome of resolving free-form time input.
// Clear means the user asked for the field to be unset; Time is only
// meaningful when Clear is false.
type Resolution struct {
	Clear bool
	Time  time.Time
}

// inputMode is how the raw string is interpreted.
type inputMode int

const (
	modeAuto inputMode = iota
	modeRelative
	modeAbsolute
)

// Resolve turns raw user input into a concrete timestamp for the given
// parameter, validated against the computed window.
//
// Detection priority: an "in" prefix forces relative parsing; "hatch" or
// "start" substitute the hatch clock time when one exists; "unset",
// "cancel", and "none" clear the field (bypassing the window entirely);
// train parties always resolve absolute; an "at" prefix or am/pm suffix
// forces absolute; anything else tries both and pools the candidates,
// relative first.
//
// The first candidate inside the window wins. This is a satisfiability
// search with a fixed generation order, not a best-guess disambiguation.
func Resolve(raw string, p Param, c Context, s Settings, now time.Time) (Resolution, error) {
	win := Compute(p, c, s, now)

	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	mode := modeAuto

	switch {
	case strings.HasPrefix(lower, "in"):
		value = strings.TrimSpace(value[2:])
		mode = modeRelative
	case c.HatchTime != nil && (lower == "hatch" || lower == "start"):
		value = c.HatchTime.Format(clockLayout)
		mode = modeAbsolute
	case lower == "unset" || lower == "cancel" || lower == "none":
		return Resolution{Clear: true}, nil
	case c.Train:
		mode = modeAbsolute
	case strings.HasPrefix(lower, "at"):
		value = strings.TrimSpace(value[2:])
		mode = modeAbsolute
	case hasMeridiemSuffix(lower):
		mode = modeAbsolute
	}

	var pool []time.Time
	parsedAny := false

	if mode != modeAbsolute {
		if d, ok := parseRelative(value); ok {
			parsedAny = true
			if d < win.Max {
				pool = append(pool, now.Add(d))
			}
		}
	}

	if mode != modeRelative {
		if parsed, layout, ok := parseAbsolute(value, s.Layouts, now); ok {
			parsedAny = true
			pool = append(pool, candidates(parsed, layout, p, c)...)
		}
	}

	if !parsedAny {
		return Resolution{}, &ParseError{Input: raw}
	}

	for _, t := range pool {
		if win.Contains(t) {
			return Resolution{Time: t}, nil
		}
	}

	return Resolution{}, &RangeError{Input: raw, First: win.First, Last: win.Last, Now: now}
}

func hasMeridiemSuffix(lower string) bool {
	return strings.HasSuffix(lower, "am") || strings.HasSuffix(lower, "pm") ||
		strings.HasSuffix(lower, "a") || strings.HasSuffix(lower, "p")
}

// parseRelative parses a duration: a plain number is minutes, a colon
// form is hours:minutes[:seconds]. An all-zero colon form is rejected as
// ambiguous with "no time".
func parseRelative(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	if !strings.Contains(value, ":") {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return time.Duration(n) * time.Minute, true
	}

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, false
		}
		total += time.Duration(n) * units[i]
	}

	if total == 0 {
		return 0, false
	}
	return total, true
}

// parseAbsolute tries the configured layouts in order against the
// normalized input. Date-less matches are pinned to today; the year is
// always pinned to the current year (year-wrap is handled by candidate
// generation).
func parseAbsolute(value string, layouts []Layout, now time.Time) (time.Time, Layout, bool) {
	text := normalize(value)
	if text == "" {
		return time.Time{}, Layout{}, false
	}

	for _, l := range layouts {
		parsed, err := time.ParseInLocation(l.Format, text, now.Location())
		if err != nil {
			continue
		}

		month, day := now.Month(), now.Day()
		if l.HasDate {
			month, day = parsed.Month(), parsed.Day()
		}
		t := time.Date(now.Year(), month, day, parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		return t, l, true
	}
	return time.Time{}, Layout{}, false
}

// candidates expands one parsed time into the ordered candidate list:
// the base time, its year-wrap, and - for ambiguous morning clocks with
// no meridiem - the PM variant and its year-wrap.
//
// A date-less meeting time (and a date-less end time on a train) inherits
// the date of the reference time: the hatch time, or the train's meeting
// time. The clock value is assumed to apply to the existing event day.
func candidates(parsed time.Time, l Layout, p Param, c Context) []time.Time {
	ref := c.HatchTime
	if c.Train {
		ref = c.MeetTime
	}

	t := parsed
	if !l.HasDate && ref != nil && (p == ParamMeet || (c.Train && p == ParamEnd)) {
		r := *ref
		t = time.Date(r.Year(), r.Month(), r.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	}

	out := []time.Time{t, t.AddDate(1, 0, 0)}

	if t.Hour() < 12 && !l.HasMeridiem {
		pm := time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+12, t.Minute(), 0, 0, t.Location())
		out = append(out, pm, pm.AddDate(1, 0, 0))
	}
	return out
}
