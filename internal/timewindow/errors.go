package timewindow

import (
	"fmt"
	"time"
)

// ParseError reports input that produced zero candidate timestamps.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%q is not a valid duration or time", e.Input)
}

// RangeError reports input that parsed but produced no candidate inside
// the valid window. First and Last carry the window bounds; Now is kept
// so the bounds format the same way they were shown to the user.
type RangeError struct {
	Input string
	First time.Time
	Last  time.Time
	Now   time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%q is not valid for this party - valid time range is between %s and %s",
		e.Input, FormatBound(e.First, e.Now), FormatBound(e.Last, e.Now))
}
