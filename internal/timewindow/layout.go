package timewindow

import (
	"regexp"
	"strings"
)

// clockLayout renders a bare clock time the way bounds and substituted
// hatch times are shown to users.
const clockLayout = "3:04 PM"

// DefaultFormats is the default ordered list of accepted absolute-time
// layouts (Go reference layouts). Date-less layouts come first so a bare
// clock time wins over a date-bearing interpretation; within each half,
// meridiem-carrying layouts precede 24-hour ones.
var DefaultFormats = []string{
	"3:04 PM",
	"15:04",
	"3 PM",
	"15",
	"1-2 3:04 PM",
	"1-2 15:04",
	"1-2 3 PM",
	"1-2 15",
}

// Layout is a compiled input layout. HasDate and HasMeridiem drive
// candidate generation: date-less matches may inherit a reference date,
// and meridiem-less matches spawn PM variants for ambiguous hours.
type Layout struct {
	Format      string
	HasDate     bool
	HasMeridiem bool
}

// CompileLayouts derives the per-layout flags from the format strings.
// Date-bearing layouts use the "1-2" month-day form.
func CompileLayouts(formats []string) []Layout {
	out := make([]Layout, 0, len(formats))
	for _, f := range formats {
		out = append(out, Layout{
			Format:      f,
			HasDate:     strings.Contains(f, "1-2"),
			HasMeridiem: strings.Contains(f, "PM"),
		})
	}
	return out
}

var (
	meridiemSuffixRe = regexp.MustCompile(`(?i)\s*([ap])\.?m?\.?$`)
	compactClockRe   = regexp.MustCompile(`^\d{3,4}$`)
)

// normalize canonicalizes raw clock input so the layout list stays small:
// any am/pm marker becomes a " AM"/" PM" suffix, and compact 3-4 digit
// clock tokens get a colon inserted ("230" -> "2:30").
func normalize(raw string) string {
	s := strings.TrimSpace(raw)

	if m := meridiemSuffixRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(s[:len(s)-len(m[0])]) + " " + strings.ToUpper(m[1]) + "M"
	}

	fields := strings.Fields(s)
	for i, f := range fields {
		if compactClockRe.MatchString(f) {
			fields[i] = f[:len(f)-2] + ":" + f[len(f)-2:]
		}
	}
	return strings.Join(fields, " ")
}
