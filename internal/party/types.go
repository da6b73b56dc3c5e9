// Package party implements the per-channel party session: attendee and
// group state, meeting/hatch/end times, route progression for trains,
// and the process-wide registry keyed by channel id.
package party

import (
	"time"
)

// Kind is the party variant. Trains carry a route and a conductor and
// use lead-time based windows.
type Kind string

const (
	KindMeetup Kind = "meetup"
	KindTrain  Kind = "meetup-train"
)

// HasRoute reports whether this variant carries an ordered stop route.
func (k Kind) HasRoute() bool {
	return k == KindTrain
}

// Status is a member's participation state within a party.
type Status int

const (
	StatusNotInterested Status = iota
	StatusInterested
	StatusPresent
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusNotInterested:
		return "not-interested"
	case StatusInterested:
		return "interested"
	case StatusPresent:
		return "present"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// CountUnspecified preserves a member's existing headcount on a status
// change (new records default to 1).
const CountUnspecified = -1

// DefaultGroupID is the group every party starts with.
const DefaultGroupID = "A"

// maxGroupLabelRunes bounds group labels in summaries; longer labels are
// truncated with an ellipsis.
const maxGroupLabelRunes = 150

// Attendee is one member's record within a party. Absence of a record
// means NOT_INTERESTED with a count of zero.
type Attendee struct {
	Status  Status `json:"status"`
	Count   int    `json:"count"`
	GroupID string `json:"group_id"`
}

// Group is a sub-cohort of a party with its own optional meeting time.
type Group struct {
	ID       string     `json:"id"`
	Label    string     `json:"label,omitempty"`
	MeetTime *time.Time `json:"meet_time,omitempty"`
}

// GroupSummary is the display aggregate for one group.
type GroupSummary struct {
	ID       string
	Label    string
	MeetTime *time.Time
	Count    int
}

// Stop is one entry in a train's route.
type Stop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject describes what a party is for and may override the configured
// incubation/active durations. Zero durations mean "use the default".
type Subject struct {
	Name       string        `json:"name"`
	Incubation time.Duration `json:"incubation,omitempty"`
	Active     time.Duration `json:"active,omitempty"`
}

// TimeSetting is a tri-state timestamp: never set, set, or explicitly
// cleared by the user. Cleared is distinct from never-set so callers can
// tell "cancelled" apart from "not decided yet".
type TimeSetting struct {
	Time    time.Time `json:"time"`
	Set     bool      `json:"set"`
	Cleared bool      `json:"cleared"`
}

// Durations carries the configured window durations.
type Durations struct {
	StandardIncubation  time.Duration
	StandardActive      time.Duration
	ExclusiveIncubation time.Duration
	ExclusiveActive     time.Duration
	TrainLeadtime       time.Duration
}

// Movement is the result of advancing a train's route. Next is nil when
// the train just left its final stop. Recipients are the non-complete
// attendees (excluding the actor) the caller is expected to notify.
type Movement struct {
	Skipped    Stop
	Next       *Stop
	Recipients []string
}

// Snapshot is a serializable deep copy of a party's state, used by the
// pluggable durability layer.
type Snapshot struct {
	ChannelID    string              `json:"channel_id"`
	Kind         Kind                `json:"kind"`
	Exclusive    bool                `json:"exclusive"`
	CreationTime time.Time           `json:"creation_time"`
	HatchTime    *time.Time          `json:"hatch_time,omitempty"`
	MeetTime     TimeSetting         `json:"meet_time"`
	EndTime      TimeSetting         `json:"end_time"`
	Subject      *Subject            `json:"subject,omitempty"`
	Groups       []Group             `json:"groups"`
	Attendees    map[string]Attendee `json:"attendees"`
	Route        []Stop              `json:"route,omitempty"`
	CurrentIndex int                 `json:"current_index"`
	Conductor    string              `json:"conductor,omitempty"`
}
