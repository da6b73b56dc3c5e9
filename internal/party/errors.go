package party

import "errors"

// ErrPartyExists is returned when creating a party for a channel that
// already has a live one.
var ErrPartyExists = errors.New("a party already exists for this channel")

// ErrNoParty is returned when an operation addresses a channel with no
// live party, or a party that has already been reaped.
var ErrNoParty = errors.New("no live party for this channel")

// ErrUnknownGroup is returned when a referenced group id does not exist.
var ErrUnknownGroup = errors.New("no such group in this party")

// ErrMemberDone is returned when changing the status of a member who has
// completed the party. Completion is terminal until an explicit reset.
var ErrMemberDone = errors.New("member has already completed this party")

// ErrNotConductor is returned when someone other than the designated
// conductor tries to advance a train's route.
var ErrNotConductor = errors.New("only the conductor may advance the route")

// ErrRouteExhausted is returned when advancing a route past its last stop.
var ErrRouteExhausted = errors.New("the route has no further stops")

// ErrNoRoute is returned when a route operation targets a party variant
// without a route.
var ErrNoRoute = errors.New("party has no route")

// ErrTimeOutOfWindow is returned by the commit-time re-check when a
// previously resolved time no longer falls inside the valid window.
var ErrTimeOutOfWindow = errors.New("time is outside the valid window")

// ErrTooManyGroups is returned when the single-letter group id space is
// exhausted.
var ErrTooManyGroups = errors.New("no group ids remaining")
