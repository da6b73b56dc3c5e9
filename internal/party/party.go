package party

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zjrosen/raidline/internal/timewindow"
)

// Party is one live session bound to a chat channel. All state mutations
// take the party's own mutex; window computation and input parsing stay
// outside the lock (they are pure), only the validate-then-commit step
// runs under it.
type Party struct {
	mu sync.Mutex

	channelID    string
	kind         Kind
	exclusive    bool
	creationTime time.Time

	subject   *Subject
	hatchTime *time.Time
	meetTime  TimeSetting
	endTime   TimeSetting

	groups    []Group
	attendees map[string]*Attendee

	route        []Stop
	currentIndex int
	conductor    string

	durations Durations
	layouts   []timewindow.Layout

	// ended is set under the lock when the registry reaps or removes the
	// party; every subsequent operation fails with ErrNoParty.
	ended bool
}

// Options configures a new party.
type Options struct {
	Exclusive bool
	Subject   *Subject
	HatchTime *time.Time
	Route     []Stop
	Conductor string
}

// New constructs a party. Callers normally go through Manager.Create so
// the channel-uniqueness invariant holds.
func New(channelID string, kind Kind, opts Options, durations Durations, layouts []timewindow.Layout) *Party {
	p := &Party{
		channelID:    channelID,
		kind:         kind,
		exclusive:    opts.Exclusive,
		creationTime: time.Now(),
		subject:      opts.Subject,
		groups:       []Group{{ID: DefaultGroupID}},
		attendees:    make(map[string]*Attendee),
		conductor:    opts.Conductor,
		durations:    durations,
		layouts:      layouts,
	}
	if opts.HatchTime != nil {
		h := *opts.HatchTime
		p.hatchTime = &h
	}
	if kind.HasRoute() {
		p.route = append(p.route, opts.Route...)
	}
	return p
}

// ChannelID returns the channel this party is bound to.
func (p *Party) ChannelID() string { return p.channelID }

// Kind returns the party variant.
func (p *Party) Kind() Kind { return p.kind }

// CreationTime returns the immutable creation timestamp.
func (p *Party) CreationTime() time.Time { return p.creationTime }

// Exclusive reports whether the party uses the exclusive duration defaults.
func (p *Party) Exclusive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exclusive
}

// MeetTime returns the meeting time setting.
func (p *Party) MeetTime() TimeSetting {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meetTime
}

// EndTime returns the end time setting.
func (p *Party) EndTime() TimeSetting {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endTime
}

// HatchTime returns a copy of the hatch time, or nil when unset.
func (p *Party) HatchTime() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hatchTime == nil {
		return nil
	}
	h := *p.hatchTime
	return &h
}

// Subject returns a copy of the subject, or nil.
func (p *Party) Subject() *Subject {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subject == nil {
		return nil
	}
	s := *p.subject
	return &s
}

// SetSubject replaces the party's subject. The subject's duration
// overrides take effect for all subsequent window computations.
func (p *Party) SetSubject(s *Subject) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	if s == nil {
		p.subject = nil
		return nil
	}
	copied := *s
	p.subject = &copied
	return nil
}

// WindowInputs snapshots the state the temporal engine needs. The caller
// resolves input outside the lock, then commits through one of the
// Set*Time operations, which re-validate.
func (p *Party) WindowInputs() (timewindow.Context, timewindow.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.windowContextLocked(), p.settingsLocked()
}

func (p *Party) windowContextLocked() timewindow.Context {
	c := timewindow.Context{
		Train:        p.kind.HasRoute(),
		CreationTime: p.creationTime,
	}
	if p.hatchTime != nil {
		h := *p.hatchTime
		c.HatchTime = &h
	}
	if p.endTime.Set {
		e := p.endTime.Time
		c.EndTime = &e
	}
	if p.meetTime.Set {
		m := p.meetTime.Time
		c.MeetTime = &m
	}
	return c
}

func (p *Party) settingsLocked() timewindow.Settings {
	inc, act := p.durations.StandardIncubation, p.durations.StandardActive
	if p.exclusive {
		inc, act = p.durations.ExclusiveIncubation, p.durations.ExclusiveActive
	}
	if p.subject != nil {
		if p.subject.Incubation > 0 {
			inc = p.subject.Incubation
		}
		if p.subject.Active > 0 {
			act = p.subject.Active
		}
	}
	return timewindow.Settings{
		Incubation:    inc,
		Active:        act,
		TrainLeadtime: p.durations.TrainLeadtime,
		Layouts:       p.layouts,
	}
}

func (p *Party) setDurations(d Durations) {
	p.mu.Lock()
	p.durations = d
	p.mu.Unlock()
}

// markEnded flags the party as destroyed. Taken by the registry before
// the entry is released, so destruction cannot race an in-flight mutation.
func (p *Party) markEnded() {
	p.mu.Lock()
	p.ended = true
	p.mu.Unlock()
}

// Ended reports whether the party has been reaped or removed.
func (p *Party) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// SetMemberStatus writes or overwrites a member's attendee record.
// count is the total headcount including the member; CountUnspecified
// preserves the existing count (new records start at 1). Setting
// NOT_INTERESTED removes the record. A COMPLETE member rejects every
// other status until ResetMemberStatus.
func (p *Party) SetMemberStatus(memberID string, status Status, count int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}

	existing := p.attendees[memberID]
	if existing != nil && existing.Status == StatusComplete && status != StatusComplete {
		return ErrMemberDone
	}

	if status == StatusNotInterested {
		delete(p.attendees, memberID)
		return nil
	}

	if existing == nil {
		existing = &Attendee{Count: 1, GroupID: DefaultGroupID}
		p.attendees[memberID] = existing
	}
	if count != CountUnspecified {
		if count < 1 {
			count = 1
		}
		existing.Count = count
	}
	existing.Status = status
	return nil
}

// ResetMemberStatus removes a member's record entirely, including a
// COMPLETE one. This is the explicit escape from terminal completion.
func (p *Party) ResetMemberStatus(memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	delete(p.attendees, memberID)
	return nil
}

// SetMemberGroup assigns a member to a group. A member with no record
// yet gets an INTERESTED one.
func (p *Party) SetMemberGroup(memberID, groupID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	if !p.hasGroupLocked(groupID) {
		return ErrUnknownGroup
	}

	a := p.attendees[memberID]
	if a == nil {
		a = &Attendee{Status: StatusInterested, Count: 1}
		p.attendees[memberID] = a
	}
	a.GroupID = groupID
	return nil
}

// MemberStatus returns a member's status, defaulting to NOT_INTERESTED
// when no record exists.
func (p *Party) MemberStatus(memberID string) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.attendees[memberID]; a != nil {
		return a.Status
	}
	return StatusNotInterested
}

// Attendee returns a copy of a member's record.
func (p *Party) Attendee(memberID string) (Attendee, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a := p.attendees[memberID]; a != nil {
		return *a, true
	}
	return Attendee{}, false
}

// AttendeeCount sums the headcounts of non-complete attendees assigned
// to the given group.
func (p *Party) AttendeeCount(groupID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attendeeCountLocked(groupID)
}

func (p *Party) attendeeCountLocked(groupID string) int {
	total := 0
	for memberID, a := range p.attendees {
		p.mustGroupLocked(memberID, a.GroupID)
		if a.Status == StatusComplete || a.GroupID != groupID {
			continue
		}
		total += a.Count
	}
	return total
}

// CreateGroup appends a new group with the next single-letter id.
func (p *Party) CreateGroup(label string) (Group, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return Group{}, ErrNoParty
	}
	if len(p.groups) >= 26 {
		return Group{}, ErrTooManyGroups
	}
	g := Group{ID: string(rune('A' + len(p.groups))), Label: label}
	p.groups = append(p.groups, g)
	return g, nil
}

// GroupSummaries returns the display aggregates for every group, in
// creation order. Labels are truncated for display.
func (p *Party) GroupSummaries() []GroupSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]GroupSummary, 0, len(p.groups))
	for _, g := range p.groups {
		s := GroupSummary{
			ID:    g.ID,
			Label: truncateLabel(g.Label),
			Count: p.attendeeCountLocked(g.ID),
		}
		if g.MeetTime != nil {
			t := *g.MeetTime
			s.MeetTime = &t
		}
		out = append(out, s)
	}
	return out
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxGroupLabelRunes {
		return label
	}
	return string(runes[:maxGroupLabelRunes-1]) + "…"
}

// SetMeetingTime commits a validated meeting time. The window is
// re-checked under the lock so a stale resolution cannot slip through.
// The actor gets an INTERESTED record if they have none, and their
// group's meeting time is updated alongside the party's. Returns the
// actor's group peers (non-complete, excluding the actor) for the
// caller to notify.
func (p *Party) SetMeetingTime(actorID string, t time.Time, now time.Time) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return nil, ErrNoParty
	}

	win := timewindow.Compute(timewindow.ParamMeet, p.windowContextLocked(), p.settingsLocked(), now)
	if !win.Contains(t) {
		return nil, ErrTimeOutOfWindow
	}

	actor := p.ensureAttendeeLocked(actorID)
	p.meetTime = TimeSetting{Time: t, Set: true}
	p.setGroupTimeLocked(actor.GroupID, &t)

	return p.groupPeersLocked(actorID, actor.GroupID), nil
}

// CancelMeetingTime explicitly clears the meeting time (and the acting
// member's group time). Bypasses the window check entirely.
func (p *Party) CancelMeetingTime(actorID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return nil, ErrNoParty
	}

	actor := p.ensureAttendeeLocked(actorID)
	p.meetTime = TimeSetting{Cleared: true}
	p.setGroupTimeLocked(actor.GroupID, nil)

	return p.groupPeersLocked(actorID, actor.GroupID), nil
}

// SetHatchTime commits a validated hatch time.
func (p *Party) SetHatchTime(t time.Time, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}

	win := timewindow.Compute(timewindow.ParamHatch, p.windowContextLocked(), p.settingsLocked(), now)
	if !win.Contains(t) {
		return ErrTimeOutOfWindow
	}
	h := t
	p.hatchTime = &h
	return nil
}

// SetEndTime commits a validated end time.
func (p *Party) SetEndTime(t time.Time, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}

	win := timewindow.Compute(timewindow.ParamEnd, p.windowContextLocked(), p.settingsLocked(), now)
	if !win.Contains(t) {
		return ErrTimeOutOfWindow
	}
	p.endTime = TimeSetting{Time: t, Set: true}
	return nil
}

// ClearEndTime explicitly unsets the end time.
func (p *Party) ClearEndTime() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	p.endTime = TimeSetting{Cleared: true}
	return nil
}

func (p *Party) ensureAttendeeLocked(memberID string) *Attendee {
	a := p.attendees[memberID]
	if a == nil {
		a = &Attendee{Status: StatusInterested, Count: 1, GroupID: DefaultGroupID}
		p.attendees[memberID] = a
	}
	return a
}

func (p *Party) setGroupTimeLocked(groupID string, t *time.Time) {
	for i := range p.groups {
		if p.groups[i].ID == groupID {
			p.groups[i].MeetTime = t
			return
		}
	}
}

func (p *Party) hasGroupLocked(groupID string) bool {
	for _, g := range p.groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

// mustGroupLocked asserts the attendee-references-live-group invariant.
// A violation is a programmer error, not a request failure.
func (p *Party) mustGroupLocked(memberID, groupID string) {
	if !p.hasGroupLocked(groupID) {
		panic(fmt.Sprintf("party %s: attendee %s references unknown group %q", p.channelID, memberID, groupID))
	}
}

// groupPeersLocked returns the non-complete members of a group,
// excluding the actor, sorted for deterministic fan-out.
func (p *Party) groupPeersLocked(actorID, groupID string) []string {
	var peers []string
	for memberID, a := range p.attendees {
		if memberID == actorID || a.Status == StatusComplete || a.GroupID != groupID {
			continue
		}
		peers = append(peers, memberID)
	}
	sort.Strings(peers)
	return peers
}

// ridersLocked returns every non-complete member of the party,
// regardless of group, excluding the actor, sorted for deterministic
// fan-out.
func (p *Party) ridersLocked(actorID string) []string {
	var riders []string
	for memberID, a := range p.attendees {
		if memberID == actorID || a.Status == StatusComplete {
			continue
		}
		riders = append(riders, memberID)
	}
	sort.Strings(riders)
	return riders
}

// Snapshot deep-copies the party state for persistence.
func (p *Party) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		ChannelID:    p.channelID,
		Kind:         p.kind,
		Exclusive:    p.exclusive,
		CreationTime: p.creationTime,
		MeetTime:     p.meetTime,
		EndTime:      p.endTime,
		Groups:       make([]Group, len(p.groups)),
		Attendees:    make(map[string]Attendee, len(p.attendees)),
		CurrentIndex: p.currentIndex,
		Conductor:    p.conductor,
	}
	if p.hatchTime != nil {
		h := *p.hatchTime
		snap.HatchTime = &h
	}
	if p.subject != nil {
		s := *p.subject
		snap.Subject = &s
	}
	for i, g := range p.groups {
		snap.Groups[i] = g
		if g.MeetTime != nil {
			t := *g.MeetTime
			snap.Groups[i].MeetTime = &t
		}
	}
	for id, a := range p.attendees {
		snap.Attendees[id] = *a
	}
	snap.Route = append(snap.Route, p.route...)
	return snap
}

// fromSnapshot rebuilds a party from persisted state.
func fromSnapshot(snap Snapshot, durations Durations, layouts []timewindow.Layout) *Party {
	p := &Party{
		channelID:    snap.ChannelID,
		kind:         snap.Kind,
		exclusive:    snap.Exclusive,
		creationTime: snap.CreationTime,
		meetTime:     snap.MeetTime,
		endTime:      snap.EndTime,
		attendees:    make(map[string]*Attendee, len(snap.Attendees)),
		currentIndex: snap.CurrentIndex,
		conductor:    snap.Conductor,
		durations:    durations,
		layouts:      layouts,
	}
	if snap.HatchTime != nil {
		h := *snap.HatchTime
		p.hatchTime = &h
	}
	if snap.Subject != nil {
		s := *snap.Subject
		p.subject = &s
	}
	p.groups = make([]Group, len(snap.Groups))
	for i, g := range snap.Groups {
		p.groups[i] = g
		if g.MeetTime != nil {
			t := *g.MeetTime
			p.groups[i].MeetTime = &t
		}
	}
	if len(p.groups) == 0 {
		p.groups = []Group{{ID: DefaultGroupID}}
	}
	for id, a := range snap.Attendees {
		copied := a
		p.attendees[id] = &copied
	}
	p.route = append(p.route, snap.Route...)
	return p
}
