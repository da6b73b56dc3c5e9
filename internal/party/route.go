package party

// Advance moves a train past its current stop. When a conductor is set,
// only they may advance; an open conductor (empty string) lets anyone.
// The returned Movement carries the stop just left, the next stop (nil
// when the route is exhausted by this advance), and the members to
// notify: every non-complete attendee regardless of group, excluding
// the actor. A stop change concerns the whole train, not one group.
func (p *Party) Advance(actorID string) (Movement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return Movement{}, ErrNoParty
	}
	if !p.kind.HasRoute() {
		return Movement{}, ErrNoRoute
	}
	if p.conductor != "" && p.conductor != actorID {
		return Movement{}, ErrNotConductor
	}
	if p.currentIndex >= len(p.route) {
		return Movement{}, ErrRouteExhausted
	}

	m := Movement{Skipped: p.route[p.currentIndex]}
	p.currentIndex++
	if p.currentIndex < len(p.route) {
		next := p.route[p.currentIndex]
		m.Next = &next
	}

	m.Recipients = p.ridersLocked(actorID)
	return m, nil
}

// CurrentStop returns the stop the train is at, or false when the route
// is exhausted or absent.
func (p *Party) CurrentStop() (Stop, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.kind.HasRoute() || p.currentIndex >= len(p.route) {
		return Stop{}, false
	}
	return p.route[p.currentIndex], true
}

// Route returns a copy of the remaining route, starting at the current
// stop.
func (p *Party) Route() []Stop {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.kind.HasRoute() || p.currentIndex >= len(p.route) {
		return nil
	}
	out := make([]Stop, len(p.route)-p.currentIndex)
	copy(out, p.route[p.currentIndex:])
	return out
}

// SetRoute replaces the route and resets progression to its first stop.
func (p *Party) SetRoute(stops []Stop) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	if !p.kind.HasRoute() {
		return ErrNoRoute
	}
	p.route = make([]Stop, len(stops))
	copy(p.route, stops)
	p.currentIndex = 0
	return nil
}

// SetConductor designates the member allowed to advance the route.
func (p *Party) SetConductor(memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended {
		return ErrNoParty
	}
	if !p.kind.HasRoute() {
		return ErrNoRoute
	}
	p.conductor = memberID
	return nil
}

// ClearConductor opens route advancement to every member.
func (p *Party) ClearConductor() error {
	return p.SetConductor("")
}

// Conductor returns the designated conductor, or empty when the route is
// open.
func (p *Party) Conductor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conductor
}
