package party

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/raidline/internal/log"
	"github.com/zjrosen/raidline/internal/pubsub"
	"github.com/zjrosen/raidline/internal/timewindow"
)

// DefaultCleanupInterval is how often expired parties are swept.
const DefaultCleanupInterval = time.Minute

// ChangeEvent is the payload published for registry lifecycle events.
type ChangeEvent struct {
	ChannelID string
	Kind      Kind
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Durations       Durations
	Layouts         []string
	CleanupInterval time.Duration
}

// Manager is the process-wide party registry, keyed by channel id. At
// most one live party exists per channel; creation is first-wins.
// Entries with an end time expire and are reaped by the cache sweeper.
type Manager struct {
	mu        sync.RWMutex
	cache     *gocache.Cache
	events    *pubsub.Broker[ChangeEvent]
	durations Durations
	layouts   []timewindow.Layout
}

// NewManager builds a registry with the given window durations and
// input layouts (falling back to the default layout set).
func NewManager(opts ManagerOptions) *Manager {
	formats := opts.Layouts
	if len(formats) == 0 {
		formats = timewindow.DefaultFormats
	}
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	m := &Manager{
		cache:     gocache.New(gocache.NoExpiration, interval),
		events:    pubsub.NewBroker[ChangeEvent](),
		durations: opts.Durations,
		layouts:   timewindow.CompileLayouts(formats),
	}
	m.cache.OnEvicted(m.onEvicted)
	return m
}

// onEvicted fires for both explicit deletes and end-time expiry. go-cache
// removes the registry entry before this callback runs, so there is a
// brief window where Get misses but the party is not yet flagged ended.
// Handles obtained earlier stay safe: markEnded takes the party lock, and
// every mutator checks the ended flag under that same lock, so an
// operation racing the reaper either completes first or fails ErrNoParty.
func (m *Manager) onEvicted(channelID string, value any) {
	p, ok := value.(*Party)
	if !ok {
		log.Error(log.CatRegistry, "wrong type evicted from registry", "channel", channelID)
		return
	}
	p.markEnded()
	log.Info(log.CatRegistry, "party ended", "channel", channelID, "kind", string(p.Kind()))
	m.events.Publish(pubsub.DeletedEvent, ChangeEvent{ChannelID: channelID, Kind: p.Kind()})
}

// Create registers a new party for a channel. Exactly one concurrent
// caller wins; the rest get ErrPartyExists.
func (m *Manager) Create(channelID string, kind Kind, opts Options) (*Party, error) {
	m.mu.RLock()
	p := New(channelID, kind, opts, m.durations, m.layouts)
	m.mu.RUnlock()
	if err := m.cache.Add(channelID, p, gocache.NoExpiration); err != nil {
		return nil, ErrPartyExists
	}
	log.Info(log.CatRegistry, "party created", "channel", channelID, "kind", string(kind))
	m.events.Publish(pubsub.CreatedEvent, ChangeEvent{ChannelID: channelID, Kind: kind})
	return p, nil
}

// Get returns the live party for a channel.
func (m *Manager) Get(channelID string) (*Party, error) {
	value, found := m.cache.Get(channelID)
	if !found {
		return nil, ErrNoParty
	}
	p, ok := value.(*Party)
	if !ok {
		log.Error(log.CatRegistry, "wrong type in registry", "channel", channelID)
		return nil, ErrNoParty
	}
	return p, nil
}

// Exists reports whether the channel has a live party, optionally
// restricted to a set of kinds.
func (m *Manager) Exists(channelID string, kinds ...Kind) bool {
	p, err := m.Get(channelID)
	if err != nil {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if p.Kind() == k {
			return true
		}
	}
	return false
}

// Remove destroys a channel's party. Eviction handles the ended flag
// and the deletion event.
func (m *Manager) Remove(channelID string) error {
	if _, err := m.Get(channelID); err != nil {
		return err
	}
	m.cache.Delete(channelID)
	return nil
}

// Reschedule aligns a party's registry expiration with its end time.
// A party without a set end time lives until explicitly removed.
func (m *Manager) Reschedule(channelID string) error {
	p, err := m.Get(channelID)
	if err != nil {
		return err
	}

	ttl := gocache.NoExpiration
	if end := p.EndTime(); end.Set {
		ttl = time.Until(end.Time)
	}
	if err := m.cache.Replace(channelID, p, ttl); err != nil {
		return ErrNoParty
	}
	log.Debug(log.CatRegistry, "party rescheduled", "channel", channelID, "ttl", ttl.String())
	return nil
}

// Restore re-registers a persisted party. Used at startup; a conflict
// with an already-live channel is ErrPartyExists.
func (m *Manager) Restore(snap Snapshot) (*Party, error) {
	m.mu.RLock()
	p := fromSnapshot(snap, m.durations, m.layouts)
	m.mu.RUnlock()

	ttl := gocache.NoExpiration
	if snap.EndTime.Set {
		ttl = time.Until(snap.EndTime.Time)
		if ttl <= 0 {
			log.Info(log.CatRegistry, "skipping restore of ended party", "channel", snap.ChannelID)
			return nil, ErrNoParty
		}
	}
	if err := m.cache.Add(snap.ChannelID, p, ttl); err != nil {
		return nil, ErrPartyExists
	}
	log.Info(log.CatRegistry, "party restored", "channel", snap.ChannelID, "kind", string(snap.Kind))
	return p, nil
}

// SetDurations swaps the configured durations for new and live parties.
// Called on config reload.
func (m *Manager) SetDurations(d Durations) {
	m.mu.Lock()
	m.durations = d
	m.mu.Unlock()
	for _, item := range m.cache.Items() {
		if p, ok := item.Object.(*Party); ok {
			p.setDurations(d)
		}
	}
	log.Info(log.CatRegistry, "durations updated")
}

// Count returns the number of live parties.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// Events exposes the registry's lifecycle event stream.
func (m *Manager) Events() pubsub.Subscriber[ChangeEvent] {
	return m.events
}

// Close shuts down the event broker.
func (m *Manager) Close() {
	m.events.Close()
}
