// Package coordinator is the single entry point for inbound chat events.
// It resolves free-form input outside the party lock, commits through
// the party's validate-then-commit operations, and fans out the
// resulting notifications.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/raidline/internal/log"
	"github.com/zjrosen/raidline/internal/notify"
	"github.com/zjrosen/raidline/internal/party"
	"github.com/zjrosen/raidline/internal/timewindow"
	"github.com/zjrosen/raidline/internal/tracing"
)

// ErrNotAuthorized is returned when the authorization probe denies a
// privileged operation.
var ErrNotAuthorized = errors.New("member is not authorized for this operation")

// ErrFieldNotClearable is returned when a clear sentinel targets a time
// field that cannot be unset.
var ErrFieldNotClearable = errors.New("this time field cannot be unset")

// Store persists party snapshots across restarts.
type Store interface {
	Save(ctx context.Context, snap party.Snapshot) error
	Delete(ctx context.Context, channelID string) error
}

// Options configures a Coordinator. Manager, Notifier, Refresher, and
// Auth are required; Store and Clock are optional.
type Options struct {
	Manager   *party.Manager
	Notifier  notify.Notifier
	Refresher notify.StatusRefresher
	Auth      notify.AuthorizationProbe
	Store     Store
	Clock     func() time.Time
}

// Coordinator orchestrates party operations on behalf of chat events.
type Coordinator struct {
	manager   *party.Manager
	notifier  notify.Notifier
	refresher notify.StatusRefresher
	auth      notify.AuthorizationProbe
	store     Store
	tracer    trace.Tracer
	clock     func() time.Time
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		manager:   opts.Manager,
		notifier:  opts.Notifier,
		refresher: opts.Refresher,
		auth:      opts.Auth,
		store:     opts.Store,
		tracer:    tracing.Tracer(),
		clock:     clock,
	}
}

// Field tags which time field a SetTime call targets.
type Field int

const (
	FieldMeet Field = iota
	FieldHatch
	FieldEnd
)

func (f Field) String() string {
	switch f {
	case FieldMeet:
		return "meet"
	case FieldHatch:
		return "hatch"
	case FieldEnd:
		return "end"
	default:
		return "unknown"
	}
}

// fieldOp binds a Field to its window parameter and its commit
// mutators. A nil clear means the field rejects the unset sentinel.
type fieldOp struct {
	param timewindow.Param
	apply func(p *party.Party, actorID string, t, now time.Time) ([]string, error)
	clear func(p *party.Party, actorID string) ([]string, error)
}

var fieldOps = map[Field]fieldOp{
	FieldMeet: {
		param: timewindow.ParamMeet,
		apply: func(p *party.Party, actorID string, t, now time.Time) ([]string, error) {
			return p.SetMeetingTime(actorID, t, now)
		},
		clear: func(p *party.Party, actorID string) ([]string, error) {
			return p.CancelMeetingTime(actorID)
		},
	},
	FieldHatch: {
		param: timewindow.ParamHatch,
		apply: func(p *party.Party, _ string, t, now time.Time) ([]string, error) {
			return nil, p.SetHatchTime(t, now)
		},
	},
	FieldEnd: {
		param: timewindow.ParamEnd,
		apply: func(p *party.Party, _ string, t, now time.Time) ([]string, error) {
			return nil, p.SetEndTime(t, now)
		},
		clear: func(p *party.Party, _ string) ([]string, error) {
			return nil, p.ClearEndTime()
		},
	},
}

// SetTime resolves raw user input against the field's valid window and
// commits it. Resolution runs outside the party lock; the commit
// re-validates under it. Meet-time changes notify the actor's group
// peers; end-time changes reschedule the party's reaping.
func (c *Coordinator) SetTime(ctx context.Context, channelID, actorID string, field Field, raw string) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.SetTime",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
			attribute.String("time.field", field.String()),
		))
	defer span.End()

	op, ok := fieldOps[field]
	if !ok {
		return fmt.Errorf("unknown time field %d", int(field))
	}

	p, err := c.manager.Get(channelID)
	if err != nil {
		return err
	}

	now := c.clock()
	wc, ws := p.WindowInputs()
	res, err := timewindow.Resolve(raw, op.param, wc, ws, now)
	if err != nil {
		return err
	}

	var peers []string
	if res.Clear {
		if op.clear == nil {
			return ErrFieldNotClearable
		}
		peers, err = op.clear(p, actorID)
	} else {
		peers, err = op.apply(p, actorID, res.Time, now)
	}
	if err != nil {
		return err
	}

	if field == FieldEnd {
		if err := c.manager.Reschedule(channelID); err != nil {
			log.ErrorErr(log.CatParty, "rescheduling party failed", err, "channel", channelID)
		}
	}

	if field == FieldMeet {
		text := "the meeting time was cancelled"
		if !res.Clear {
			text = "meeting time set to " + timewindow.FormatBound(res.Time, now)
		}
		c.notifier.Notify(ctx, notify.Notification{
			ChannelID:  channelID,
			Recipients: peers,
			Text:       text,
		})
	}

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return nil
}

// SetMemberStatus applies a member status change.
func (c *Coordinator) SetMemberStatus(ctx context.Context, channelID, memberID string, status party.Status, count int) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.SetMemberStatus",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
			attribute.String("member.status", status.String()),
		))
	defer span.End()

	p, err := c.manager.Get(channelID)
	if err != nil {
		return err
	}
	if err := p.SetMemberStatus(memberID, status, count); err != nil {
		return err
	}

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return nil
}

// ResetMemberStatus removes a member's record, including a completed one.
func (c *Coordinator) ResetMemberStatus(ctx context.Context, channelID, memberID string) error {
	p, err := c.manager.Get(channelID)
	if err != nil {
		return err
	}
	if err := p.ResetMemberStatus(memberID); err != nil {
		return err
	}

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return nil
}

// SetMemberGroup assigns a member to a group.
func (c *Coordinator) SetMemberGroup(ctx context.Context, channelID, memberID, groupID string) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.SetMemberGroup",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
			attribute.String("group.id", groupID),
		))
	defer span.End()

	p, err := c.manager.Get(channelID)
	if err != nil {
		return err
	}
	if err := p.SetMemberGroup(memberID, groupID); err != nil {
		return err
	}

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return nil
}

// AdvanceRoute moves a train to its next stop and notifies the riders.
func (c *Coordinator) AdvanceRoute(ctx context.Context, channelID, actorID string) (party.Movement, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.AdvanceRoute",
		trace.WithAttributes(attribute.String("channel.id", channelID)))
	defer span.End()

	p, err := c.manager.Get(channelID)
	if err != nil {
		return party.Movement{}, err
	}
	movement, err := p.Advance(actorID)
	if err != nil {
		return party.Movement{}, err
	}

	text := "the train finished its route"
	if movement.Next != nil {
		text = "the train moved on to " + movement.Next.Name
	}
	c.notifier.Notify(ctx, notify.Notification{
		ChannelID:  channelID,
		Recipients: movement.Recipients,
		Text:       text,
	})

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return movement, nil
}

// CreateParty registers a new party for a channel.
func (c *Coordinator) CreateParty(ctx context.Context, channelID, actorID string, kind party.Kind, opts party.Options) (*party.Party, error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.CreateParty",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
			attribute.String("party.kind", string(kind)),
		))
	defer span.End()

	if !c.auth.Allowed(ctx, channelID, actorID) {
		return nil, ErrNotAuthorized
	}

	p, err := c.manager.Create(channelID, kind, opts)
	if err != nil {
		return nil, err
	}

	c.refresher.Refresh(ctx, channelID)
	c.persist(p)
	return p, nil
}

// DeleteParty destroys a channel's party and its persisted snapshot.
func (c *Coordinator) DeleteParty(ctx context.Context, channelID, actorID string) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.DeleteParty",
		trace.WithAttributes(attribute.String("channel.id", channelID)))
	defer span.End()

	if !c.auth.Allowed(ctx, channelID, actorID) {
		return ErrNotAuthorized
	}

	if err := c.manager.Remove(channelID); err != nil {
		return err
	}

	if c.store != nil {
		if err := c.store.Delete(ctx, channelID); err != nil {
			log.ErrorErr(log.CatStore, "deleting party snapshot failed", err, "channel", channelID)
		}
	}
	c.refresher.Refresh(ctx, channelID)
	return nil
}

// persist writes the party snapshot in the background. Persistence is
// best effort; a write failure never fails the operation.
func (c *Coordinator) persist(p *party.Party) {
	if c.store == nil {
		return
	}
	snap := p.Snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.store.Save(ctx, snap); err != nil {
			log.ErrorErr(log.CatStore, "saving party snapshot failed", err, "channel", snap.ChannelID)
		}
	}()
}
