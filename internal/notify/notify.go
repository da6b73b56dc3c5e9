// Package notify defines the outbound side effects of coordination:
// messages to members and status-surface refreshes. The core publishes
// onto brokers; a chat front-end subscribes and does the actual I/O.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/zjrosen/raidline/internal/pubsub"
)

// Notification is one message addressed to a set of members.
type Notification struct {
	ID         string
	ChannelID  string
	Recipients []string
	Text       string
}

// Refresh asks the front-end to redraw a channel's status surface.
type Refresh struct {
	ID        string
	ChannelID string
}

// Notifier delivers notifications. Delivery is best effort; a failed or
// unobserved notification never fails the operation that produced it.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// StatusRefresher requests status-surface redraws.
type StatusRefresher interface {
	Refresh(ctx context.Context, channelID string)
}

// AuthorizationProbe answers whether a member may perform a privileged
// operation in a channel.
type AuthorizationProbe interface {
	Allowed(ctx context.Context, channelID, memberID string) bool
}

// AllowAll authorizes everyone. The default when no front-end wires a
// real probe.
type AllowAll struct{}

func (AllowAll) Allowed(context.Context, string, string) bool { return true }

// BrokerNotifier publishes notifications onto a pubsub broker.
type BrokerNotifier struct {
	broker *pubsub.Broker[Notification]
}

// NewBrokerNotifier creates a broker-backed notifier.
func NewBrokerNotifier() *BrokerNotifier {
	return &BrokerNotifier{broker: pubsub.NewBroker[Notification]()}
}

// Notify publishes the notification. Dropped when no subscriber keeps
// up; the core never blocks on delivery.
func (b *BrokerNotifier) Notify(_ context.Context, n Notification) {
	if len(n.Recipients) == 0 {
		return
	}
	n.ID = uuid.NewString()
	b.broker.Publish(pubsub.CreatedEvent, n)
}

// Subscribe exposes the notification stream to a front-end.
func (b *BrokerNotifier) Subscribe(ctx context.Context) <-chan pubsub.Event[Notification] {
	return b.broker.Subscribe(ctx)
}

// Close shuts down the broker.
func (b *BrokerNotifier) Close() {
	b.broker.Close()
}

// BrokerRefresher publishes refresh requests onto a pubsub broker.
type BrokerRefresher struct {
	broker *pubsub.Broker[Refresh]
}

// NewBrokerRefresher creates a broker-backed refresher.
func NewBrokerRefresher() *BrokerRefresher {
	return &BrokerRefresher{broker: pubsub.NewBroker[Refresh]()}
}

// Refresh publishes a redraw request for the channel.
func (b *BrokerRefresher) Refresh(_ context.Context, channelID string) {
	b.broker.Publish(pubsub.UpdatedEvent, Refresh{ID: uuid.NewString(), ChannelID: channelID})
}

// Subscribe exposes the refresh stream to a front-end.
func (b *BrokerRefresher) Subscribe(ctx context.Context) <-chan pubsub.Event[Refresh] {
	return b.broker.Subscribe(ctx)
}

// Close shuts down the broker.
func (b *BrokerRefresher) Close() {
	b.broker.Close()
}
