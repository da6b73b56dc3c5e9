// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event represents a published event with a typed payload.
// ID is a unique identifier assigned at publish time.
type Event[T any] struct {
	ID        string
	Type      EventType
	Payload   T
	Timestamp time.Time
}

func newEventID() string {
	return uuid.NewString()
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}
