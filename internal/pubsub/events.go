// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import "time"

// EventType says what happened to the payload.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	// ClearedEvent signals that every cached entry of a kind was dropped.
	ClearedEvent EventType = "cleared"
)

// Event is one published payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
