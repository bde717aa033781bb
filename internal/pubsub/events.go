// Package pubsub fans committed ledger events out to in-process observers.
package pubsub

import "time"

// EventType tags a published message.
type EventType string

// CommittedEvent carries an event that is durable in the log.
const CommittedEvent EventType = "committed"

// Event is one delivered message.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}
