package events

import "time"

// DomainEvent is implemented by every event raised by the domain. It exposes
// enough metadata for transports to route and timestamp the event without
// knowing its concrete payload.
type DomainEvent interface {
	// EventType identifies the category of this event for routing.
	EventType() EventType
	// OccurredAt records when the underlying state change happened.
	OccurredAt() time.Time
}

// EventEnvelope wraps a domain event with transport-level metadata.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key enables consistent event routing, typically containing a business
	// identifier like a worker ID that events can be partitioned by.
	Key string

	// Headers contain metadata key-value pairs attached to the event.
	Headers map[string]string

	// Timestamp records when this event was created.
	Timestamp time.Time

	// Payload contains the actual domain event.
	Payload DomainEvent
}
