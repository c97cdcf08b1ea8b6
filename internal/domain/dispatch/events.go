package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ahrav/handyhire/internal/domain/events"
)

// Order lifecycle event types.
const (
	EventTypeOrderSubmitted events.EventType = "OrderSubmitted"
	EventTypeOrderAccepted  events.EventType = "OrderAccepted"
	EventTypeOrderRejected  events.EventType = "OrderRejected"
	EventTypeOrderCancelled events.EventType = "OrderCancelled"
	EventTypeOrderCompleted events.EventType = "OrderCompleted"
	EventTypeOrderExpired   events.EventType = "OrderExpired"
)

var transitionEventTypes = map[Transition]events.EventType{
	TransitionSubmit:   EventTypeOrderSubmitted,
	TransitionAccept:   EventTypeOrderAccepted,
	TransitionReject:   EventTypeOrderRejected,
	TransitionCancel:   EventTypeOrderCancelled,
	TransitionComplete: EventTypeOrderCompleted,
	TransitionExpire:   EventTypeOrderExpired,
}

var _ events.DomainEvent = OrderLifecycleEvent{}

// OrderLifecycleEvent is raised after an order transition has been written.
// It is informational; the record store stays the source of truth.
type OrderLifecycleEvent struct {
	ID         uuid.UUID
	Transition Transition
	WorkerID   uuid.UUID
	CustomerID uuid.UUID
	Scenario   string
	Price      *decimal.Decimal
	Version    int64
	occurredAt time.Time
}

// NewOrderLifecycleEvent builds the event for a transition that produced
// the record after.
func NewOrderLifecycleEvent(t Transition, customerID uuid.UUID, after WorkerRecord, at time.Time) (OrderLifecycleEvent, bool) {
	if _, ok := transitionEventTypes[t]; !ok {
		return OrderLifecycleEvent{}, false
	}
	evt := OrderLifecycleEvent{
		ID:         uuid.New(),
		Transition: t,
		WorkerID:   after.ID,
		CustomerID: customerID,
		Price:      clonePtr(after.Price),
		Version:    after.Version,
		occurredAt: at,
	}
	if after.Scenario != nil {
		evt.Scenario = *after.Scenario
	}
	return evt, true
}

// EventType returns the type of event for routing.
func (e OrderLifecycleEvent) EventType() events.EventType { return transitionEventTypes[e.Transition] }

// OccurredAt returns when the transition was written.
func (e OrderLifecycleEvent) OccurredAt() time.Time { return e.occurredAt }
