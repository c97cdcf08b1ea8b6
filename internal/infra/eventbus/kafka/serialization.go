package kafka

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
)

// payloadEncoder flattens a domain event into protobuf Struct fields.
type payloadEncoder func(evt events.DomainEvent) (map[string]any, error)

var payloadEncoders = map[events.EventType]payloadEncoder{
	dispatch.EventTypeOrderSubmitted: encodeOrderLifecycleEvent,
	dispatch.EventTypeOrderAccepted:  encodeOrderLifecycleEvent,
	dispatch.EventTypeOrderRejected:  encodeOrderLifecycleEvent,
	dispatch.EventTypeOrderCancelled: encodeOrderLifecycleEvent,
	dispatch.EventTypeOrderCompleted: encodeOrderLifecycleEvent,
	dispatch.EventTypeOrderExpired:   encodeOrderLifecycleEvent,
}

func encodeOrderLifecycleEvent(evt events.DomainEvent) (map[string]any, error) {
	e, ok := evt.(dispatch.OrderLifecycleEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s", evt, evt.EventType())
	}

	fields := map[string]any{
		"event_id":    e.ID.String(),
		"transition":  e.Transition.String(),
		"worker_id":   e.WorkerID.String(),
		"customer_id": e.CustomerID.String(),
		"scenario":    e.Scenario,
		"version":     e.Version,
		"price":       nil,
	}
	if e.Price != nil {
		fields["price"] = e.Price.String()
	}
	return fields, nil
}

// SerializeEventEnvelope encodes env as a protobuf Struct in wire format.
func SerializeEventEnvelope(env events.EventEnvelope) ([]byte, error) {
	encode, ok := payloadEncoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("no payload encoder registered for event type: %s", env.Type)
	}

	payload, err := encode(env.Payload)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]any, len(env.Headers))
	for k, v := range env.Headers {
		headers[k] = v
	}

	msg, err := structpb.NewStruct(map[string]any{
		"type":      string(env.Type),
		"key":       env.Key,
		"timestamp": env.Timestamp.UTC().Format(time.RFC3339Nano),
		"headers":   headers,
		"payload":   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope struct: %w", err)
	}

	return proto.Marshal(msg)
}
