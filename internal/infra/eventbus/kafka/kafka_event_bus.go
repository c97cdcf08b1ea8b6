// Package kafka provides a Kafka-based implementation of the event bus for
// order lifecycle notifications.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
	"github.com/ahrav/handyhire/internal/domain/events"
	"github.com/ahrav/handyhire/internal/infra/eventbus/kafka/tracing"
	"github.com/ahrav/handyhire/pkg/common/logger"
)

// EventBusMetrics defines metrics operations needed to monitor Kafka publishing.
type EventBusMetrics interface {
	IncMessagePublished(ctx context.Context, topic string)
	IncPublishError(ctx context.Context, topic string)
}

// EventBusConfig contains settings for publishing to Kafka.
type EventBusConfig struct {
	// OrderEventsTopic receives every order lifecycle event.
	OrderEventsTopic string
}

var _ events.EventBus = (*KafkaEventBus)(nil)

// KafkaEventBus implements the EventBus interface on top of a sync producer.
type KafkaEventBus struct {
	producer sarama.SyncProducer
	// client is set when the bus owns the underlying connection.
	client sarama.Client

	// Maps domain event types to Kafka topic names.
	topics map[events.EventType]string

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics EventBusMetrics
}

// NewEventBus creates an event bus publishing through producer.
func NewEventBus(
	producer sarama.SyncProducer,
	cfg *EventBusConfig,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*KafkaEventBus, error) {
	if cfg.OrderEventsTopic == "" {
		return nil, errors.New("order events topic is required")
	}

	topics := map[events.EventType]string{
		dispatch.EventTypeOrderSubmitted: cfg.OrderEventsTopic,
		dispatch.EventTypeOrderAccepted:  cfg.OrderEventsTopic,
		dispatch.EventTypeOrderRejected:  cfg.OrderEventsTopic,
		dispatch.EventTypeOrderCancelled: cfg.OrderEventsTopic,
		dispatch.EventTypeOrderCompleted: cfg.OrderEventsTopic,
		dispatch.EventTypeOrderExpired:   cfg.OrderEventsTopic,
	}

	return &KafkaEventBus{
		producer: producer,
		topics:   topics,
		logger:   logger.With("component", "kafka_event_bus"),
		tracer:   tracer,
		metrics:  metrics,
	}, nil
}

// Publish sends an envelope to the topic mapped to its event type. The key
// keeps every event for one worker on the same partition, in order.
func (k *KafkaEventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	topic, ok := k.topics[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type '%s', no topic mapped", event.Type)
	}

	ctx, span := tracing.StartProducerSpan(ctx, topic, k.tracer)
	defer span.End()

	pParams := events.ApplyOptions(opts)
	if pParams.Key != "" {
		event.Key = pParams.Key
		span.SetAttributes(attribute.String("event.key", event.Key))
	}
	if len(pParams.Headers) > 0 {
		if event.Headers == nil {
			event.Headers = make(map[string]string, len(pParams.Headers))
		}
		maps.Copy(event.Headers, pParams.Headers)
	}

	msgBytes, err := SerializeEventEnvelope(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "serialization failed")
		k.incPublishError(ctx, topic)
		return fmt.Errorf("failed to serialize payload for event %s: %w", event.Type, err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.Key),
		Value: sarama.ByteEncoder(msgBytes),
	}
	kafkaMsg.Headers = append(kafkaMsg.Headers, sarama.RecordHeader{
		Key:   []byte("event_type"),
		Value: []byte(event.Type),
	})
	for hk, hv := range event.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, sarama.RecordHeader{Key: []byte(hk), Value: []byte(hv)})
	}

	tracing.InjectTraceContext(ctx, kafkaMsg)

	partition, offset, sendErr := k.producer.SendMessage(kafkaMsg)
	if sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, "send failed")
		k.incPublishError(ctx, topic)
		return fmt.Errorf("failed to send message to kafka topic %s: %w", topic, sendErr)
	}

	if k.metrics != nil {
		k.metrics.IncMessagePublished(ctx, topic)
	}
	k.logger.Debug(ctx, "Published message to Kafka",
		"topic", topic,
		"partition", partition,
		"offset", offset,
		"event_type", event.Type,
		"key", event.Key,
	)

	return nil
}

func (k *KafkaEventBus) incPublishError(ctx context.Context, topic string) {
	if k.metrics != nil {
		k.metrics.IncPublishError(ctx, topic)
	}
}

// Close flushes and closes the producer.
func (k *KafkaEventBus) Close() error {
	if err := k.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	if k.client != nil && !k.client.Closed() {
		if err := k.client.Close(); err != nil {
			return fmt.Errorf("failed to close kafka client: %w", err)
		}
	}
	return nil
}
