package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/handyhire/pkg/common/logger"
)

// ClientConfig contains all configuration needed for Kafka client setup.
type ClientConfig struct {
	Brokers  []string
	ClientID string
}

// NewClient creates and configures a Kafka client for publishing.
func NewClient(cfg *ClientConfig) (sarama.Client, error) {
	return sarama.NewClient(cfg.Brokers, newProducerConfig(cfg.ClientID))
}

func newProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID

	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 250 * time.Millisecond

	config.Version = sarama.V3_6_0_0
	return config
}

// ConnectEventBus creates a KafkaEventBus, retrying the client and producer
// setup with exponential backoff while the cluster comes up.
func ConnectEventBus(
	clientCfg *ClientConfig,
	cfg *EventBusConfig,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*KafkaEventBus, error) {
	if cfg.OrderEventsTopic == "" {
		return nil, errors.New("order events topic is required")
	}

	var eventBus *KafkaEventBus

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		client, err := NewClient(clientCfg)
		if err != nil {
			return fmt.Errorf("creating client: %w", err)
		}

		producer, err := sarama.NewSyncProducerFromClient(client)
		if err != nil {
			client.Close()
			return fmt.Errorf("creating producer: %w", err)
		}

		eventBus, err = NewEventBus(producer, cfg, logger, metrics, tracer)
		if err != nil {
			producer.Close()
			client.Close()
			return fmt.Errorf("creating event bus: %w", err)
		}
		eventBus.client = client
		return nil
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect event bus after retries: %w", err)
	}

	return eventBus, nil
}
