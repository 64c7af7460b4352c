package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wm_kafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// partitionKeyMetadata is the message metadata key used as the Kafka partition key.
const partitionKeyMetadata = "partition_key"

type Config struct {
	ClusterConfig   *sarama.Config
	BrokerAddresses []string
	Topic           string
}

// Publisher publishes payloads to a single Kafka topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

// NewPublisher creates a Publisher backed by a synchronous watermill Kafka publisher.
func NewPublisher(cfg *Config) (*Publisher, error) {
	saramaPublisherConfig := wm_kafka.DefaultSaramaSyncPublisherConfig()
	if cfg.ClusterConfig != nil {
		saramaPublisherConfig.Version = cfg.ClusterConfig.Version
	}

	publisher, err := wm_kafka.NewPublisher(
		wm_kafka.PublisherConfig{
			Brokers: cfg.BrokerAddresses,
			Marshaler: wm_kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
				return msg.Metadata.Get(partitionKeyMetadata), nil
			}),
			OverwriteSaramaConfig: saramaPublisherConfig,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewPublisherWith(publisher, cfg.Topic), nil
}

// NewPublisherWith wraps an existing watermill publisher.
func NewPublisherWith(publisher message.Publisher, topic string) *Publisher {
	return &Publisher{
		publisher: publisher,
		topic:     topic,
	}
}

// Publish sends payload to the topic, partitioned by key.
func (p *Publisher) Publish(ctx context.Context, key string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(partitionKeyMetadata, key)
	msg.SetContext(ctx)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.publisher.Close()
}
