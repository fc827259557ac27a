package kafka

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
)

type Producer struct {
	publisher message.Publisher
	logger    *logger.Logger
}

// NewProducer connects a sync publisher to the configured brokers, retrying
// with exponential backoff while the brokers come up
func NewProducer(cfg *config.Configuration, log *logger.Logger) (*Producer, error) {
	var publisher message.Publisher

	connect := func() error {
		p, err := kafka.NewPublisher(
			kafka.PublisherConfig{
				Brokers:               cfg.Kafka.Brokers,
				Marshaler:             kafka.DefaultMarshaler{},
				OverwriteSaramaConfig: cfg.Kafka.GetSaramaConfig(),
			},
			log.GetWatermillLogger(),
		)
		if err != nil {
			log.Warnw("kafka producer not ready", "brokers", cfg.Kafka.Brokers, "error", err)
			return err
		}
		publisher = p
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Kafka.MaxRetries)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, err
	}

	log.Infow("kafka producer connected", "brokers", cfg.Kafka.Brokers)
	return &Producer{publisher: publisher, logger: log}, nil
}

func (p *Producer) Publish(topic string, msgs ...*message.Message) error {
	return p.publisher.Publish(topic, msgs...)
}

func (p *Producer) PublishPayload(topic string, payload []byte) error {
	return p.PublishWithID(topic, payload, watermill.NewUUID())
}

func (p *Producer) PublishWithID(topic string, payload []byte, id string) error {
	if id == "" {
		id = watermill.NewUUID()
	}

	msg := message.NewMessage(id, payload)
	return p.publisher.Publish(topic, msg)
}

func (p *Producer) Close() error {
	return p.publisher.Close()
}
