package kafka

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/kafka"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/pubsub"
)

type PubSub struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	logger   *logger.Logger
}

// NewPubSub creates a kafka-backed pubsub from a connected producer and consumer
func NewPubSub(
	log *logger.Logger,
	producer *kafka.Producer,
	consumer *kafka.Consumer,
) pubsub.PubSub {
	return &PubSub{
		producer: producer,
		consumer: consumer,
		logger:   log,
	}
}

// Connect builds the producer and consumer with their retry policies
func Connect(cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	producer, err := kafka.NewProducer(cfg, log)
	if err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(cfg, log)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}

	return NewPubSub(log, producer, consumer), nil
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.producer.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.consumer.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return errors.Join(p.producer.Close(), p.consumer.Close())
}
