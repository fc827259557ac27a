package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
)

type Consumer struct {
	subscriber message.Subscriber
	logger     *logger.Logger
}

// NewConsumer builds a consumer-group subscriber. Subscribe is retried the
// same way the producer retries its connect.
func NewConsumer(cfg *config.Configuration, log *logger.Logger) (*Consumer, error) {
	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Kafka.Brokers,
			ConsumerGroup:         cfg.Kafka.ConsumerGroup,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: cfg.Kafka.GetSaramaConfig(),
		},
		log.GetWatermillLogger(),
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		subscriber: &retryingSubscriber{
			Subscriber: subscriber,
			maxRetries: cfg.Kafka.MaxRetries,
			logger:     log,
		},
		logger: log,
	}, nil
}

func (c *Consumer) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return c.subscriber.Subscribe(ctx, topic)
}

func (c *Consumer) Close() error {
	return c.subscriber.Close()
}

type retryingSubscriber struct {
	message.Subscriber
	maxRetries uint64
	logger     *logger.Logger
}

func (s *retryingSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	var messages <-chan *message.Message

	subscribe := func() error {
		ch, err := s.Subscriber.Subscribe(ctx, topic)
		if err != nil {
			s.logger.Warnw("kafka subscribe failed", "topic", topic, "error", err)
			return err
		}
		messages = ch
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries),
		ctx,
	)
	if err := backoff.Retry(subscribe, policy); err != nil {
		return nil, err
	}
	return messages, nil
}
