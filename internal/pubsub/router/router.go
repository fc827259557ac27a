package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/pubsub"
	"github.com/vidinfra/docvault/internal/sentry"
)

// Router runs the audit event handlers
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter creates a message router. Messages that exhaust their retries are
// moved to the dead letter topic through dlq.
func NewRouter(cfg *config.Configuration, log *logger.Logger, sentry *sentry.Service, dlq pubsub.Publisher) (*Router, error) {
	router, err := message.NewRouter(
		message.RouterConfig{},
		log.GetWatermillLogger(),
	)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(&publisherAdapter{publisher: dlq}, cfg.Events.DLQTopic)
	if err != nil {
		return nil, err
	}

	// order matters: the poison queue must see the error left after retries
	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:          cfg.Events.MaxRetries,
			InitialInterval:     cfg.Events.InitialInterval,
			MaxInterval:         cfg.Events.MaxInterval,
			Multiplier:          cfg.Events.Multiplier,
			MaxElapsedTime:      cfg.Events.MaxElapsedTime,
			RandomizationFactor: 0.5,
			Logger:              log.GetWatermillLogger(),
			OnRetryHook: func(retryNum int, delay time.Duration) {
				log.Infow("retrying message",
					"retry_number", retryNum,
					"max_retries", cfg.Events.MaxRetries,
					"delay", delay,
				)
			},
		}.Middleware,
	)

	return &Router{
		router: router,
		logger: log,
		sentry: sentry,
	}, nil
}

// AddNoPublishHandler adds a handler that doesn't publish messages
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber pubsub.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		&subscriberAdapter{subscriber: subscriber},
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err != nil {
				r.sentry.CaptureException(err)
				r.logger.Errorw("handler failed",
					"handler", handlerName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
			}
			return err
		},
	)

	for _, m := range middlewares {
		handler.AddMiddleware(m)
	}
}

// Run blocks until ctx is cancelled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting router")
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing router")
	return r.router.Close()
}

// publisherAdapter lets a pubsub.Publisher serve as a watermill publisher
type publisherAdapter struct {
	publisher pubsub.Publisher
}

func (p *publisherAdapter) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if err := p.publisher.Publish(msg.Context(), topic, msg); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the pubsub owner closes it
func (p *publisherAdapter) Close() error {
	return nil
}

type subscriberAdapter struct {
	subscriber pubsub.Subscriber
}

func (s *subscriberAdapter) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

func (s *subscriberAdapter) Close() error {
	return nil
}
