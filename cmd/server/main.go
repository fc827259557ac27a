package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	_ "github.com/vidinfra/docvault/docs/swagger"
	"github.com/vidinfra/docvault/internal/api"
	v1 "github.com/vidinfra/docvault/internal/api/v1"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/cache"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/events"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/kafka"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/publisher"
	"github.com/vidinfra/docvault/internal/pubsub"
	pubsubKafka "github.com/vidinfra/docvault/internal/pubsub/kafka"
	"github.com/vidinfra/docvault/internal/pubsub/memory"
	pubsubRouter "github.com/vidinfra/docvault/internal/pubsub/router"
	"github.com/vidinfra/docvault/internal/repository"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/service"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
	"go.uber.org/fx"
)

// @title DocVault API
// @version 1.0
// @description Audited document storage with soft delete
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Localized errors
			i18n.NewTranslator,

			// Cache
			cache.NewCache,

			// Document store
			repository.NewDatabase,

			// Metrics
			provideMetrics,

			// Audit events
			providePubSub,
			provideDLQ,
			provideEventSink,
			provideMonitoring,
			pubsubRouter.NewRouter,
			events.NewHandler,

			// Repositories
			provideRepositoryParams,
			repository.NewNoteRepository,
		),
		sentry.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewNoteService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			registerShutdown,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func providePubSub(cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	if cfg.Events.PubSub == types.KafkaPubSub {
		return pubsubKafka.Connect(cfg, log)
	}
	return memory.NewPubSub(log), nil
}

// provideDLQ parks failed audit events on the same pubsub they came from
func provideDLQ(ps pubsub.PubSub) pubsub.Publisher {
	return ps
}

func provideEventSink(cfg *config.Configuration, ps pubsub.PubSub, log *logger.Logger) audit.EventSink {
	return publisher.NewEventSink(cfg, ps, log)
}

// provideMonitoring returns nil unless events go through kafka
func provideMonitoring(cfg *config.Configuration, log *logger.Logger) *kafka.MonitoringService {
	if cfg.Events.PubSub != types.KafkaPubSub {
		return nil
	}
	return kafka.NewMonitoringService(cfg, log)
}

func provideRepositoryParams(
	db repository.Database,
	c cache.Cache,
	s *sentry.Service,
	log *logger.Logger,
	sink audit.EventSink,
	m *metrics.Metrics,
) repository.RepositoryParams {
	return repository.RepositoryParams{
		Database: db,
		Cache:    c,
		Sentry:   s,
		Logger:   log,
		Sink:     sink,
		Metrics:  m,
	}
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db repository.Database,
	c cache.Cache,
	monitor *kafka.MonitoringService,
	noteService service.NoteService,
) api.Handlers {
	checks := []v1.HealthCheck{
		{Name: "database", Pinger: db},
		{Name: "cache", Pinger: c},
	}
	if monitor != nil {
		checks = append(checks, v1.HealthCheck{Name: "broker", Pinger: monitor})
	}

	return api.Handlers{
		Health: v1.NewHealthHandler(logger, checks...),
		Note:   v1.NewNoteHandler(noteService, logger),
		Events: v1.NewEventsHandler(monitor, cfg, logger),
	}
}

func provideRouter(
	handlers api.Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	translator *i18n.Translator,
	m *metrics.Metrics,
) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, translator, m)
}

// registerShutdown closes the shared connections after every other stop hook
func registerShutdown(lc fx.Lifecycle, db repository.Database, ps pubsub.PubSub, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing connections...")
			return errors.Join(ps.Close(), db.Close(ctx))
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	handler *events.Handler,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, cfg, router, handler, ps, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeConsumer:
		startMessageRouter(lc, cfg, router, handler, ps, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	case types.ModeAWSLambdaConsumer:
		startAWSLambdaConsumer(handler, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *pubsubRouter.Router,
	handler *events.Handler,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	if !cfg.Events.Enabled {
		log.Info("Audit events disabled, not starting the message router")
		return
	}

	handler.Register(cfg, router, ps)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting message router...")
			go func() {
				// the start context ends with OnStart, the router must outlive it
				if err := router.Run(context.Background()); err != nil {
					log.Errorw("message router stopped", "error", err)
				}
			}()
			<-router.Running()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down message router...")
			return router.Close()
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	lambda.Start(ginLambda.ProxyWithContext)
}

func startAWSLambdaConsumer(handler *events.Handler, log *logger.Logger) {
	lambda.Start(func(ctx context.Context, kafkaEvent lambdaEvents.KafkaEvent) error {
		for _, records := range kafkaEvent.Records {
			for _, r := range records {
				payload, err := base64.StdEncoding.DecodeString(r.Value)
				if err != nil {
					log.Errorw("failed to decode record payload",
						"topic", r.Topic,
						"partition", r.Partition,
						"offset", r.Offset,
						"error", err,
					)
					continue
				}

				msg := message.NewMessage(watermill.NewUUID(), payload)
				for _, h := range r.Headers {
					for k, v := range h {
						msg.Metadata.Set(k, string(v))
					}
				}
				msg.SetContext(ctx)

				if err := handler.Handle(msg); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
