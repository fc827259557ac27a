package internal

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vidinfra/docvault/internal/api/dto"
	"github.com/vidinfra/docvault/internal/cache"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/publisher"
	"github.com/vidinfra/docvault/internal/pubsub"
	pubsubKafka "github.com/vidinfra/docvault/internal/pubsub/kafka"
	"github.com/vidinfra/docvault/internal/pubsub/memory"
	"github.com/vidinfra/docvault/internal/repository"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/service"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
)

// env is what every script needs to reach the configured stores
type env struct {
	cfg      *config.Configuration
	log      *logger.Logger
	database repository.Database
	pubsub   pubsub.PubSub
	notes    service.NoteService
}

func setup() (*env, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	validator.NewValidator()

	database, err := repository.NewDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	c, err := cache.NewCache(cfg, log)
	if err != nil {
		return nil, err
	}

	var ps pubsub.PubSub
	if cfg.Events.PubSub == types.KafkaPubSub {
		ps, err = pubsubKafka.Connect(cfg, log)
		if err != nil {
			return nil, err
		}
	} else {
		ps = memory.NewPubSub(log)
	}

	repo := repository.NewNoteRepository(repository.RepositoryParams{
		Database: database,
		Cache:    c,
		Sentry:   sentry.NewSentryService(cfg, log),
		Logger:   log,
		Sink:     publisher.NewEventSink(cfg, ps, log),
		Metrics:  metrics.New(prometheus.NewRegistry()),
	})

	return &env{
		cfg:      cfg,
		log:      log,
		database: database,
		pubsub:   ps,
		notes:    service.NewNoteService(service.NewServiceParams(log, cfg, repo)),
	}, nil
}

func (e *env) close() error {
	return errors.Join(e.pubsub.Close(), e.database.Close(context.Background()))
}

// scriptContext acts as the user given in USER_ID, anonymous when unset
func scriptContext(userID string) context.Context {
	ctx := types.SetRequestID(context.Background(), types.GenerateUUID())
	if userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}
	return ctx
}

func noteRequest(title, body string, tags []string) dto.CreateNoteRequest {
	return dto.CreateNoteRequest{Title: title, Body: body, Tags: tags}
}
