package repository

import (
	"context"

	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/cache"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/domain/note"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/memstore"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/mongodb"
	"github.com/vidinfra/docvault/internal/repository/document"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/types"
)

// Database hands out the raw collections repositories wrap
type Database interface {
	Store(name string) audit.Store
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewDatabase opens the configured store driver
func NewDatabase(cfg *config.Configuration, log *logger.Logger) (Database, error) {
	if cfg.Store.Driver == types.StoreDriverMemory {
		log.Warn("using the in-memory document store, data is lost on restart")
		return &memoryDatabase{db: memstore.NewDatabase()}, nil
	}

	client, err := mongodb.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return &mongoDatabase{client: client}, nil
}

// NewMemoryDatabase is the memory driver, exposed for tests and scripts
func NewMemoryDatabase() Database {
	return &memoryDatabase{db: memstore.NewDatabase()}
}

type RepositoryParams struct {
	Database Database
	Cache    cache.Cache
	Sentry   *sentry.Service
	Logger   *logger.Logger
	Sink     audit.EventSink
	Metrics  *metrics.Metrics
}

func NewNoteRepository(p RepositoryParams) note.Repository {
	var opts []audit.CollectionOption
	if p.Sink != nil {
		opts = append(opts, audit.WithEventSink(p.Sink))
	}
	if p.Metrics != nil {
		opts = append(opts, audit.WithObserver(p.Metrics))
	}
	return document.NewNoteRepository(p.Database.Store(note.CollectionName), p.Cache, p.Sentry, p.Logger, opts...)
}

type mongoDatabase struct {
	client *mongodb.Client
}

func (d *mongoDatabase) Store(name string) audit.Store {
	return d.client.Collection(name)
}

func (d *mongoDatabase) Ping(ctx context.Context) error {
	return d.client.Ping(ctx)
}

func (d *mongoDatabase) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type memoryDatabase struct {
	db *memstore.Database
}

func (d *memoryDatabase) Store(name string) audit.Store {
	return d.db.Collection(name)
}

func (d *memoryDatabase) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *memoryDatabase) Close(context.Context) error {
	return nil
}
