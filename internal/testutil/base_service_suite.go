package testutil

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/cache"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/domain/note"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/publisher"
	"github.com/vidinfra/docvault/internal/pubsub"
	"github.com/vidinfra/docvault/internal/pubsub/memory"
	"github.com/vidinfra/docvault/internal/repository"
	"github.com/vidinfra/docvault/internal/sentry"
	"github.com/vidinfra/docvault/internal/types"
	"github.com/vidinfra/docvault/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	NoteRepo note.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites.
// Every test gets a fresh in-memory database, cache and pubsub.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	database repository.Database
	cache    cache.Cache
	pubsub   pubsub.PubSub
	sink     *RecordingSink
	metrics  *metrics.Metrics
	sentry   *sentry.Service
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Cache.Enabled = true
	cfg.Events.Enabled = true
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	_ = s.pubsub.Close()
	_ = s.database.Close(context.Background())
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.database = repository.NewMemoryDatabase()
	s.cache = cache.NewInMemoryCache(s.config.Cache)
	s.pubsub = memory.NewPubSub(s.logger)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.sink = &RecordingSink{next: publisher.NewAuditPublisher(s.pubsub, s.config.Events.Topic, s.logger)}

	s.stores = Stores{
		NoteRepo: repository.NewNoteRepository(repository.RepositoryParams{
			Database: s.database,
			Cache:    s.cache,
			Sentry:   s.sentry,
			Logger:   s.logger,
			Sink:     s.sink,
			Metrics:  s.metrics,
		}),
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDatabase() repository.Database {
	return s.database
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetPubSub returns the pubsub audit events are published to
func (s *BaseServiceTestSuite) GetPubSub() pubsub.PubSub {
	return s.pubsub
}

// GetEvents returns the audit events published since the test started
func (s *BaseServiceTestSuite) GetEvents() []audit.Event {
	return s.sink.Events()
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
