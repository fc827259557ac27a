package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/fx"
)

// IClient defines the document store operations the rest of the service needs
type IClient interface {
	// WithTx wraps the given function in a transaction when transactions are enabled
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// Collection returns the named collection as an audit.Store
	Collection(name string) *Collection

	Ping(ctx context.Context) error
}

// Client wraps mongo.Client with connection retries and transaction management
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    config.MongoConfig
	logger *logger.Logger
}

// Module provides an fx.Option to integrate the mongo client with the application
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewClient),
	)
}

// NewClient connects to mongo, retrying with exponential backoff until the
// server answers a ping or the retry budget is spent.
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	mcfg := cfg.Mongo

	opts := options.Client().
		ApplyURI(mcfg.URI).
		SetConnectTimeout(mcfg.ConnectTimeout).
		SetLoggerOptions(options.Logger().
			SetSink(log.GetMongoSink()).
			SetComponentLevel(options.LogComponentConnection, options.LogLevelInfo))
	if mcfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(mcfg.MaxPoolSize)
	}

	var client *mongo.Client
	attempt := 0
	connect := func() error {
		attempt++
		c, err := mongo.Connect(opts)
		if err != nil {
			log.Warnw("mongo connect failed", "attempt", attempt, "error", err)
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(mcfg))
		defer cancel()
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			log.Warnw("mongo ping failed", "attempt", attempt, "error", err)
			return err
		}
		client = c
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), mcfg.MaxRetries)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not connect to mongo after %d attempts", attempt).
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to mongo", "database", mcfg.Database, "attempts", attempt)
	return &Client{
		client: client,
		db:     client.Database(mcfg.Database),
		cfg:    mcfg,
		logger: log,
	}, nil
}

func connectTimeout(cfg config.MongoConfig) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return cfg.ConnectTimeout
}

// Collection returns the named collection as an audit.Store
func (c *Client) Collection(name string) *Collection {
	return &Collection{
		coll:   c.db.Collection(name),
		client: c,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return ierr.WithError(err).
			WithHint("Mongo is not reachable").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// WithTx wraps the given function in a transaction. Calls made inside a
// running transaction join it.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.cfg.Transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := c.client.StartSession()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not start a database session").
			Mark(ierr.ErrDatabase)
	}
	defer session.EndSession(ctx)

	// Ensure transaction is aborted on panic
	defer func() {
		if v := recover(); v != nil {
			c.logger.Errorw("aborting transaction due to panic", "panic", v)
			_ = session.AbortTransaction(context.Background())
			panic(v)
		}
	}()

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx)
	})
	if err != nil {
		c.logger.Errorw("transaction failed", "error", err)
		return fmt.Errorf("running transaction: %w", err)
	}

	c.logger.Debugw("committed transaction")
	return nil
}
