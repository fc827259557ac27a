package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store is the raw document collection the audit layer wraps. Implementations
// execute operations as given; every rewrite happens before they are called.
type Store interface {
	Name() string
	InsertOne(ctx context.Context, doc any) error
	InsertMany(ctx context.Context, docs []any) error
	FindOne(ctx context.Context, filter any, opts FindOptions) (bson.Raw, error)
	Find(ctx context.Context, filter any, opts FindOptions) ([]bson.Raw, error)
	FindOneAndUpdate(ctx context.Context, filter, update any, returnAfter bool) (bson.Raw, error)
	UpdateOne(ctx context.Context, filter, update any) (UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update any) (UpdateResult, error)
	ReplaceOne(ctx context.Context, filter, replacement any) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (int64, error)
	DeleteMany(ctx context.Context, filter any) (int64, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	EstimatedDocumentCount(ctx context.Context) (int64, error)
	Distinct(ctx context.Context, field string, filter any) ([]any, error)
	Aggregate(ctx context.Context, pipeline bson.A) ([]bson.Raw, error)
}

// Transactor is implemented by stores that can group calls atomically
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FindOptions are the cursor settings forwarded to the store
type FindOptions struct {
	Sort       bson.D
	Limit      int64
	Skip       int64
	Projection any
}

// UpdateResult reports how many documents a write matched and changed
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult is returned by the delete family. Soft deletes report the
// number of documents moved to the deleted state.
type DeleteResult struct {
	DeletedCount int64
	Soft         bool
}
