package mongodb

import (
	"context"
	"errors"

	"github.com/vidinfra/docvault/internal/audit"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection adapts a driver collection to audit.Store. It executes calls as
// given; rewriting them is the audit layer's job.
type Collection struct {
	coll   *mongo.Collection
	client *Client
}

var (
	_ audit.Store      = (*Collection)(nil)
	_ audit.Transactor = (*Collection)(nil)
)

func (c *Collection) Name() string {
	return c.coll.Name()
}

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return wrap(err, "insert one")
	}
	return nil
}

func (c *Collection) InsertMany(ctx context.Context, docs []any) error {
	if _, err := c.coll.InsertMany(ctx, docs); err != nil {
		return wrap(err, "insert many")
	}
	return nil
}

func (c *Collection) FindOne(ctx context.Context, filter any, opts audit.FindOptions) (bson.Raw, error) {
	o := options.FindOne()
	if len(opts.Sort) > 0 {
		o.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		o.SetSkip(opts.Skip)
	}
	if opts.Projection != nil {
		o.SetProjection(opts.Projection)
	}

	raw, err := c.coll.FindOne(ctx, filter, o).Raw()
	if err != nil {
		return nil, wrap(err, "find one")
	}
	return raw, nil
}

func (c *Collection) Find(ctx context.Context, filter any, opts audit.FindOptions) ([]bson.Raw, error) {
	o := options.Find()
	if len(opts.Sort) > 0 {
		o.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		o.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		o.SetSkip(opts.Skip)
	}
	if opts.Projection != nil {
		o.SetProjection(opts.Projection)
	}

	cursor, err := c.coll.Find(ctx, filter, o)
	if err != nil {
		return nil, wrap(err, "find")
	}
	return drain(ctx, cursor, "find")
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update any, returnAfter bool) (bson.Raw, error) {
	o := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	if returnAfter {
		o.SetReturnDocument(options.After)
	}
	raw, err := c.coll.FindOneAndUpdate(ctx, filter, update, o).Raw()
	if err != nil {
		return nil, wrap(err, "find one and update")
	}
	return raw, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update any) (audit.UpdateResult, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return audit.UpdateResult{}, wrap(err, "update one")
	}
	return audit.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update any) (audit.UpdateResult, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return audit.UpdateResult{}, wrap(err, "update many")
	}
	return audit.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, replacement any) (audit.UpdateResult, error) {
	res, err := c.coll.ReplaceOne(ctx, filter, replacement)
	if err != nil {
		return audit.UpdateResult{}, wrap(err, "replace one")
	}
	return audit.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, wrap(err, "delete one")
	}
	return res.DeletedCount, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrap(err, "delete many")
	}
	return res.DeletedCount, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrap(err, "count documents")
	}
	return n, nil
}

func (c *Collection) EstimatedDocumentCount(ctx context.Context) (int64, error) {
	n, err := c.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, wrap(err, "estimated document count")
	}
	return n, nil
}

func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	res := c.coll.Distinct(ctx, field, filter)
	if err := res.Err(); err != nil {
		return nil, wrap(err, "distinct")
	}
	var values []any
	if err := res.Decode(&values); err != nil {
		return nil, wrap(err, "distinct")
	}
	return values, nil
}

func (c *Collection) Aggregate(ctx context.Context, pipeline bson.A) ([]bson.Raw, error) {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap(err, "aggregate")
	}
	return drain(ctx, cursor, "aggregate")
}

func (c *Collection) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.client.WithTx(ctx, fn)
}

func drain(ctx context.Context, cursor *mongo.Cursor, op string) ([]bson.Raw, error) {
	defer cursor.Close(ctx)

	var out []bson.Raw
	for cursor.Next(ctx) {
		// Current is only valid until the next call
		out = append(out, append(bson.Raw(nil), cursor.Current...))
	}
	if err := cursor.Err(); err != nil {
		return nil, wrap(err, op)
	}
	return out, nil
}

// wrap maps driver errors onto the service sentinels
func wrap(err error, op string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ierr.WithError(err).
			WithHint("The requested document was not found").
			Mark(ierr.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return ierr.WithError(err).
			WithHint("A document with this key already exists").
			Mark(ierr.ErrAlreadyExists)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return ierr.WithError(err).
		WithHintf("Database operation %s failed", op).
		Mark(ierr.ErrDatabase)
}
