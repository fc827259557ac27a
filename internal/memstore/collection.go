// Package memstore is an in-process document store speaking the same
// filter, update and pipeline dialect as MongoDB for the subset the service
// uses. It backs the memory store driver and the tests.
package memstore

import (
	"context"
	"sync"

	"github.com/vidinfra/docvault/internal/audit"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Database groups named collections
type Database struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func NewDatabase() *Database {
	return &Database{
		collections: make(map[string]*Collection),
	}
}

// Collection returns the named collection, creating it on first use
func (d *Database) Collection(name string) *Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		return c
	}
	c := NewCollection(name)
	d.collections[name] = c
	return c
}

// Ping always succeeds; it lets the database stand in for a remote one in
// health checks.
func (d *Database) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Collection keeps documents in insertion order
type Collection struct {
	mu   sync.RWMutex
	name string
	docs []bson.D
}

var _ audit.Store = (*Collection)(nil)

func NewCollection(name string) *Collection {
	return &Collection{name: name}
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) InsertOne(ctx context.Context, doc any) error {
	return c.InsertMany(ctx, []any{doc})
}

func (c *Collection) InsertMany(ctx context.Context, docs []any) error {
	decoded := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		d, err := normalize(doc)
		if err != nil {
			return invalid(err)
		}
		if _, ok := get(d, "_id"); !ok {
			d = append(bson.D{{Key: "_id", Value: bson.NewObjectID()}}, d...)
		}
		decoded = append(decoded, d)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, d := range decoded {
		id, _ := get(d, "_id")
		if c.indexOf(id) >= 0 || containsID(decoded[:i], id) {
			return ierr.NewError("duplicate key").
				WithHint("A document with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	c.docs = append(c.docs, decoded...)
	return nil
}

func (c *Collection) FindOne(ctx context.Context, filter any, opts audit.FindOptions) (bson.Raw, error) {
	opts.Limit = 1
	docs, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, notFound()
	}
	return docs[0], nil
}

func (c *Collection) Find(ctx context.Context, filter any, opts audit.FindOptions) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := normalize(filter)
	if err != nil {
		return nil, invalid(err)
	}

	c.mu.RLock()
	hits, err := c.match(f)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		spec, err := normalize(opts.Sort)
		if err != nil {
			return nil, invalid(err)
		}
		sortDocs(hits, spec)
	}
	if opts.Skip > 0 {
		if int(opts.Skip) >= len(hits) {
			hits = nil
		} else {
			hits = hits[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int(opts.Limit) < len(hits) {
		hits = hits[:opts.Limit]
	}

	var projection bson.D
	if opts.Projection != nil {
		if projection, err = normalize(opts.Projection); err != nil {
			return nil, invalid(err)
		}
	}

	out := make([]bson.Raw, 0, len(hits))
	for _, d := range hits {
		if projection != nil {
			d = project(d, projection)
		}
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, invalid(err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update any, returnAfter bool) (bson.Raw, error) {
	var result bson.D
	err := c.modify(ctx, filter, update, false, func(before, after bson.D) {
		if returnAfter {
			result = after
		} else {
			result = before
		}
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, notFound()
	}
	raw, err := bson.Marshal(result)
	if err != nil {
		return nil, invalid(err)
	}
	return raw, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update any) (audit.UpdateResult, error) {
	return c.update(ctx, filter, update, false)
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update any) (audit.UpdateResult, error) {
	return c.update(ctx, filter, update, true)
}

func (c *Collection) update(ctx context.Context, filter, update any, many bool) (audit.UpdateResult, error) {
	var res audit.UpdateResult
	err := c.modify(ctx, filter, update, many, func(before, after bson.D) {
		res.MatchedCount++
		if !equal(before, after) {
			res.ModifiedCount++
		}
	})
	return res, err
}

// modify applies update to the first (or every) match under the write lock
func (c *Collection) modify(ctx context.Context, filter, update any, many bool, visit func(before, after bson.D)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := normalize(filter)
	if err != nil {
		return invalid(err)
	}
	u, err := normalize(update)
	if err != nil {
		return invalid(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Compute every new version first so a failing update leaves nothing half applied.
	type change struct {
		index int
		after bson.D
	}
	var changes []change
	for i, doc := range c.docs {
		hit, err := matches(doc, f)
		if err != nil {
			return invalid(err)
		}
		if !hit {
			continue
		}
		after, err := applyUpdate(doc, u)
		if err != nil {
			return invalid(err)
		}
		changes = append(changes, change{index: i, after: after})
		if !many {
			break
		}
	}
	for _, ch := range changes {
		before := c.docs[ch.index]
		c.docs[ch.index] = ch.after
		visit(before, ch.after)
	}
	return nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, replacement any) (audit.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return audit.UpdateResult{}, err
	}
	f, err := normalize(filter)
	if err != nil {
		return audit.UpdateResult{}, invalid(err)
	}
	r, err := normalize(replacement)
	if err != nil {
		return audit.UpdateResult{}, invalid(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		hit, err := matches(doc, f)
		if err != nil {
			return audit.UpdateResult{}, invalid(err)
		}
		if !hit {
			continue
		}
		id, _ := get(doc, "_id")
		if newID, ok := get(r, "_id"); ok && !equal(newID, id) {
			return audit.UpdateResult{}, ierr.NewError("replacement changes _id").
				WithHint("The _id field is immutable").
				Mark(ierr.ErrInvalidOperation)
		}
		next := bson.D{{Key: "_id", Value: id}}
		for _, e := range r {
			if e.Key != "_id" {
				next = append(next, e)
			}
		}
		c.docs[i] = next
		res := audit.UpdateResult{MatchedCount: 1}
		if !equal(doc, next) {
			res.ModifiedCount = 1
		}
		return res, nil
	}
	return audit.UpdateResult{}, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	return c.remove(ctx, filter, false)
}

func (c *Collection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	return c.remove(ctx, filter, true)
}

func (c *Collection) remove(ctx context.Context, filter any, many bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, invalid(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]bson.D, 0, len(c.docs))
	var n int64
	for _, doc := range c.docs {
		if many || n == 0 {
			hit, err := matches(doc, f)
			if err != nil {
				return 0, invalid(err)
			}
			if hit {
				n++
				continue
			}
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return n, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := normalize(filter)
	if err != nil {
		return 0, invalid(err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	hits, err := c.match(f)
	return int64(len(hits)), err
}

func (c *Collection) EstimatedDocumentCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.docs)), nil
}

func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := normalize(filter)
	if err != nil {
		return nil, invalid(err)
	}

	c.mu.RLock()
	hits, err := c.match(f)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var values bson.A
	for _, doc := range hits {
		vals, found := resolve(doc, field)
		if !found {
			continue
		}
		for _, v := range vals {
			items := bson.A{v}
			if arr, ok := v.(bson.A); ok {
				items = arr
			}
			for _, item := range items {
				if !contains(values, item) {
					values = append(values, item)
				}
			}
		}
	}
	return []any(values), nil
}

func (c *Collection) Aggregate(ctx context.Context, pipeline bson.A) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wrapped, err := normalize(bson.D{{Key: "pipeline", Value: pipeline}})
	if err != nil {
		return nil, invalid(err)
	}
	stages, _ := wrapped[0].Value.(bson.A)

	c.mu.RLock()
	docs := make([]bson.D, len(c.docs))
	for i, d := range c.docs {
		docs[i] = clone(d).(bson.D)
	}
	c.mu.RUnlock()

	docs, err = runPipeline(docs, stages)
	if err != nil {
		return nil, invalid(err)
	}
	out := make([]bson.Raw, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, invalid(err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// WithTx runs fn directly; every single call is already atomic here.
func (c *Collection) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Len returns the number of stored documents, deleted or not
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Raw returns the stored form of the document with the given id
func (c *Collection) Raw(id bson.ObjectID) (bson.Raw, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	raw, err := bson.Marshal(c.docs[i])
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Clear removes every document
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = nil
}

func (c *Collection) match(filter bson.D) ([]bson.D, error) {
	var hits []bson.D
	for _, doc := range c.docs {
		hit, err := matches(doc, filter)
		if err != nil {
			return nil, invalid(err)
		}
		if hit {
			hits = append(hits, clone(doc).(bson.D))
		}
	}
	return hits, nil
}

func (c *Collection) indexOf(id any) int {
	for i, doc := range c.docs {
		if docID, ok := get(doc, "_id"); ok && equal(docID, id) {
			return i
		}
	}
	return -1
}

func containsID(docs []bson.D, id any) bool {
	for _, doc := range docs {
		if docID, ok := get(doc, "_id"); ok && equal(docID, id) {
			return true
		}
	}
	return false
}

func notFound() error {
	return ierr.NewError("document not found").
		WithHint("The requested document was not found").
		Mark(ierr.ErrNotFound)
}

func invalid(err error) error {
	return ierr.WithError(err).
		WithHint("The query could not be executed").
		Mark(ierr.ErrValidation)
}
