package audit

import (
	"context"
	"time"

	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collection wraps a Store and routes every call through the rules of its
// operation family. T is the domain struct, which must embed Model inline:
//
//	type Note struct {
//		audit.Model `bson:",inline"`
//		Title string `bson:"title"`
//	}
type Collection[T any, P interface {
	*T
	Record
}] struct {
	store    Store
	rules    map[Family][]Rule
	clock    func() time.Time
	logger   *logger.Logger
	sink     EventSink
	observer Observer
}

type collectionConfig struct {
	rules    map[Family][]Rule
	clock    func() time.Time
	logger   *logger.Logger
	sink     EventSink
	observer Observer
}

// CollectionOption configures NewCollection
type CollectionOption func(*collectionConfig)

func WithLogger(l *logger.Logger) CollectionOption {
	return func(c *collectionConfig) {
		c.logger = l
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(clock func() time.Time) CollectionOption {
	return func(c *collectionConfig) {
		c.clock = clock
	}
}

func WithEventSink(sink EventSink) CollectionOption {
	return func(c *collectionConfig) {
		c.sink = sink
	}
}

func WithObserver(observer Observer) CollectionOption {
	return func(c *collectionConfig) {
		c.observer = observer
	}
}

// WithRule appends rule to the rules of family, after the built-in ones
func WithRule(family Family, rule Rule) CollectionOption {
	return func(c *collectionConfig) {
		c.rules[family] = append(c.rules[family], rule)
	}
}

// NewCollection augments store with the audit and soft-delete behavior for
// records of type T.
func NewCollection[T any, P interface {
	*T
	Record
}](store Store, opts ...CollectionOption) *Collection[T, P] {
	cfg := &collectionConfig{
		rules:  defaultRules(),
		clock:  time.Now,
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Collection[T, P]{
		store:    store,
		rules:    cfg.rules,
		clock:    cfg.clock,
		logger:   cfg.logger.With("collection", store.Name()),
		sink:     cfg.sink,
		observer: cfg.observer,
	}
}

// Name of the underlying collection
func (c *Collection[T, P]) Name() string {
	return c.store.Name()
}

// Create persists a new record: id, timestamps, actor and version 1 are
// stamped on rec.
func (c *Collection[T, P]) Create(ctx context.Context, rec P, opts ...Option) error {
	op := c.operation(ctx, "create", FamilyPersist, opts)
	m := rec.AuditModel()
	before := *m
	op.Record = m

	if err := c.apply(op); err != nil {
		return c.finish(op, err)
	}
	raw, err := bson.Marshal(rec)
	if err != nil {
		*m = before
		return c.finish(op, encodeError(err))
	}
	if err := c.store.InsertOne(ctx, raw); err != nil {
		*m = before
		return c.finish(op, err)
	}
	m.snapshot = raw

	c.emit(ctx, newEvent(c.Name(), ActionCreated, op, m.ID.Hex(), 1, 1))
	return c.finish(op, nil)
}

// CreateMany checks and stamps every record before a single insert
func (c *Collection[T, P]) CreateMany(ctx context.Context, recs []P, opts ...Option) error {
	op := c.operation(ctx, "createMany", FamilyPersist, opts)
	befores := make([]Model, len(recs))
	docs := make([]any, len(recs))
	raws := make([]bson.Raw, len(recs))

	rollback := func(n int) {
		for i := 0; i < n; i++ {
			*recs[i].AuditModel() = befores[i]
		}
	}
	for i, rec := range recs {
		m := rec.AuditModel()
		befores[i] = *m
		op.Record = m
		if err := c.apply(op); err != nil {
			rollback(i + 1)
			return c.finish(op, err)
		}
		raw, err := bson.Marshal(rec)
		if err != nil {
			rollback(i + 1)
			return c.finish(op, encodeError(err))
		}
		docs[i] = raw
		raws[i] = raw
	}
	if len(docs) == 0 {
		return c.finish(op, nil)
	}
	if err := c.store.InsertMany(ctx, docs); err != nil {
		rollback(len(recs))
		return c.finish(op, err)
	}

	for i, rec := range recs {
		m := rec.AuditModel()
		m.snapshot = raws[i]
		c.emit(ctx, newEvent(c.Name(), ActionCreated, op, m.ID.Hex(), 1, 1))
	}
	return c.finish(op, nil)
}

// Save persists rec. New records are created; existing ones are compared
// with the stored copy, version is bumped when a non-audit field changed and
// the write is guarded by the version that was read.
func (c *Collection[T, P]) Save(ctx context.Context, rec P, opts ...Option) error {
	m := rec.AuditModel()
	if m.IsNew() {
		return c.Create(ctx, rec, opts...)
	}

	op := c.operation(ctx, "save", FamilyPersist, opts)
	op.Record = m
	before := *m

	err := c.withTx(ctx, func(ctx context.Context) error {
		prev := m.snapshot
		if prev == nil {
			raw, err := c.store.FindOne(ctx, bson.D{{Key: FieldID, Value: m.ID}}, FindOptions{})
			if err != nil {
				return err
			}
			// without a snapshot the caller's version is the only proof the
			// copy is current
			stored, _ := raw.Lookup(FieldVersion).AsInt64OK()
			if stored != m.Version {
				return versionConflict(m.ID)
			}
			prev = raw
		}
		doc, err := bson.Marshal(rec)
		if err != nil {
			return encodeError(err)
		}
		op.Previous = prev
		op.Doc = doc

		if err := c.apply(op); err != nil {
			return err
		}
		raw, err := bson.Marshal(rec)
		if err != nil {
			return encodeError(err)
		}
		res, err := c.store.ReplaceOne(ctx, op.Filter, raw)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return versionConflict(m.ID)
		}
		m.snapshot = raw
		return nil
	})
	if err != nil {
		*m = before
		return c.finish(op, err)
	}

	c.emit(ctx, newEvent(c.Name(), ActionUpdated, op, m.ID.Hex(), 1, 1))
	return c.finish(op, nil)
}

func (c *Collection[T, P]) FindOne(ctx context.Context, filter any, opts ...Option) (P, error) {
	op := c.operation(ctx, "findOne", FamilyRead, opts)
	if err := c.prepareFilter(op, filter); err != nil {
		return nil, c.finish(op, err)
	}
	raw, err := c.store.FindOne(ctx, op.Filter, findOptions(op.Opts))
	if err != nil {
		return nil, c.finish(op, err)
	}
	rec, err := c.decode(raw)
	return rec, c.finish(op, err)
}

func (c *Collection[T, P]) FindByID(ctx context.Context, id bson.ObjectID, opts ...Option) (P, error) {
	return c.FindOne(ctx, bson.D{{Key: FieldID, Value: id}}, opts...)
}

func (c *Collection[T, P]) Find(ctx context.Context, filter any, opts ...Option) ([]P, error) {
	op := c.operation(ctx, "find", FamilyRead, opts)
	if err := c.prepareFilter(op, filter); err != nil {
		return nil, c.finish(op, err)
	}
	raws, err := c.store.Find(ctx, op.Filter, findOptions(op.Opts))
	if err != nil {
		return nil, c.finish(op, err)
	}
	recs := make([]P, 0, len(raws))
	for _, raw := range raws {
		rec, err := c.decode(raw)
		if err != nil {
			return nil, c.finish(op, err)
		}
		recs = append(recs, rec)
	}
	return recs, c.finish(op, nil)
}

func (c *Collection[T, P]) CountDocuments(ctx context.Context, filter any, opts ...Option) (int64, error) {
	op := c.operation(ctx, "countDocuments", FamilyRead, opts)
	if err := c.prepareFilter(op, filter); err != nil {
		return 0, c.finish(op, err)
	}
	n, err := c.store.CountDocuments(ctx, op.Filter)
	return n, c.finish(op, err)
}

// EstimatedDocumentCount uses the store's estimate only when deleted
// documents are included; otherwise it is an exact filtered count.
func (c *Collection[T, P]) EstimatedDocumentCount(ctx context.Context, opts ...Option) (int64, error) {
	op := c.operation(ctx, "estimatedDocumentCount", FamilyRead, opts)
	if err := c.prepareFilter(op, nil); err != nil {
		return 0, c.finish(op, err)
	}
	if len(op.Filter) == 0 {
		n, err := c.store.EstimatedDocumentCount(ctx)
		return n, c.finish(op, err)
	}
	n, err := c.store.CountDocuments(ctx, op.Filter)
	return n, c.finish(op, err)
}

func (c *Collection[T, P]) Distinct(ctx context.Context, field string, filter any, opts ...Option) ([]any, error) {
	op := c.operation(ctx, "distinct", FamilyRead, opts)
	if err := c.prepareFilter(op, filter); err != nil {
		return nil, c.finish(op, err)
	}
	values, err := c.store.Distinct(ctx, field, op.Filter)
	return values, c.finish(op, err)
}

// Aggregate runs pipeline, which may be a bson.A, []bson.D or []any. The
// deletion-state stage is inserted in front of it.
func (c *Collection[T, P]) Aggregate(ctx context.Context, pipeline any, opts ...Option) ([]bson.Raw, error) {
	op := c.operation(ctx, "aggregate", FamilyAggregate, opts)
	stages, err := toPipeline(pipeline)
	if err != nil {
		return nil, c.finish(op, err)
	}
	op.Pipeline = stages
	if err := c.apply(op); err != nil {
		return nil, c.finish(op, err)
	}
	out, err := c.store.Aggregate(ctx, op.Pipeline)
	return out, c.finish(op, err)
}

func (c *Collection[T, P]) UpdateOne(ctx context.Context, filter, update any, opts ...Option) (UpdateResult, error) {
	return c.update(ctx, "updateOne", filter, update, false, opts)
}

func (c *Collection[T, P]) UpdateMany(ctx context.Context, filter, update any, opts ...Option) (UpdateResult, error) {
	return c.update(ctx, "updateMany", filter, update, true, opts)
}

func (c *Collection[T, P]) UpdateByID(ctx context.Context, id bson.ObjectID, update any, opts ...Option) (UpdateResult, error) {
	return c.update(ctx, "updateByID", bson.D{{Key: FieldID, Value: id}}, update, false, opts)
}

func (c *Collection[T, P]) update(ctx context.Context, name string, filter, update any, many bool, opts []Option) (UpdateResult, error) {
	op := c.operation(ctx, name, FamilyUpdate, opts)
	if err := c.prepareUpdate(op, filter, update); err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	var res UpdateResult
	var err error
	if many {
		res, err = c.store.UpdateMany(ctx, op.Filter, op.Update)
	} else {
		res, err = c.store.UpdateOne(ctx, op.Filter, op.Update)
	}
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	if res.ModifiedCount > 0 {
		c.emit(ctx, newEvent(c.Name(), ActionUpdated, op, "", res.MatchedCount, res.ModifiedCount))
	}
	return res, c.finish(op, nil)
}

// FindOneAndUpdate applies the update rules and returns the matched record,
// as it was before the update unless ReturnAfter is given.
func (c *Collection[T, P]) FindOneAndUpdate(ctx context.Context, filter, update any, opts ...Option) (P, error) {
	op := c.operation(ctx, "findOneAndUpdate", FamilyUpdate, opts)
	if err := c.prepareUpdate(op, filter, update); err != nil {
		return nil, c.finish(op, err)
	}
	raw, err := c.store.FindOneAndUpdate(ctx, op.Filter, op.Update, op.Opts.ReturnAfter)
	if err != nil {
		return nil, c.finish(op, err)
	}
	rec, err := c.decode(raw)
	if err != nil {
		return nil, c.finish(op, err)
	}

	c.emit(ctx, newEvent(c.Name(), ActionUpdated, op, rec.AuditModel().ID.Hex(), 1, 1))
	return rec, c.finish(op, nil)
}

// ReplaceOne swaps the body of the first match for replacement. Audit fields
// are carried over from the stored document and the write is guarded by its
// version.
func (c *Collection[T, P]) ReplaceOne(ctx context.Context, filter, replacement any, opts ...Option) (UpdateResult, error) {
	op := c.operation(ctx, "replaceOne", FamilyReplace, opts)
	f, err := toDoc(filter)
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}
	r, err := toDoc(replacement)
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}
	op.Filter = f
	op.Replacement = r
	if err := c.apply(op); err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	var res UpdateResult
	var id bson.ObjectID
	err = c.withTx(ctx, func(ctx context.Context) error {
		raw, err := c.store.FindOne(ctx, op.Filter, FindOptions{})
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil
			}
			return err
		}
		var current Model
		if err := bson.Unmarshal(raw, &current); err != nil {
			return encodeError(err)
		}
		if current.IsDeleted() {
			return forbidden(FieldDeletedAt, "The record is deleted, restore it before replacing it")
		}

		id = current.ID
		guard := bson.D{{Key: FieldID, Value: current.ID}, {Key: FieldVersion, Value: current.Version}}
		res, err = c.store.ReplaceOne(ctx, guard, completeReplacement(op, &current))
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return versionConflict(current.ID)
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	if res.MatchedCount > 0 {
		c.emit(ctx, newEvent(c.Name(), ActionReplaced, op, id.Hex(), res.MatchedCount, res.ModifiedCount))
	}
	return res, c.finish(op, nil)
}

// DeleteOne soft-deletes the first live match
func (c *Collection[T, P]) DeleteOne(ctx context.Context, filter any, opts ...Option) (DeleteResult, error) {
	return c.delete(ctx, "deleteOne", filter, false, opts)
}

// DeleteMany soft-deletes every live match
func (c *Collection[T, P]) DeleteMany(ctx context.Context, filter any, opts ...Option) (DeleteResult, error) {
	return c.delete(ctx, "deleteMany", filter, true, opts)
}

func (c *Collection[T, P]) DeleteByID(ctx context.Context, id bson.ObjectID, opts ...Option) (DeleteResult, error) {
	return c.delete(ctx, "deleteByID", bson.D{{Key: FieldID, Value: id}}, false, opts)
}

// PurgeOne physically removes the first match, deleted or not
func (c *Collection[T, P]) PurgeOne(ctx context.Context, filter any, opts ...Option) (DeleteResult, error) {
	return c.delete(ctx, "purgeOne", filter, false, append(opts[:len(opts):len(opts)], Permanently()))
}

// PurgeMany physically removes every match, deleted or not
func (c *Collection[T, P]) PurgeMany(ctx context.Context, filter any, opts ...Option) (DeleteResult, error) {
	return c.delete(ctx, "purgeMany", filter, true, append(opts[:len(opts):len(opts)], Permanently()))
}

func (c *Collection[T, P]) delete(ctx context.Context, name string, filter any, many bool, opts []Option) (DeleteResult, error) {
	op := c.operation(ctx, name, FamilyDelete, opts)
	f, err := toDoc(filter)
	if err != nil {
		return DeleteResult{}, c.finish(op, err)
	}
	op.Filter = f
	if err := c.apply(op); err != nil {
		return DeleteResult{}, c.finish(op, err)
	}

	if op.Soft {
		var res UpdateResult
		if many {
			res, err = c.store.UpdateMany(ctx, op.Filter, op.Update)
		} else {
			res, err = c.store.UpdateOne(ctx, op.Filter, op.Update)
		}
		if err != nil {
			return DeleteResult{}, c.finish(op, err)
		}
		if res.ModifiedCount > 0 {
			c.emit(ctx, newEvent(c.Name(), ActionDeleted, op, "", res.MatchedCount, res.ModifiedCount))
		}
		return DeleteResult{DeletedCount: res.ModifiedCount, Soft: true}, c.finish(op, nil)
	}

	var n int64
	if many {
		n, err = c.store.DeleteMany(ctx, op.Filter)
	} else {
		n, err = c.store.DeleteOne(ctx, op.Filter)
	}
	if err != nil {
		return DeleteResult{}, c.finish(op, err)
	}

	c.logger.Infow("physically removed documents", "operation", name, "count", n)
	if n > 0 {
		c.emit(ctx, newEvent(c.Name(), ActionPurged, op, "", n, n))
	}
	return DeleteResult{DeletedCount: n}, c.finish(op, nil)
}

func (c *Collection[T, P]) operation(ctx context.Context, name string, family Family, opts []Option) *Operation {
	return newOperation(name, family, buildOptions(ctx, opts), normalize(c.clock()))
}

func (c *Collection[T, P]) apply(op *Operation) error {
	for _, rule := range c.rules[op.Family] {
		if err := rule(op); err != nil {
			c.logger.Debugw("operation rejected",
				"operation", op.Name,
				"family", op.Family,
				"error", err)
			return err
		}
	}
	return nil
}

func (c *Collection[T, P]) prepareFilter(op *Operation, filter any) error {
	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	op.Filter = f
	return c.apply(op)
}

func (c *Collection[T, P]) prepareUpdate(op *Operation, filter, update any) error {
	if isPipeline(update) {
		return ierr.NewError("pipeline updates are not supported").
			WithHint("Use an update document instead of a pipeline").
			Mark(ierr.ErrInvalidOperation)
	}
	f, err := toDoc(filter)
	if err != nil {
		return err
	}
	u, err := toDoc(update)
	if err != nil {
		return err
	}
	op.Filter = f
	op.Update = u
	return c.apply(op)
}

func (c *Collection[T, P]) finish(op *Operation, err error) error {
	if c.observer != nil {
		c.observer.Observe(c.Name(), op, err)
	}
	return err
}

func (c *Collection[T, P]) emit(ctx context.Context, event Event) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Publish(ctx, event); err != nil {
		c.logger.Errorw("failed to publish audit event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err)
	}
}

func (c *Collection[T, P]) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := c.store.(Transactor); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(ctx)
}

func (c *Collection[T, P]) decode(raw bson.Raw) (P, error) {
	rec := P(new(T))
	if err := bson.Unmarshal(raw, rec); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The stored document could not be decoded").
			Mark(ierr.ErrDatabase)
	}
	rec.AuditModel().snapshot = append(bson.Raw(nil), raw...)
	return rec, nil
}

func findOptions(o Options) FindOptions {
	return FindOptions{
		Sort:       o.Sort,
		Limit:      o.Limit,
		Skip:       o.Skip,
		Projection: o.Projection,
	}
}

func toPipeline(pipeline any) (bson.A, error) {
	switch p := pipeline.(type) {
	case nil:
		return bson.A{}, nil
	case bson.A:
		return append(bson.A{}, p...), nil
	case []bson.D:
		out := make(bson.A, 0, len(p))
		for _, stage := range p {
			out = append(out, stage)
		}
		return out, nil
	case []any:
		return append(bson.A{}, p...), nil
	}
	return nil, ierr.NewError("unsupported pipeline type").
		WithHint("An aggregation pipeline must be a list of stages").
		Mark(ierr.ErrValidation)
}

func isPipeline(update any) bool {
	switch update.(type) {
	case bson.A, []bson.D, []any:
		return true
	}
	return false
}

func encodeError(err error) error {
	return ierr.WithError(err).
		WithHint("The record could not be encoded").
		Mark(ierr.ErrValidation)
}

func versionConflict(id bson.ObjectID) error {
	return ierr.NewError("record changed since it was read").
		WithHint("The record was modified concurrently, reload it and try again").
		WithReportableDetails(map[string]any{"id": id.Hex()}).
		Mark(ierr.ErrVersionConflict)
}
