package audit

import (
	"context"

	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// SoftDelete moves rec to the deleted state. The write only succeeds if the
// stored document is still live at the version rec was read at; otherwise the
// stored copy decides which error is returned.
func (c *Collection[T, P]) SoftDelete(ctx context.Context, rec P, opts ...Option) error {
	op := c.operation(ctx, "softDelete", FamilyDelete, opts)
	op.Opts.Permanent = false
	m := rec.AuditModel()
	before := *m

	if err := m.markDeleted(op.Opts.Actor, op.Now); err != nil {
		return c.finish(op, err)
	}
	op.Filter = bson.D{{Key: FieldID, Value: m.ID}, {Key: FieldVersion, Value: before.Version}}
	if err := c.apply(op); err != nil {
		*m = before
		return c.finish(op, err)
	}

	res, err := c.store.UpdateOne(ctx, op.Filter, op.Update)
	if err != nil {
		*m = before
		return c.finish(op, err)
	}
	if res.MatchedCount == 0 {
		*m = before
		return c.finish(op, c.reconcile(ctx, rec, true))
	}
	c.refreshSnapshot(rec)

	c.emit(ctx, newEvent(c.Name(), ActionDeleted, op, m.ID.Hex(), 1, 1))
	return c.finish(op, nil)
}

// Restore moves rec back to the live state. restored_by is only changed
// when an actor is known.
func (c *Collection[T, P]) Restore(ctx context.Context, rec P, opts ...Option) error {
	op := c.operation(ctx, "restore", FamilyRestore, opts)
	m := rec.AuditModel()
	before := *m

	if err := m.markRestored(op.Opts.Actor, op.Now); err != nil {
		return c.finish(op, err)
	}
	op.Filter = bson.D{{Key: FieldID, Value: m.ID}, {Key: FieldVersion, Value: before.Version}}
	if err := c.apply(op); err != nil {
		*m = before
		return c.finish(op, err)
	}

	res, err := c.store.UpdateOne(ctx, op.Filter, op.Update)
	if err != nil {
		*m = before
		return c.finish(op, err)
	}
	if res.MatchedCount == 0 {
		*m = before
		return c.finish(op, c.reconcile(ctx, rec, false))
	}
	c.refreshSnapshot(rec)

	c.emit(ctx, newEvent(c.Name(), ActionRestored, op, m.ID.Hex(), 1, 1))
	return c.finish(op, nil)
}

// BulkSoftDelete soft-deletes every live document matching filter.
// Documents that are already deleted are left untouched.
func (c *Collection[T, P]) BulkSoftDelete(ctx context.Context, filter any, opts ...Option) (UpdateResult, error) {
	op := c.operation(ctx, "bulkSoftDelete", FamilyDelete, opts)
	op.Opts.Permanent = false
	return c.bulk(ctx, op, filter, ActionDeleted)
}

// BulkRestore restores every deleted document matching filter
func (c *Collection[T, P]) BulkRestore(ctx context.Context, filter any, opts ...Option) (UpdateResult, error) {
	op := c.operation(ctx, "bulkRestore", FamilyRestore, opts)
	return c.bulk(ctx, op, filter, ActionRestored)
}

func (c *Collection[T, P]) bulk(ctx context.Context, op *Operation, filter any, action Action) (UpdateResult, error) {
	f, err := toDoc(filter)
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}
	op.Filter = f
	if err := c.apply(op); err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	res, err := c.store.UpdateMany(ctx, op.Filter, op.Update)
	if err != nil {
		return UpdateResult{}, c.finish(op, err)
	}

	c.logger.Debugw("bulk lifecycle update",
		"operation", op.Name,
		"matched", res.MatchedCount,
		"modified", res.ModifiedCount)
	if res.ModifiedCount > 0 {
		c.emit(ctx, newEvent(c.Name(), action, op, "", res.MatchedCount, res.ModifiedCount))
	}
	return res, c.finish(op, nil)
}

// reconcile explains a conditional write that matched nothing by reading the
// stored copy. rec is refreshed from storage when the deletion state is the
// reason.
func (c *Collection[T, P]) reconcile(ctx context.Context, rec P, deleting bool) error {
	m := rec.AuditModel()
	raw, err := c.store.FindOne(ctx, bson.D{{Key: FieldID, Value: m.ID}}, FindOptions{})
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHint("The record no longer exists").
				WithReportableDetails(map[string]any{"id": m.ID.Hex()}).
				Mark(ierr.ErrNotFound)
		}
		return err
	}

	var stored Model
	if err := bson.Unmarshal(raw, &stored); err != nil {
		return encodeError(err)
	}
	if stored.IsDeleted() != deleting {
		return versionConflict(m.ID)
	}

	fresh, err := c.decode(raw)
	if err != nil {
		return err
	}
	*rec = *fresh
	if deleting {
		return alreadyDeleted(m.ID)
	}
	return notDeleted(m.ID)
}

func (c *Collection[T, P]) refreshSnapshot(rec P) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		rec.AuditModel().snapshot = nil
		return
	}
	rec.AuditModel().snapshot = raw
}
