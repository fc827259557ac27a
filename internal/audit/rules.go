package audit

import (
	ierr "github.com/vidinfra/docvault/internal/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FamilyRestore is used by Restore and BulkRestore. It is the only family
// allowed to clear deleted_at.
const FamilyRestore Family = "restore"

// defaultRules is the single place where each family's rewrites and guards
// are registered. Rules run in order and before any store call.
func defaultRules() map[Family][]Rule {
	return map[Family][]Rule{
		FamilyRead:      {restrictScope},
		FamilyAggregate: {prependScopeStage},
		FamilyPersist:   {guardPersist},
		FamilyUpdate: {
			canonicalizeUpdate,
			rejectDeletionStateUpdate,
			stripManagedUpdate,
			stampUpdate,
			restrictScope,
		},
		FamilyReplace: {
			rejectDeletionStateReplacement,
			stripManagedReplacement,
			restrictScope,
		},
		FamilyDelete:  {translateDelete},
		FamilyRestore: {translateRestore},
	}
}

func restrictScope(op *Operation) error {
	op.Filter = restrict(op.Filter, op.Opts.Scope)
	return nil
}

func prependScopeStage(op *Operation) error {
	var match bson.D
	switch op.Opts.Scope {
	case ScopeLive:
		match = liveFilter
	case ScopeDeleted:
		match = deletedFilter
	default:
		return nil
	}
	pipeline := make(bson.A, 0, len(op.Pipeline)+1)
	pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	op.Pipeline = append(pipeline, op.Pipeline...)
	return nil
}

// guardPersist stamps new records and checks that a persist of an existing
// one leaves its deletion state alone.
func guardPersist(op *Operation) error {
	m := op.Record
	actor := op.Opts.Actor

	if op.Previous == nil {
		if m.DeletedAt != nil {
			return forbidden(FieldDeletedAt, "A new record cannot be created in the deleted state")
		}
		if m.ID.IsZero() {
			m.ID = bson.NewObjectID()
		}
		m.CreatedAt = op.Now
		m.UpdatedAt = op.Now
		m.CreatedBy = copyString(actor)
		m.UpdatedBy = copyString(actor)
		m.DeletedBy = nil
		m.RestoredBy = nil
		m.Version = 1
		op.Changed = true
		return nil
	}

	var prev Model
	if err := bson.Unmarshal(op.Previous, &prev); err != nil {
		return ierr.WithError(err).
			WithHint("The stored document is malformed").
			Mark(ierr.ErrDatabase)
	}
	if !sameTime(prev.DeletedAt, m.DeletedAt) {
		return forbidden(FieldDeletedAt, "Use delete or restore to change the deletion state")
	}

	changed, err := contentChanged(op.Previous, op.Doc)
	if err != nil {
		return err
	}
	if prev.IsDeleted() && changed {
		return forbidden(FieldDeletedAt, "The record is deleted, restore it before changing it")
	}

	m.CreatedAt = prev.CreatedAt
	m.CreatedBy = copyString(prev.CreatedBy)
	m.DeletedBy = copyString(prev.DeletedBy)
	m.RestoredBy = copyString(prev.RestoredBy)
	m.Version = prev.Version
	if changed {
		m.Version++
	}
	m.UpdatedAt = op.Now
	if actor != nil {
		m.UpdatedBy = copyString(actor)
	}

	op.Changed = changed
	op.Filter = bson.D{
		{Key: FieldID, Value: prev.ID},
		{Key: FieldVersion, Value: prev.Version},
	}
	return nil
}

// canonicalizeUpdate folds plain top-level keys into $set and turns every
// operator argument into a document.
func canonicalizeUpdate(op *Operation) error {
	var out, plain bson.D
	for _, e := range op.Update {
		if !isOperator(e.Key) {
			plain = append(plain, e)
			continue
		}
		fields, err := toDoc(e.Value)
		if err != nil {
			return ierr.NewErrorf("update operator %s expects a document", e.Key).
				WithHintf("The %s operator must be given a document", e.Key).
				Mark(ierr.ErrValidation)
		}
		out = mergeOperator(out, e.Key, fields)
	}
	if len(plain) > 0 {
		out = mergeOperator(out, "$set", plain)
	}
	if len(out) == 0 {
		return ierr.NewError("empty update").
			WithHint("The update does not change any field").
			Mark(ierr.ErrValidation)
	}
	op.Update = out
	return nil
}

// rejectDeletionStateUpdate refuses any operator addressing the deletion
// state fields, including clearing them or renaming to or from them.
func rejectDeletionStateUpdate(op *Operation) error {
	for _, e := range op.Update {
		fields := e.Value.(bson.D)
		for _, f := range fields {
			if field, ok := deletionField(f.Key); ok {
				return forbidden(field, "Use delete or restore to change the deletion state")
			}
			if e.Key == "$rename" {
				target, _ := f.Value.(string)
				if field, ok := deletionField(target); ok {
					return forbidden(field, "Use delete or restore to change the deletion state")
				}
			}
		}
	}
	return nil
}

func deletionField(path string) (string, bool) {
	for _, field := range deletionFields {
		if touches(path, field) {
			return field, true
		}
	}
	return "", false
}

func stripManagedUpdate(op *Operation) error {
	out := make(bson.D, 0, len(op.Update))
	for _, e := range op.Update {
		fields := e.Value.(bson.D)
		kept := make(bson.D, 0, len(fields))
		for _, f := range fields {
			if !isManaged(f.Key) {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			out = append(out, bson.E{Key: e.Key, Value: kept})
		}
	}
	// a payload of managed keys only would be a pure audit touch
	if len(out) == 0 {
		return ierr.NewError("empty update").
			WithHint("The update does not change any field").
			Mark(ierr.ErrValidation)
	}
	op.Update = out
	return nil
}

// stampUpdate adds the bookkeeping every accepted update carries: one version
// increment per call, whatever the payload.
func stampUpdate(op *Operation) error {
	setFields := bson.D{{Key: FieldUpdatedAt, Value: op.Now}}
	if op.Opts.Actor != nil {
		setFields = append(setFields, bson.E{Key: FieldUpdatedBy, Value: *op.Opts.Actor})
	}
	op.Update = mergeOperator(op.Update, "$set", setFields)
	op.Update = mergeOperator(op.Update, "$inc", bson.D{{Key: FieldVersion, Value: int64(1)}})
	return nil
}

func rejectDeletionStateReplacement(op *Operation) error {
	for _, e := range op.Replacement {
		if isOperator(e.Key) {
			return ierr.NewErrorf("replacement contains operator %s", e.Key).
				WithHint("A replacement must be a plain document").
				Mark(ierr.ErrValidation)
		}
	}
	if v, ok := lookup(op.Replacement, FieldDeletedAt); ok && !isNull(v) {
		return forbidden(FieldDeletedAt, "Use delete or restore to change the deletion state")
	}
	return nil
}

// stripManagedReplacement drops the fields that are carried over from the
// stored document once it has been read.
func stripManagedReplacement(op *Operation) error {
	op.Replacement = without(op.Replacement,
		FieldID, FieldCreatedAt, FieldCreatedBy, FieldUpdatedAt, FieldUpdatedBy,
		FieldDeletedAt, FieldDeletedBy, FieldRestoredBy, FieldVersion)
	return nil
}

// completeReplacement builds the document written by ReplaceOne from the
// caller's payload and the stored document it replaces.
func completeReplacement(op *Operation, current *Model) bson.D {
	doc := bson.D{{Key: FieldID, Value: current.ID}}
	doc = append(doc, op.Replacement...)

	updatedBy := current.UpdatedBy
	if op.Opts.Actor != nil {
		updatedBy = op.Opts.Actor
	}
	return append(doc,
		bson.E{Key: FieldCreatedAt, Value: current.CreatedAt},
		bson.E{Key: FieldCreatedBy, Value: nullable(current.CreatedBy)},
		bson.E{Key: FieldUpdatedAt, Value: op.Now},
		bson.E{Key: FieldUpdatedBy, Value: nullable(updatedBy)},
		bson.E{Key: FieldDeletedAt, Value: nil},
		bson.E{Key: FieldDeletedBy, Value: nil},
		bson.E{Key: FieldRestoredBy, Value: nullable(current.RestoredBy)},
		bson.E{Key: FieldVersion, Value: current.Version + 1},
	)
}

// translateDelete turns a delete into a soft delete of the live matches.
// Permanently() skips the translation and the filter is used as given.
func translateDelete(op *Operation) error {
	if op.Opts.Permanent {
		return nil
	}
	setFields := bson.D{
		{Key: FieldDeletedAt, Value: op.Now},
		{Key: FieldDeletedBy, Value: nullable(op.Opts.Actor)},
		{Key: FieldUpdatedAt, Value: op.Now},
	}
	if op.Opts.Actor != nil {
		setFields = append(setFields, bson.E{Key: FieldUpdatedBy, Value: *op.Opts.Actor})
	}
	op.Update = bson.D{
		{Key: "$set", Value: setFields},
		{Key: "$inc", Value: bson.D{{Key: FieldVersion, Value: int64(1)}}},
	}
	op.Filter = restrict(op.Filter, ScopeLive)
	op.Soft = true
	return nil
}

// translateRestore clears the deletion state of the deleted matches.
// restored_by is only written when an actor is known.
func translateRestore(op *Operation) error {
	setFields := bson.D{
		{Key: FieldDeletedAt, Value: nil},
		{Key: FieldDeletedBy, Value: nil},
		{Key: FieldUpdatedAt, Value: op.Now},
	}
	if op.Opts.Actor != nil {
		setFields = append(setFields,
			bson.E{Key: FieldRestoredBy, Value: *op.Opts.Actor},
			bson.E{Key: FieldUpdatedBy, Value: *op.Opts.Actor},
		)
	}
	op.Update = bson.D{
		{Key: "$set", Value: setFields},
		{Key: "$inc", Value: bson.D{{Key: FieldVersion, Value: int64(1)}}},
	}
	op.Filter = restrict(op.Filter, ScopeDeleted)
	return nil
}

func mergeOperator(update bson.D, operator string, fields bson.D) bson.D {
	for i, e := range update {
		if e.Key != operator {
			continue
		}
		existing := e.Value.(bson.D)
		for _, f := range fields {
			existing = set(existing, f.Key, f.Value)
		}
		update[i].Value = existing
		return update
	}
	return append(update, bson.E{Key: operator, Value: fields})
}

func isManaged(path string) bool {
	for _, field := range managedFields {
		if touches(path, field) {
			return true
		}
	}
	return false
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func forbidden(field, hint string) error {
	return ierr.NewErrorf("mutation of %s is not allowed", field).
		WithHint(hint).
		WithReportableDetails(map[string]any{"field": field}).
		Mark(ierr.ErrForbiddenFieldMutation)
}
