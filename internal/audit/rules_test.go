package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func run(t *testing.T, op *Operation) error {
	t.Helper()
	for _, rule := range defaultRules()[op.Family] {
		if err := rule(op); err != nil {
			return err
		}
	}
	return nil
}

func TestReadRestriction(t *testing.T) {
	userFilter := bson.D{{Key: "color", Value: "red"}}

	tests := []struct {
		name   string
		scope  Scope
		filter bson.D
		want   bson.D
	}{
		{
			name:   "empty filter",
			scope:  ScopeLive,
			filter: bson.D{},
			want:   bson.D{{Key: FieldDeletedAt, Value: nil}},
		},
		{
			name:   "user filter",
			scope:  ScopeLive,
			filter: userFilter,
			want: bson.D{{Key: "$and", Value: bson.A{
				userFilter,
				bson.D{{Key: FieldDeletedAt, Value: nil}},
			}}},
		},
		{
			name:   "include deleted",
			scope:  ScopeAll,
			filter: userFilter,
			want:   userFilter,
		},
		{
			name:   "only deleted",
			scope:  ScopeDeleted,
			filter: bson.D{},
			want:   bson.D{{Key: FieldDeletedAt, Value: bson.D{{Key: "$ne", Value: nil}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := newOperation("find", FamilyRead, Options{Scope: tt.scope}, testNow)
			op.Filter = tt.filter
			require.NoError(t, run(t, op))
			assert.Equal(t, tt.want, op.Filter)
		})
	}
}

func TestAggregateStage(t *testing.T) {
	stage := bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$color"}}}}

	op := newOperation("aggregate", FamilyAggregate, Options{}, testNow)
	op.Pipeline = bson.A{stage}
	require.NoError(t, run(t, op))
	require.Len(t, op.Pipeline, 2)
	assert.Equal(t, bson.D{{Key: "$match", Value: liveFilter}}, op.Pipeline[0])
	assert.Equal(t, stage, op.Pipeline[1])

	op = newOperation("aggregate", FamilyAggregate, Options{Scope: ScopeAll}, testNow)
	op.Pipeline = bson.A{stage}
	require.NoError(t, run(t, op))
	assert.Equal(t, bson.A{stage}, op.Pipeline)
}

func TestUpdateCanonicalization(t *testing.T) {
	actor := "alice"
	op := newOperation("updateOne", FamilyUpdate, Options{Actor: &actor}, testNow)
	op.Update = bson.D{
		{Key: "name", Value: "x"},
		{Key: "$inc", Value: bson.D{{Key: "qty", Value: 1}, {Key: FieldVersion, Value: 10}}},
		{Key: "$set", Value: bson.D{{Key: FieldCreatedAt, Value: testNow}}},
	}
	require.NoError(t, run(t, op))

	set, ok := lookup(op.Update, "$set")
	require.True(t, ok)
	assert.Equal(t, bson.D{
		{Key: "name", Value: "x"},
		{Key: FieldUpdatedAt, Value: testNow},
		{Key: FieldUpdatedBy, Value: "alice"},
	}, set)

	inc, ok := lookup(op.Update, "$inc")
	require.True(t, ok)
	assert.Equal(t, bson.D{
		{Key: "qty", Value: 1},
		{Key: FieldVersion, Value: int64(1)},
	}, inc)

	assert.Equal(t, liveFilter, op.Filter)
}

func TestUpdateValidation(t *testing.T) {
	tests := []struct {
		name    string
		update  bson.D
		wantErr func(error) bool
	}{
		{
			name:    "empty update",
			update:  bson.D{},
			wantErr: ierr.IsValidation,
		},
		{
			name:    "operator without document",
			update:  bson.D{{Key: "$set", Value: 5}},
			wantErr: ierr.IsValidation,
		},
		{
			name:    "deleted_at via $set",
			update:  bson.D{{Key: "$set", Value: bson.D{{Key: FieldDeletedAt, Value: testNow}}}},
			wantErr: ierr.IsForbiddenFieldMutation,
		},
		{
			name:    "deleted_at via $min",
			update:  bson.D{{Key: "$min", Value: bson.D{{Key: FieldDeletedAt, Value: testNow}}}},
			wantErr: ierr.IsForbiddenFieldMutation,
		},
		{
			name:    "rename into deleted_at",
			update:  bson.D{{Key: "$rename", Value: bson.D{{Key: "old", Value: "deleted_at.at"}}}},
			wantErr: ierr.IsForbiddenFieldMutation,
		},
		{
			name:    "deleted_by via $set",
			update:  bson.D{{Key: "$set", Value: bson.D{{Key: FieldDeletedBy, Value: "mallory"}}}},
			wantErr: ierr.IsForbiddenFieldMutation,
		},
		{
			name:    "restored_by via $unset",
			update:  bson.D{{Key: "$unset", Value: bson.D{{Key: FieldRestoredBy, Value: ""}}}},
			wantErr: ierr.IsForbiddenFieldMutation,
		},
		{
			name:    "managed fields only",
			update:  bson.D{{Key: "$set", Value: bson.D{{Key: FieldVersion, Value: 99}, {Key: FieldUpdatedAt, Value: testNow}}}},
			wantErr: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := newOperation("updateMany", FamilyUpdate, Options{}, testNow)
			op.Update = tt.update
			err := run(t, op)
			require.Error(t, err)
			assert.True(t, tt.wantErr(err), "unexpected error %v", err)
		})
	}
}

func TestDeleteTranslation(t *testing.T) {
	filter := bson.D{{Key: "color", Value: "red"}}

	op := newOperation("deleteMany", FamilyDelete, Options{}, testNow)
	op.Filter = filter
	require.NoError(t, run(t, op))
	assert.True(t, op.Soft)
	assert.Equal(t, restrict(filter, ScopeLive), op.Filter)
	assert.Equal(t, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: FieldDeletedAt, Value: testNow},
			{Key: FieldDeletedBy, Value: nil},
			{Key: FieldUpdatedAt, Value: testNow},
		}},
		{Key: "$inc", Value: bson.D{{Key: FieldVersion, Value: int64(1)}}},
	}, op.Update)

	op = newOperation("deleteMany", FamilyDelete, Options{Permanent: true, Scope: ScopeLive}, testNow)
	op.Filter = filter
	require.NoError(t, run(t, op))
	assert.False(t, op.Soft)
	assert.Equal(t, filter, op.Filter, "a permanent delete matches every state")
	assert.Nil(t, op.Update)
}

func TestRestoreTranslation(t *testing.T) {
	actor := "bob"
	op := newOperation("bulkRestore", FamilyRestore, Options{Actor: &actor}, testNow)
	require.NoError(t, run(t, op))

	assert.Equal(t, deletedFilter, op.Filter)
	set, _ := lookup(op.Update, "$set")
	v, ok := lookup(set.(bson.D), FieldRestoredBy)
	require.True(t, ok)
	assert.Equal(t, "bob", v)

	op = newOperation("bulkRestore", FamilyRestore, Options{}, testNow)
	require.NoError(t, run(t, op))
	set, _ = lookup(op.Update, "$set")
	_, ok = lookup(set.(bson.D), FieldRestoredBy)
	assert.False(t, ok, "restored_by is kept when no actor is known")
}

func TestReplacementGuards(t *testing.T) {
	op := newOperation("replaceOne", FamilyReplace, Options{}, testNow)
	op.Replacement = bson.D{{Key: "name", Value: "x"}, {Key: FieldDeletedAt, Value: testNow}}
	assert.True(t, ierr.IsForbiddenFieldMutation(run(t, op)))

	op = newOperation("replaceOne", FamilyReplace, Options{}, testNow)
	op.Replacement = bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: "x"}}}}
	assert.True(t, ierr.IsValidation(run(t, op)))

	createdBy := "alice"
	op = newOperation("replaceOne", FamilyReplace, Options{}, testNow)
	op.Replacement = bson.D{
		{Key: FieldID, Value: bson.NewObjectID()},
		{Key: "name", Value: "x"},
		{Key: FieldVersion, Value: int64(99)},
		{Key: FieldDeletedAt, Value: nil},
	}
	require.NoError(t, run(t, op))
	assert.Equal(t, bson.D{{Key: "name", Value: "x"}}, op.Replacement)

	current := &Model{ID: bson.NewObjectID(), CreatedAt: testNow.Add(-time.Hour), CreatedBy: &createdBy, Version: 4}
	doc := completeReplacement(op, current)
	id, _ := lookup(doc, FieldID)
	assert.Equal(t, current.ID, id)
	version, _ := lookup(doc, FieldVersion)
	assert.Equal(t, int64(5), version)
	by, _ := lookup(doc, FieldCreatedBy)
	assert.Equal(t, "alice", by)
	deletedAt, _ := lookup(doc, FieldDeletedAt)
	assert.Nil(t, deletedAt)
}

func TestBuildOptions(t *testing.T) {
	ctx := types.SetUserID(context.Background(), "ctx-user")

	o := buildOptions(ctx, nil)
	require.NotNil(t, o.Actor)
	assert.Equal(t, "ctx-user", *o.Actor)
	assert.Equal(t, ScopeLive, o.Scope)

	o = buildOptions(ctx, []Option{WithActor("explicit"), IncludeDeleted()})
	assert.Equal(t, "explicit", *o.Actor)
	assert.Equal(t, ScopeAll, o.Scope)

	o = buildOptions(ctx, []Option{WithActor("")})
	assert.Nil(t, o.Actor)

	o = buildOptions(context.Background(), nil)
	assert.Nil(t, o.Actor)

	assert.Equal(t, ScopeDeleted, ScopeFrom(types.DeletedScope{OnlyDeleted: true}))
	assert.Equal(t, ScopeAll, ScopeFrom(types.DeletedScope{IncludeDeleted: true}))
	assert.Equal(t, ScopeLive, ScopeFrom(types.DeletedScope{}))
}
