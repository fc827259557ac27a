package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/memstore"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type item struct {
	ID        bson.ObjectID `bson:"_id"`
	Key       string        `bson:"key"`
	Qty       int64         `bson:"qty"`
	DeletedAt *time.Time    `bson:"deleted_at"`
}

var deletedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// seed stores three documents: a is live with a null deleted_at, b has no
// deleted_at at all and c is deleted.
func seed(t *testing.T) *memstore.Collection {
	t.Helper()
	c := memstore.NewCollection("items")
	err := c.InsertMany(context.Background(), []any{
		bson.D{{Key: "key", Value: "a"}, {Key: "qty", Value: 1}, {Key: "tags", Value: bson.A{"x", "y"}}, {Key: "deleted_at", Value: nil}},
		bson.D{{Key: "key", Value: "b"}, {Key: "qty", Value: 5}, {Key: "tags", Value: bson.A{"y"}}},
		bson.D{{Key: "key", Value: "c"}, {Key: "qty", Value: 10}, {Key: "tags", Value: bson.A{"x"}}, {Key: "deleted_at", Value: deletedAt}},
	})
	require.NoError(t, err)
	return c
}

func keys(t *testing.T, docs []bson.Raw) []string {
	t.Helper()
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Lookup("key").StringValue())
	}
	return out
}

func TestInsertMarshalledDocument(t *testing.T) {
	ctx := context.Background()
	c := memstore.NewCollection("items")

	first := item{ID: bson.NewObjectID(), Key: "first", Qty: 2}
	raw, err := bson.Marshal(first)
	require.NoError(t, err)
	require.NoError(t, c.InsertOne(ctx, raw))

	second := item{ID: bson.NewObjectID(), Key: "second", Qty: 3}
	raw, err = bson.Marshal(second)
	require.NoError(t, err)
	require.NoError(t, c.InsertOne(ctx, bson.Raw(raw)))

	require.NoError(t, c.InsertOne(ctx, bson.D{{Key: "key", Value: "third"}}))
	assert.Equal(t, 3, c.Len())

	stored, err := c.FindOne(ctx, bson.D{{Key: "_id", Value: first.ID}}, audit.FindOptions{})
	require.NoError(t, err)
	var got item
	require.NoError(t, bson.Unmarshal(stored, &got))
	assert.Equal(t, first, got)

	err = c.InsertOne(ctx, raw)
	assert.Error(t, err, "duplicate _id")
}

func TestFilters(t *testing.T) {
	c := seed(t)
	sortByKey := audit.FindOptions{Sort: bson.D{{Key: "key", Value: 1}}}

	tests := []struct {
		name   string
		filter any
		want   []string
	}{
		{"empty filter", bson.D{}, []string{"a", "b", "c"}},
		{"null matches missing", bson.M{"deleted_at": nil}, []string{"a", "b"}},
		{"$ne null", bson.M{"deleted_at": bson.M{"$ne": nil}}, []string{"c"}},
		{"$exists false", bson.M{"deleted_at": bson.M{"$exists": false}}, []string{"b"}},
		{"$in", bson.M{"qty": bson.M{"$in": bson.A{1, 10}}}, []string{"a", "c"}},
		{"$nin", bson.M{"qty": bson.M{"$nin": bson.A{1, 10}}}, []string{"b"}},
		{"array contains", bson.M{"tags": "y"}, []string{"a", "b"}},
		{"$lt on dates", bson.M{"deleted_at": bson.M{"$lt": deletedAt.Add(time.Hour)}}, []string{"c"}},
		{"$and", bson.M{"$and": bson.A{
			bson.M{"qty": bson.M{"$gt": 1}},
			bson.M{"deleted_at": nil},
		}}, []string{"b"}},
		{"$or", bson.M{"$or": bson.A{
			bson.M{"key": "a"},
			bson.M{"qty": bson.M{"$gte": 10}},
		}}, []string{"a", "c"}},
		{"$nor", bson.M{"$nor": bson.A{bson.M{"key": "a"}}}, []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := c.Find(context.Background(), tt.filter, sortByKey)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(t, docs))

			count, err := c.CountDocuments(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), count)
		})
	}

	_, err := c.Find(context.Background(), bson.M{"qty": bson.M{"$regex": "1"}}, audit.FindOptions{})
	assert.Error(t, err, "unsupported operators are reported")
}

func TestUpdateOperators(t *testing.T) {
	tests := []struct {
		name    string
		update  any
		wantErr bool
		check   func(t *testing.T, doc bson.Raw)
	}{
		{
			name:   "$set with nested path",
			update: bson.M{"$set": bson.M{"name": "m", "nested.b": 2}},
			check: func(t *testing.T, doc bson.Raw) {
				assert.Equal(t, "m", doc.Lookup("name").StringValue())
				assert.Equal(t, int32(1), doc.Lookup("nested", "a").Int32())
				assert.Equal(t, int32(2), doc.Lookup("nested", "b").Int32())
			},
		},
		{
			name:   "$inc keeps int64",
			update: bson.M{"$inc": bson.M{"qty": int64(2)}},
			check: func(t *testing.T, doc bson.Raw) {
				assert.Equal(t, int64(3), doc.Lookup("qty").Int64())
			},
		},
		{
			name:   "$inc on a missing field",
			update: bson.M{"$inc": bson.M{"hits": 1}},
			check: func(t *testing.T, doc bson.Raw) {
				assert.Equal(t, int32(1), doc.Lookup("hits").Int32())
			},
		},
		{
			name:   "$unset",
			update: bson.M{"$unset": bson.M{"old": ""}},
			check: func(t *testing.T, doc bson.Raw) {
				_, err := doc.LookupErr("old")
				assert.Error(t, err)
				assert.Equal(t, "n", doc.Lookup("name").StringValue())
			},
		},
		{
			name:   "$rename",
			update: bson.M{"$rename": bson.M{"old": "renamed"}},
			check: func(t *testing.T, doc bson.Raw) {
				_, err := doc.LookupErr("old")
				assert.Error(t, err)
				assert.Equal(t, "v", doc.Lookup("renamed").StringValue())
			},
		},
		{
			name:    "_id is immutable",
			update:  bson.M{"$set": bson.M{"_id": bson.NewObjectID()}},
			wantErr: true,
		},
		{
			name:    "unknown operator",
			update:  bson.M{"$mul": bson.M{"qty": 2}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := memstore.NewCollection("items")
			id := bson.NewObjectID()
			require.NoError(t, c.InsertOne(ctx, bson.D{
				{Key: "_id", Value: id},
				{Key: "name", Value: "n"},
				{Key: "qty", Value: int64(1)},
				{Key: "old", Value: "v"},
				{Key: "nested", Value: bson.D{{Key: "a", Value: 1}}},
			}))
			before, _ := c.Raw(id)

			res, err := c.UpdateOne(ctx, bson.M{"_id": id}, tt.update)
			after, ok := c.Raw(id)
			require.True(t, ok)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, before, after, "a failed update leaves the document alone")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), res.MatchedCount)
			assert.Equal(t, int64(1), res.ModifiedCount)
			tt.check(t, after)
		})
	}
}

func TestUpdateManyCountsEveryMatch(t *testing.T) {
	c := seed(t)

	res, err := c.UpdateMany(context.Background(), bson.M{"deleted_at": nil}, bson.M{"$set": bson.M{"qty": 5}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.MatchedCount)
	assert.Equal(t, int64(1), res.ModifiedCount, "b already had qty 5")

	res, err = c.UpdateOne(context.Background(), bson.M{"key": "missing"}, bson.M{"$set": bson.M{"qty": 1}})
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount)
}

func TestReplaceOneKeepsID(t *testing.T) {
	ctx := context.Background()
	c := memstore.NewCollection("items")
	id := bson.NewObjectID()
	require.NoError(t, c.InsertOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "key", Value: "a"}, {Key: "extra", Value: 1}}))

	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, bson.D{{Key: "key", Value: "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(1), res.ModifiedCount)

	doc, ok := c.Raw(id)
	require.True(t, ok)
	assert.Equal(t, id, doc.Lookup("_id").ObjectID())
	assert.Equal(t, "b", doc.Lookup("key").StringValue())
	_, err = doc.LookupErr("extra")
	assert.Error(t, err)

	_, err = c.ReplaceOne(ctx, bson.M{"_id": id}, bson.D{{Key: "_id", Value: bson.NewObjectID()}, {Key: "key", Value: "c"}})
	assert.Error(t, err)

	res, err = c.ReplaceOne(ctx, bson.M{"key": "missing"}, bson.D{{Key: "key", Value: "d"}})
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount)
	assert.Equal(t, 1, c.Len())
}

func TestDeleteAndDistinct(t *testing.T) {
	ctx := context.Background()
	c := seed(t)

	values, err := c.Distinct(ctx, "tags", bson.M{"deleted_at": nil})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"x", "y"}, values)

	n, err := c.DeleteOne(ctx, bson.M{"tags": "y"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, c.Len())
}

func TestAggregate(t *testing.T) {
	c := seed(t)

	out, err := c.Aggregate(context.Background(), bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "deleted_at", Value: nil}}}},
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "y", out[0].Lookup("_id").StringValue())
	assert.Equal(t, int32(2), out[0].Lookup("count").Int32())
	assert.Equal(t, "x", out[1].Lookup("_id").StringValue())
	assert.Equal(t, int32(1), out[1].Lookup("count").Int32())

	out, err = c.Aggregate(context.Background(), bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "qty", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
		bson.D{{Key: "$count", Value: "n"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int32(2), out[0].Lookup("n").Int32())

	_, err = c.Aggregate(context.Background(), bson.A{bson.D{{Key: "$lookup", Value: bson.D{}}}})
	assert.Error(t, err)
}
