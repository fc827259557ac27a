//go:build integration

package mongodb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/mongodb"
	"github.com/vidinfra/docvault/internal/testutil"
	"github.com/vidinfra/docvault/internal/testutil/containers"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type item struct {
	audit.Model `bson:",inline"`
	Name        string   `bson:"name"`
	Tags        []string `bson:"tags"`
}

type CollectionIntegrationSuite struct {
	suite.Suite
	ctx    context.Context
	client *mongodb.Client
	coll   *audit.Collection[item, *item]
}

func TestCollectionIntegration(t *testing.T) {
	suite.Run(t, new(CollectionIntegrationSuite))
}

func (s *CollectionIntegrationSuite) SetupSuite() {
	mc := containers.NewMongoContainer(s.T())

	cfg := config.GetDefaultConfig()
	cfg.Mongo.URI = mc.URI
	cfg.Mongo.Database = "docvault_test"
	cfg.Mongo.Transactions = true
	cfg.Mongo.ConnectTimeout = 20 * time.Second

	client, err := mongodb.NewClient(cfg, logger.NewNopLogger())
	s.Require().NoError(err)
	s.client = client
}

func (s *CollectionIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(context.Background())
	}
}

func (s *CollectionIntegrationSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	name := "items_" + bson.NewObjectID().Hex()
	_, err := s.client.EnsureIndexes(s.ctx, name, mongodb.AuditIndexes())
	s.Require().NoError(err)
	s.coll = audit.NewCollection[item](s.client.Collection(name))
}

func (s *CollectionIntegrationSuite) TestLifecycle() {
	r := &item{Name: "r", Tags: []string{"a"}}
	s.Require().NoError(s.coll.Create(s.ctx, r))
	s.Equal(int64(1), r.Version)

	_, err := s.coll.UpdateOne(s.ctx, bson.M{"name": "r"}, bson.M{"$addToSet": bson.M{"tags": "b"}})
	s.Require().NoError(err)

	res, err := s.coll.DeleteMany(s.ctx, bson.M{"name": "r"})
	s.Require().NoError(err)
	s.Equal(int64(1), res.DeletedCount)

	_, err = s.coll.FindOne(s.ctx, bson.M{"name": "r"})
	s.True(ierr.IsNotFound(err))

	got, err := s.coll.FindOne(s.ctx, bson.M{"name": "r"}, audit.IncludeDeleted())
	s.Require().NoError(err)
	s.Equal(int64(3), got.Version)
	s.ElementsMatch([]string{"a", "b"}, got.Tags)

	err = s.coll.SoftDelete(s.ctx, got)
	s.True(ierr.IsAlreadyDeleted(err))

	_, err = s.coll.BulkRestore(s.ctx, bson.M{"name": "r"})
	s.Require().NoError(err)
	got, err = s.coll.FindOne(s.ctx, bson.M{"name": "r"})
	s.Require().NoError(err)
	s.Equal(int64(4), got.Version)
}

func (s *CollectionIntegrationSuite) TestReadsAndAggregation() {
	for _, name := range []string{"a", "b", "c"} {
		s.Require().NoError(s.coll.Create(s.ctx, &item{Name: name, Tags: []string{"x", name}}))
	}
	_, err := s.coll.DeleteOne(s.ctx, bson.M{"name": "c"})
	s.Require().NoError(err)

	n, err := s.coll.EstimatedDocumentCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	tags, err := s.coll.Distinct(s.ctx, "tags", bson.M{})
	s.Require().NoError(err)
	s.ElementsMatch([]any{"x", "a", "b"}, tags)

	out, err := s.coll.Aggregate(s.ctx, bson.A{
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	s.Require().NoError(err)
	s.Require().Len(out, 3)
	s.Equal("x", out[2].Lookup("_id").StringValue())
	s.Equal(int32(2), out[2].Lookup("count").Int32())
}

func (s *CollectionIntegrationSuite) TestSaveAndReplaceInTransaction() {
	r := &item{Name: "r"}
	s.Require().NoError(s.coll.Create(s.ctx, r))

	r.Name = "renamed"
	s.Require().NoError(s.coll.Save(s.ctx, r))
	s.Equal(int64(2), r.Version)

	_, err := s.coll.ReplaceOne(s.ctx, bson.M{"_id": r.ID}, bson.M{"name": "replaced"})
	s.Require().NoError(err)

	got, err := s.coll.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("replaced", got.Name)
	s.Equal(int64(3), got.Version)
	s.True(got.CreatedAt.Equal(r.CreatedAt))
}
