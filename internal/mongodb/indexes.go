package mongodb

import (
	"context"

	"github.com/vidinfra/docvault/internal/audit"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditIndexes are created on every audited collection: default reads
// always filter on deleted_at and lists sort by created_at.
func AuditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: audit.FieldDeletedAt, Value: 1}, {Key: audit.FieldCreatedAt, Value: -1}},
			Options: options.Index().SetName("idx_deleted_at_created_at"),
		},
	}
}

// EnsureIndexes creates the given indexes on collection. Existing indexes
// with the same definition are left alone by the server.
func (c *Client) EnsureIndexes(ctx context.Context, collection string, models []mongo.IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, nil
	}
	names, err := c.db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return nil, wrap(err, "create indexes")
	}
	c.logger.Infow("ensured indexes", "collection", collection, "indexes", names)
	return names, nil
}
