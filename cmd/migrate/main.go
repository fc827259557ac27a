package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/vidinfra/docvault/internal/audit"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/domain/note"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/mongodb"
	"github.com/vidinfra/docvault/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collectionIndexes lists the indexes each collection needs beyond the
// audit ones
var collectionIndexes = map[string][]mongo.IndexModel{
	note.CollectionName: {
		{
			Keys:    bson.D{{Key: "tags", Value: 1}, {Key: audit.FieldDeletedAt, Value: 1}},
			Options: options.Index().SetName("idx_tags_deleted_at"),
		},
	},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the indexes without creating them")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.Store.Driver != types.StoreDriverMongo {
		logger.Infow("Nothing to migrate for this store driver", "driver", cfg.Store.Driver)
		return
	}

	if *dryRun {
		for name, extra := range collectionIndexes {
			for _, model := range append(mongodb.AuditIndexes(), extra...) {
				logger.Infow("Index", "collection", name, "keys", model.Keys)
			}
		}
		return
	}

	client, err := mongodb.NewClient(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to mongo", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	defer client.Disconnect(ctx)

	logger.Info("Ensuring indexes...")
	for name, extra := range collectionIndexes {
		if _, err := client.EnsureIndexes(ctx, name, append(mongodb.AuditIndexes(), extra...)); err != nil {
			logger.Fatalw("Failed to create indexes", "collection", name, "error", err)
		}
	}
	logger.Info("Migration completed successfully")
}
