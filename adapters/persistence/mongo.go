package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const mongoConnectTimeout = 10 * time.Second

func NewMongoDatabase(ctx context.Context, uri, database string, log logger.Logger) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("do not create mongo client: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo failed: %w", err)
	}

	log.Info("Connect MongoDB successfully.")
	return client.Database(database), nil
}

// NewMongoBackend returns a disabled backend when uri is empty.
func NewMongoBackend(uri, database string, log logger.Logger) *Backend[*mongo.Database] {
	if uri == "" {
		log.Warn("MONGODB_URI not set. /api/profile will return 204 until configured.")
		return NewBackend[*mongo.Database]("mongo", nil, nil, log)
	}
	return NewBackend("mongo",
		func(ctx context.Context) (*mongo.Database, error) { return NewMongoDatabase(ctx, uri, database, log) },
		func(db *mongo.Database) { _ = db.Client().Disconnect(context.Background()) },
		log,
	)
}
