package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const profileCollection = "portfolios"

type mongoProfile struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	profile.Document `bson:",inline"`
}

type mongoProfileRepo struct {
	backend *Backend[*mongo.Database]
	logger  logger.Logger
}

// NewMongoProfileRepo orders documents by updatedAt and then by ObjectID,
// which grows with insertion order.
func NewMongoProfileRepo(backend *Backend[*mongo.Database], logger logger.Logger) profile.Repository {
	return &mongoProfileRepo{backend: backend, logger: logger}
}

func (r *mongoProfileRepo) GetCurrent(ctx context.Context) (*profile.Document, error) {
	db, err := r.backend.Get(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}})
	var m mongoProfile
	if err := db.Collection(profileCollection).FindOne(ctx, bson.D{}, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperror.NewInternal("failed to query profile", err)
	}

	doc := m.Document
	doc.ID = m.ID.Hex()
	return &doc, nil
}

// Replace is not transactional on Mongo: a reader between the delete and the
// insert sees no document, which GetCurrent reports as the empty state.
func (r *mongoProfileRepo) Replace(ctx context.Context, doc *profile.Document, preserveExisting bool) (*profile.Document, error) {
	db, err := r.backend.Get(ctx)
	if err != nil {
		return nil, err
	}
	coll := db.Collection(profileCollection)

	if !preserveExisting {
		res, err := coll.DeleteMany(ctx, bson.D{})
		if err != nil {
			return nil, apperror.NewInternal("failed to clear profiles", err)
		}
		r.logger.Info("Cleared existing profile documents", zap.Int64("deleted", res.DeletedCount))
	}

	stored := *doc
	stored.ID = ""
	stored.Stamp(time.Now().Truncate(time.Millisecond))

	res, err := coll.InsertOne(ctx, mongoProfile{Document: stored})
	if err != nil {
		return nil, apperror.NewInternal("failed to insert profile", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		stored.ID = oid.Hex()
	}
	return &stored, nil
}
