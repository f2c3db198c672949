package persistence

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const resumeBucketName = "resumes"

type gridFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	ChunkSize  int32              `bson:"chunkSize"`
	UploadDate time.Time          `bson:"uploadDate"`
	Filename   string             `bson:"filename"`
	Metadata   struct {
		ContentType string  `bson:"contentType"`
		MirrorURL   *string `bson:"mirrorUrl,omitempty"`
	} `bson:"metadata"`
}

func (g *gridFile) toDomain() *resume.File {
	return &resume.File{
		ID:          g.ID.Hex(),
		Filename:    g.Filename,
		ContentType: g.Metadata.ContentType,
		Length:      g.Length,
		ChunkSize:   int(g.ChunkSize),
		UploadedAt:  g.UploadDate.UTC(),
		MirrorURL:   g.Metadata.MirrorURL,
	}
}

type gridFSResumeStore struct {
	backend *Backend[*mongo.Database]
	logger  logger.Logger
}

// NewGridFSResumeStore keeps files in the "resumes" GridFS bucket. The files
// document is only written when the upload stream closes, so aborted uploads
// never become visible.
func NewGridFSResumeStore(backend *Backend[*mongo.Database], log logger.Logger) resume.Store {
	return &gridFSResumeStore{backend: backend, logger: log}
}

func (s *gridFSResumeStore) bucket(ctx context.Context) (*mongo.Database, *gridfs.Bucket, error) {
	db, err := s.backend.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(resumeBucketName).SetChunkSizeBytes(resume.ChunkSize))
	if err != nil {
		return nil, nil, apperror.NewUnavailable("failed to open gridfs bucket", err)
	}
	return db, b, nil
}

func (s *gridFSResumeStore) files(db *mongo.Database) *mongo.Collection {
	return db.Collection(resumeBucketName + ".files")
}

func (s *gridFSResumeStore) Put(ctx context.Context, r io.Reader, filename, contentType string) (*resume.File, error) {
	db, b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	us, err := b.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, apperror.NewStorageWrite("failed to open upload stream", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = us.SetWriteDeadline(deadline)
	}

	if _, err := io.Copy(us, r); err != nil {
		if abortErr := us.Abort(); abortErr != nil {
			s.logger.Warn("Failed to abort gridfs upload", zap.Error(abortErr))
		}
		return nil, apperror.NewStorageWrite("failed to write upload stream", err)
	}
	if err := us.Close(); err != nil {
		return nil, apperror.NewStorageWrite("failed to finalize upload stream", err)
	}

	oid, ok := us.FileID.(primitive.ObjectID)
	if !ok {
		return nil, apperror.NewStorageWrite("unexpected gridfs file id type", nil)
	}
	f, err := s.findOne(ctx, db, bson.M{"_id": oid}, nil)
	if err != nil {
		return nil, apperror.NewStorageWrite("failed to read back stored file", err)
	}

	s.logger.Info("Stored resume", zap.String("file_id", f.ID), zap.Int64("length", f.Length))
	return f, nil
}

func (s *gridFSResumeStore) findOne(ctx context.Context, db *mongo.Database, filter any, opts *options.FindOneOptions) (*resume.File, error) {
	var g gridFile
	var err error
	if opts != nil {
		err = s.files(db).FindOne(ctx, filter, opts).Decode(&g)
	} else {
		err = s.files(db).FindOne(ctx, filter).Decode(&g)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("resume", "")
		}
		return nil, apperror.NewInternal("failed to query resume files", err)
	}
	return g.toDomain(), nil
}

func (s *gridFSResumeStore) openStream(ctx context.Context, b *gridfs.Bucket, f *resume.File, oid primitive.ObjectID) (io.ReadCloser, error) {
	ds, err := b.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, apperror.NewNotFound("resume", f.ID)
		}
		return nil, apperror.NewInternal("failed to open download stream", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ds.SetReadDeadline(deadline)
	}
	return ds, nil
}

func (s *gridFSResumeStore) Open(ctx context.Context, id string) (*resume.File, io.ReadCloser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, apperror.NewNotFound("resume", id)
	}
	db, b, err := s.bucket(ctx)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.findOne(ctx, db, bson.M{"_id": oid}, nil)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NewNotFound("resume", id)
		}
		return nil, nil, err
	}
	body, err := s.openStream(ctx, b, f, oid)
	if err != nil {
		return nil, nil, err
	}
	return f, body, nil
}

func (s *gridFSResumeStore) OpenLatest(ctx context.Context) (*resume.File, io.ReadCloser, error) {
	db, b, err := s.bucket(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: -1}, {Key: "_id", Value: -1}})
	f, err := s.findOne(ctx, db, bson.M{}, opts)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NewNotFound("resume", "latest")
		}
		return nil, nil, err
	}
	oid, _ := primitive.ObjectIDFromHex(f.ID)
	body, err := s.openStream(ctx, b, f, oid)
	if err != nil {
		return nil, nil, err
	}
	return f, body, nil
}

func (s *gridFSResumeStore) SetMirrorURL(ctx context.Context, id string, url string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NewNotFound("resume", id)
	}
	db, err := s.backend.Get(ctx)
	if err != nil {
		return err
	}

	res, err := s.files(db).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"metadata.mirrorUrl": url}})
	if err != nil {
		return apperror.NewInternal("failed to set resume mirror url", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("resume", id)
	}
	return nil
}
