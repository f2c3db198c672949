package persistence

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type postgresResumeStore struct {
	backend *Backend[*pgxpool.Pool]
	logger  logger.Logger
}

// NewPostgresResumeStore stores files as a resume_files row plus fixed-size
// rows in resume_chunks, written in a single transaction.
func NewPostgresResumeStore(backend *Backend[*pgxpool.Pool], log logger.Logger) resume.Store {
	return &postgresResumeStore{backend: backend, logger: log}
}

var psqlResume = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const resumeFileColumns = "id, filename, content_type, length, chunk_size, uploaded_at, mirror_url"

func scanResumeFile(row pgx.Row) (*resume.File, error) {
	f := &resume.File{}
	var id uuid.UUID
	var mirrorURL sql.NullString

	err := row.Scan(&id, &f.Filename, &f.ContentType, &f.Length, &f.ChunkSize, &f.UploadedAt, &mirrorURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("resume", "")
		}
		return nil, apperror.NewInternal("failed to scan resume row", err)
	}
	f.ID = id.String()
	if mirrorURL.Valid {
		f.MirrorURL = &mirrorURL.String
	}
	return f, nil
}

func (s *postgresResumeStore) Put(ctx context.Context, r io.Reader, filename, contentType string) (*resume.File, error) {
	pool, err := s.backend.Get(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewStorageWrite("failed to begin resume transaction", err)
	}
	defer tx.Rollback(ctx)

	f := &resume.File{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		ChunkSize:   resume.ChunkSize,
		UploadedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO resume_files (id, filename, content_type, length, chunk_size, uploaded_at) VALUES ($1, $2, $3, 0, $4, $5)`,
		f.ID, f.Filename, f.ContentType, f.ChunkSize, f.UploadedAt,
	)
	if err != nil {
		return nil, apperror.NewStorageWrite("failed to insert resume metadata", err)
	}

	buf := make([]byte, resume.ChunkSize)
	for n := 0; ; n++ {
		read, rerr := io.ReadFull(r, buf)
		if read > 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO resume_chunks (file_id, n, data) VALUES ($1, $2, $3)`,
				f.ID, n, buf[:read],
			); err != nil {
				return nil, apperror.NewStorageWrite("failed to insert resume chunk", err)
			}
			f.Length += int64(read)
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return nil, apperror.NewStorageWrite("failed to read upload stream", rerr)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE resume_files SET length = $2 WHERE id = $1`, f.ID, f.Length); err != nil {
		return nil, apperror.NewStorageWrite("failed to finalize resume metadata", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewStorageWrite("failed to commit resume", err)
	}

	s.logger.Info("Stored resume", zap.String("file_id", f.ID), zap.Int64("length", f.Length))
	return f, nil
}

func (s *postgresResumeStore) Open(ctx context.Context, id string) (*resume.File, io.ReadCloser, error) {
	fileID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, apperror.NewNotFound("resume", id)
	}
	pool, err := s.backend.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	query := `SELECT ` + resumeFileColumns + ` FROM resume_files WHERE id = $1`
	f, err := scanResumeFile(pool.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NewNotFound("resume", id)
		}
		return nil, nil, err
	}
	return f, newChunkReader(ctx, pool, f), nil
}

func (s *postgresResumeStore) OpenLatest(ctx context.Context) (*resume.File, io.ReadCloser, error) {
	pool, err := s.backend.Get(ctx)
	if err != nil {
		return nil, nil, err
	}

	query, args, err := psqlResume.Select(resumeFileColumns).
		From("resume_files").
		OrderBy("uploaded_at DESC", "seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, nil, apperror.NewInternal("failed to build latest resume query", err)
	}

	f, err := scanResumeFile(pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NewNotFound("resume", "latest")
		}
		return nil, nil, err
	}
	return f, newChunkReader(ctx, pool, f), nil
}

func (s *postgresResumeStore) SetMirrorURL(ctx context.Context, id string, url string) error {
	fileID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NewNotFound("resume", id)
	}
	pool, err := s.backend.Get(ctx)
	if err != nil {
		return err
	}

	cmdTag, err := pool.Exec(ctx, `UPDATE resume_files SET mirror_url = $2 WHERE id = $1`, fileID, url)
	if err != nil {
		return apperror.NewInternal("failed to set resume mirror url", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("resume", id)
	}
	return nil
}

// chunkReader fetches one chunk row per refill, so at most one chunk is held
// in memory regardless of file size.
type chunkReader struct {
	ctx    context.Context
	pool   *pgxpool.Pool
	fileID string
	total  int
	next   int
	cur    []byte
	closed bool
}

func newChunkReader(ctx context.Context, pool *pgxpool.Pool, f *resume.File) *chunkReader {
	total := 0
	if f.ChunkSize > 0 {
		total = int((f.Length + int64(f.ChunkSize) - 1) / int64(f.ChunkSize))
	}
	return &chunkReader{ctx: ctx, pool: pool, fileID: f.ID, total: total}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errors.New("read on closed resume stream")
	}
	for len(r.cur) == 0 {
		if r.next >= r.total {
			return 0, io.EOF
		}
		var data []byte
		err := r.pool.QueryRow(r.ctx,
			`SELECT data FROM resume_chunks WHERE file_id = $1 AND n = $2`,
			r.fileID, r.next,
		).Scan(&data)
		if err != nil {
			return 0, apperror.NewInternal("failed to read resume chunk", err)
		}
		r.cur = data
		r.next++
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	r.cur = nil
	return nil
}
