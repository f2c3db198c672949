package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type postgresProfileRepo struct {
	backend *Backend[*pgxpool.Pool]
	logger  logger.Logger
}

func NewPostgresProfileRepo(backend *Backend[*pgxpool.Pool], logger logger.Logger) profile.Repository {
	return &postgresProfileRepo{backend: backend, logger: logger}
}

var psqlProfile = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *postgresProfileRepo) GetCurrent(ctx context.Context) (*profile.Document, error) {
	pool, err := r.backend.Get(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := psqlProfile.Select("id", "document", "created_at", "updated_at").
		From("profiles").
		OrderBy("updated_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build current profile query", err)
	}

	var (
		id                   int64
		documentBytes        []byte
		createdAt, updatedAt time.Time
	)
	err = pool.QueryRow(ctx, query, args...).Scan(&id, &documentBytes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewInternal("failed to query profile", err)
	}

	doc := &profile.Document{}
	if err := json.Unmarshal(documentBytes, doc); err != nil {
		r.logger.Warn("Failed to unmarshal profile document", zap.Int64("profile_id", id), zap.Error(err))
		return nil, apperror.NewInternal("stored profile document is corrupt", err)
	}
	createdAt, updatedAt = createdAt.UTC(), updatedAt.UTC()
	doc.ID = strconv.FormatInt(id, 10)
	doc.CreatedAt = &createdAt
	doc.UpdatedAt = &updatedAt
	return doc, nil
}

func (r *postgresProfileRepo) Replace(ctx context.Context, doc *profile.Document, preserveExisting bool) (*profile.Document, error) {
	pool, err := r.backend.Get(ctx)
	if err != nil {
		return nil, err
	}

	stored := *doc
	stored.ID = ""
	stored.CreatedAt, stored.UpdatedAt = nil, nil
	documentBytes, err := json.Marshal(stored)
	if err != nil {
		return nil, apperror.NewInternal("failed to marshal profile document", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to begin profile transaction", err)
	}
	defer tx.Rollback(ctx)

	if !preserveExisting {
		cmdTag, err := tx.Exec(ctx, `DELETE FROM profiles`)
		if err != nil {
			return nil, apperror.NewInternal("failed to clear profiles", err)
		}
		r.logger.Info("Cleared existing profile documents", zap.Int64("deleted", cmdTag.RowsAffected()))
	}

	stored.Stamp(time.Now().Truncate(time.Millisecond))
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO profiles (document, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`,
		documentBytes, *stored.CreatedAt, *stored.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return nil, apperror.NewInternal("failed to insert profile", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.NewInternal("failed to commit profile", err)
	}

	stored.ID = strconv.FormatInt(id, 10)
	return &stored, nil
}
