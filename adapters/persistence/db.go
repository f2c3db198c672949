package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

func NewPostgresPool(ctx context.Context, dsn string, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("do not create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	log.Info("Connect PostgreSQL successfully.")
	return pool, nil
}

// NewPostgresBackend returns a disabled backend when dsn is empty.
func NewPostgresBackend(dsn string, log logger.Logger) *Backend[*pgxpool.Pool] {
	if dsn == "" {
		log.Warn("DB_DSN not set. /api/profile will return 204 until configured.")
		return NewBackend[*pgxpool.Pool]("postgres", nil, nil, log)
	}
	return NewBackend("postgres",
		func(ctx context.Context) (*pgxpool.Pool, error) { return NewPostgresPool(ctx, dsn, log) },
		func(p *pgxpool.Pool) { p.Close() },
		log,
	)
}

// RunMigrations applies every pending migration from source (e.g.
// "file://migrations").
func RunMigrations(source, dsn string, log logger.Logger) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database migrations applied.")
	return nil
}
