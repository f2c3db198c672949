package persistence

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type PostgresIntegrationTestSuite struct {
	suite.Suite
	dbPool      *pgxpool.Pool
	pgContainer *postgres.PostgresContainer
	testLogger  logger.Logger
	resumeStore resume.Store
	profileRepo profile.Repository
}

func (s *PostgresIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	s.testLogger = logger.NewNop()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(1*time.Minute),
		),
	)
	if err != nil {
		s.T().Fatalf("Failed to start postgres container: %s", err)
	}
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get connection string: %s", err)
	}

	if err := RunMigrations("file://../../migrations", dsn, s.testLogger); err != nil {
		s.T().Fatalf("Failed to run migrations: %s", err)
	}

	pool, err := NewPostgresPool(ctx, dsn, s.testLogger)
	if err != nil {
		s.T().Fatalf("Failed to create pgxpool: %s", err)
	}
	s.dbPool = pool

	backend := ReadyBackend("postgres", pool, s.testLogger)
	s.resumeStore = NewPostgresResumeStore(backend, s.testLogger)
	s.profileRepo = NewPostgresProfileRepo(backend, s.testLogger)
}

func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(context.Background()); err != nil {
			s.T().Fatalf("Failed to terminate postgres container: %s", err)
		}
	}
}

func (s *PostgresIntegrationTestSuite) SetupTest() {
	_, err := s.dbPool.Exec(context.Background(), `TRUNCATE resume_chunks, resume_files, profiles`)
	s.Require().NoError(err)
}

func TestPostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode.")
	}
	suite.Run(t, new(PostgresIntegrationTestSuite))
}

func (s *PostgresIntegrationTestSuite) Test_Put_And_Open_RoundTrip() {
	ctx := context.Background()

	for _, size := range []int{0, 1, resume.ChunkSize, 2*1024*1024 + 17} {
		payload := make([]byte, size)
		_, _ = rand.Read(payload)

		f, err := s.resumeStore.Put(ctx, bytes.NewReader(payload), "cv.pdf", "application/pdf")
		s.Require().NoError(err)
		s.Equal(int64(size), f.Length)

		meta, body, err := s.resumeStore.Open(ctx, f.ID)
		s.Require().NoError(err)
		got, err := io.ReadAll(body)
		s.Require().NoError(err)
		s.Require().NoError(body.Close())

		s.Equal("cv.pdf", meta.Filename)
		s.Equal("application/pdf", meta.ContentType)
		s.Equal(payload, got)
	}
}

func (s *PostgresIntegrationTestSuite) Test_OpenLatest() {
	ctx := context.Background()

	_, _, err := s.resumeStore.OpenLatest(ctx)
	s.ErrorIs(err, apperror.ErrNotFound)

	var lastID string
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		f, err := s.resumeStore.Put(ctx, bytes.NewReader([]byte(name)), name, "application/pdf")
		s.Require().NoError(err)
		lastID = f.ID
	}

	meta, body, err := s.resumeStore.OpenLatest(ctx)
	s.Require().NoError(err)
	defer body.Close()
	s.Equal(lastID, meta.ID)
	s.Equal("c.pdf", meta.Filename)
}

func (s *PostgresIntegrationTestSuite) Test_Open_UnknownID() {
	_, _, err := s.resumeStore.Open(context.Background(), "not-a-uuid")
	s.ErrorIs(err, apperror.ErrNotFound)

	_, _, err = s.resumeStore.Open(context.Background(), "0b7c6f5e-8f4d-4e7a-9c57-2f4f3b8c1d11")
	s.ErrorIs(err, apperror.ErrNotFound)
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, []byte("partial")), nil
	}
	return 0, io.ErrClosedPipe
}

func (s *PostgresIntegrationTestSuite) Test_Put_FailureLeavesNothing() {
	ctx := context.Background()

	_, err := s.resumeStore.Put(ctx, &failingReader{}, "broken.pdf", "application/pdf")
	s.ErrorIs(err, apperror.ErrStorageWrite)

	_, _, err = s.resumeStore.OpenLatest(ctx)
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *PostgresIntegrationTestSuite) Test_SetMirrorURL() {
	ctx := context.Background()
	f, err := s.resumeStore.Put(ctx, bytes.NewReader([]byte("pdf")), "cv.pdf", "application/pdf")
	s.Require().NoError(err)

	s.Require().NoError(s.resumeStore.SetMirrorURL(ctx, f.ID, "https://cdn.example/cv.pdf"))
	meta, body, err := s.resumeStore.Open(ctx, f.ID)
	s.Require().NoError(err)
	body.Close()
	s.Require().NotNil(meta.MirrorURL)
	s.Equal("https://cdn.example/cv.pdf", *meta.MirrorURL)
}

func (s *PostgresIntegrationTestSuite) Test_Profile_ReplaceAndGetCurrent() {
	ctx := context.Background()

	current, err := s.profileRepo.GetCurrent(ctx)
	s.NoError(err)
	s.Nil(current)

	_, err = s.profileRepo.Replace(ctx, &profile.Document{Name: "first"}, false)
	s.Require().NoError(err)
	stored, err := s.profileRepo.Replace(ctx, &profile.Document{Name: "second", Email: "me@example.com"}, false)
	s.Require().NoError(err)

	current, err = s.profileRepo.GetCurrent(ctx)
	s.Require().NoError(err)
	s.Equal(stored, current)

	again, err := s.profileRepo.GetCurrent(ctx)
	s.Require().NoError(err)
	s.Equal(current, again)

	var count int
	s.Require().NoError(s.dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresIntegrationTestSuite) Test_Profile_PreserveTieBreak() {
	ctx := context.Background()

	_, err := s.profileRepo.Replace(ctx, &profile.Document{Name: "older"}, true)
	s.Require().NoError(err)
	newer, err := s.profileRepo.Replace(ctx, &profile.Document{Name: "newer"}, true)
	s.Require().NoError(err)

	_, err = s.dbPool.Exec(ctx, `UPDATE profiles SET updated_at = $1`, newer.UpdatedAt)
	s.Require().NoError(err)

	current, err := s.profileRepo.GetCurrent(ctx)
	s.Require().NoError(err)
	s.Equal("newer", current.Name)
}
