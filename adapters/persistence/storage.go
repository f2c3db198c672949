package persistence

import (
	"context"

	"github.com/khoahotran/portfolio-delivery/internal/config"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

// Storage bundles the stores of the configured driver around one lazily
// connected backend.
type Storage struct {
	ResumeStore resume.Store
	ProfileRepo profile.Repository
	status      interface {
		Name() string
		Check(ctx context.Context) State
	}
	close func()
}

func NewStorage(cfg config.Config, log logger.Logger) *Storage {
	if cfg.Storage.Driver == config.DriverMongo {
		backend := NewMongoBackend(cfg.Mongo.URI, cfg.Mongo.Database, log)
		return &Storage{
			ResumeStore: NewGridFSResumeStore(backend, log),
			ProfileRepo: NewMongoProfileRepo(backend, log),
			status:      backend,
			close:       backend.Close,
		}
	}

	backend := NewPostgresBackend(cfg.DB.DSN, log)
	return &Storage{
		ResumeStore: NewPostgresResumeStore(backend, log),
		ProfileRepo: NewPostgresProfileRepo(backend, log),
		status:      backend,
		close:       backend.Close,
	}
}

func (s *Storage) Name() string {
	return s.status.Name()
}

func (s *Storage) Check(ctx context.Context) State {
	return s.status.Check(ctx)
}

func (s *Storage) Close() {
	s.close()
}
