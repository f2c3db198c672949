package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

// RefreshProfileCacheUseCase warms the cache after a seed so the next read
// does not hit storage.
type RefreshProfileCacheUseCase struct {
	profileRepo profile.Repository
	cache       profile.Cache
	logger      logger.Logger
}

func NewRefreshProfileCacheUseCase(repo profile.Repository, cache profile.Cache, log logger.Logger) *RefreshProfileCacheUseCase {
	return &RefreshProfileCacheUseCase{profileRepo: repo, cache: cache, logger: log}
}

func (uc *RefreshProfileCacheUseCase) Execute(ctx context.Context, payload service.ProfileEvent) error {
	l := uc.logger.With(zap.String("document_id", payload.DocumentID), zap.String("event_type", string(payload.EventType)))
	l.Info("Worker UseCase refreshing profile cache")

	uc.cache.Invalidate(ctx)

	doc, err := uc.profileRepo.GetCurrent(ctx)
	if err != nil {
		return apperror.NewInternal("failed to load current profile", err)
	}
	if doc == nil {
		l.Warn("No current profile, cache left empty")
		return nil
	}

	uc.cache.SetIfAbsent(ctx, doc)
	l.Info("Profile cache refreshed", zap.String("current_id", doc.ID))
	return nil
}
