package profile

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

var tracer = otel.Tracer("profile_usecase")

type GetProfileUseCase struct {
	profileRepo profile.Repository
	cache       profile.Cache
	logger      logger.Logger
}

// NewGetProfileUseCase reads through cache when it is non-nil.
func NewGetProfileUseCase(repo profile.Repository, cache profile.Cache, log logger.Logger) *GetProfileUseCase {
	return &GetProfileUseCase{profileRepo: repo, cache: cache, logger: log}
}

type GetProfileOutput struct {
	// Profile is nil when nothing has been seeded yet.
	Profile *profile.Document
}

func (uc *GetProfileUseCase) Execute(ctx context.Context) (*GetProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "GetProfile")
	defer span.End()

	if uc.cache != nil {
		if doc, ok := uc.cache.Get(ctx); ok {
			return &GetProfileOutput{Profile: doc}, nil
		}
	}

	doc, err := uc.profileRepo.GetCurrent(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if doc != nil && uc.cache != nil {
		uc.cache.SetIfAbsent(ctx, doc)
	}
	return &GetProfileOutput{Profile: doc}, nil
}
