package profile

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type SeedProfileUseCase struct {
	profileRepo profile.Repository
	cache       profile.Cache
	events      service.EventPublisher
	logger      logger.Logger
}

func NewSeedProfileUseCase(repo profile.Repository, cache profile.Cache, events service.EventPublisher, log logger.Logger) *SeedProfileUseCase {
	return &SeedProfileUseCase{profileRepo: repo, cache: cache, events: events, logger: log}
}

type SeedProfileInput struct {
	Document *profile.Document
	// PreserveExisting keeps older documents instead of clearing them first.
	PreserveExisting bool
}

type SeedProfileOutput struct {
	Profile *profile.Document
}

func (uc *SeedProfileUseCase) Execute(ctx context.Context, input SeedProfileInput) (*SeedProfileOutput, error) {
	ctx, span := tracer.Start(ctx, "SeedProfile")
	defer span.End()

	if input.Document == nil {
		err := apperror.NewInvalidInput("profile document is required", nil)
		span.RecordError(err)
		return nil, err
	}

	stored, err := uc.profileRepo.Replace(ctx, input.Document, input.PreserveExisting)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("document_id", stored.ID), attribute.Bool("preserve_existing", input.PreserveExisting))

	if uc.cache != nil {
		uc.cache.Set(ctx, stored)
	}

	uc.logger.Info("Profile seeded", zap.String("document_id", stored.ID), zap.Bool("preserve_existing", input.PreserveExisting))

	go func() {
		err := uc.events.PublishProfileEvent(context.Background(), service.ProfileEvent{
			EventType:        service.ProfileEventReplaced,
			DocumentID:       stored.ID,
			PreserveExisting: input.PreserveExisting,
		})
		if err != nil {
			uc.logger.Error("Failed to publish Kafka 'profile.replaced' event", err, zap.String("document_id", stored.ID))
		}
	}()

	return &SeedProfileOutput{Profile: stored}, nil
}
