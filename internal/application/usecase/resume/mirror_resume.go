package resume

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

// MirrorResumeUseCase copies an uploaded resume to the CDN and records the
// public URL on the stored file.
type MirrorResumeUseCase struct {
	store    resume.Store
	uploader service.Uploader
	folder   string
	logger   logger.Logger
}

func NewMirrorResumeUseCase(s resume.Store, u service.Uploader, folder string, log logger.Logger) *MirrorResumeUseCase {
	return &MirrorResumeUseCase{store: s, uploader: u, folder: folder, logger: log}
}

func (uc *MirrorResumeUseCase) Execute(ctx context.Context, payload service.ResumeEvent) error {
	l := uc.logger.With(zap.String("file_id", payload.FileID), zap.String("event_type", string(payload.EventType)))

	if payload.EventType != service.ResumeEventUploaded {
		l.Debug("Ignoring resume event")
		return nil
	}
	l.Info("Worker UseCase mirroring resume")

	f, body, err := uc.store.Open(ctx, payload.FileID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			l.Warn("Resume not found, skipping event")
			return nil
		}
		return apperror.NewInternal("failed to open resume", err)
	}
	defer body.Close()

	if f.MirrorURL != nil && *f.MirrorURL != "" {
		l.Info("Resume already mirrored, skipping", zap.String("mirror_url", *f.MirrorURL))
		return nil
	}

	url, err := uc.uploader.Upload(ctx, body, uc.folder, f.ID)
	if err != nil {
		return apperror.NewInternal("failed to mirror resume", err)
	}

	if err := uc.store.SetMirrorURL(ctx, f.ID, url); err != nil {
		// Drop the asset so the retry does not leave an orphan behind.
		if delErr := uc.uploader.Delete(ctx, uc.folder, f.ID); delErr != nil {
			l.Error("Failed to remove unrecorded mirror", delErr, zap.String("mirror_url", url))
		}
		return apperror.NewInternal("failed to record mirror url", err)
	}

	l.Info("Successfully mirrored resume", zap.String("mirror_url", url))
	return nil
}
