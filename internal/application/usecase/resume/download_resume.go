package resume

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
)

type DownloadResumeUseCase struct {
	store resume.Store
}

func NewDownloadResumeUseCase(s resume.Store) *DownloadResumeUseCase {
	return &DownloadResumeUseCase{store: s}
}

// DownloadResumeInput selects a file by ID. An empty ID selects the most
// recently uploaded file.
type DownloadResumeInput struct {
	ID string
}

type DownloadResumeOutput struct {
	File *resume.File
	Body io.ReadCloser
}

func (uc *DownloadResumeUseCase) Execute(ctx context.Context, input DownloadResumeInput) (*DownloadResumeOutput, error) {
	ctx, span := tracer.Start(ctx, "DownloadResume")
	defer span.End()

	var (
		f    *resume.File
		body io.ReadCloser
		err  error
	)
	if input.ID == "" {
		f, body, err = uc.store.OpenLatest(ctx)
	} else {
		f, body, err = uc.store.Open(ctx, input.ID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("file_id", f.ID))
	return &DownloadResumeOutput{File: f, Body: body}, nil
}
