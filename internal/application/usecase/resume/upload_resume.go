package resume

import (
	"context"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
	"github.com/khoahotran/portfolio-delivery/pkg/metrics"
)

var tracer = otel.Tracer("resume_usecase")

type UploadResumeUseCase struct {
	store     resume.Store
	events    service.EventPublisher
	publicURL string
	logger    logger.Logger
}

// NewUploadResumeUseCase returns download URLs relative to the API unless
// publicURL is set, in which case they are absolute.
func NewUploadResumeUseCase(s resume.Store, e service.EventPublisher, publicURL string, log logger.Logger) *UploadResumeUseCase {
	return &UploadResumeUseCase{store: s, events: e, publicURL: strings.TrimRight(publicURL, "/"), logger: log}
}

type UploadResumeInput struct {
	File        io.Reader
	Filename    string
	ContentType string
}

type UploadResumeOutput struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (uc *UploadResumeUseCase) Execute(ctx context.Context, input UploadResumeInput) (*UploadResumeOutput, error) {
	ctx, span := tracer.Start(ctx, "UploadResume")
	defer span.End()

	if input.File == nil {
		err := apperror.NewInvalidInput("No file uploaded", nil)
		span.RecordError(err)
		return nil, err
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = resume.DefaultFilename
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = resume.DefaultContentType
	}

	f, err := uc.store.Put(ctx, input.File, filename, contentType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.ResumeIngested(f.Length)
	span.SetAttributes(attribute.String("file_id", f.ID), attribute.Int64("length", f.Length))

	uc.logger.Info("Resume stored", zap.String("file_id", f.ID), zap.String("filename", f.Filename), zap.Int64("length", f.Length))

	go func() {
		err := uc.events.PublishResumeEvent(context.Background(), service.ResumeEvent{
			EventType:   service.ResumeEventUploaded,
			FileID:      f.ID,
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Length:      f.Length,
		})
		if err != nil {
			uc.logger.Error("Failed to publish Kafka 'resume.uploaded' event", err, zap.String("file_id", f.ID))
		}
	}()

	return &UploadResumeOutput{ID: f.ID, URL: uc.publicURL + DownloadPath(f.ID)}, nil
}

// DownloadPath is the API path a stored resume is served from.
func DownloadPath(id string) string {
	return "/api/resume/" + id
}
