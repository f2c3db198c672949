package contact

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

var tracer = otel.Tracer("contact_usecase")

type SendContactUseCase struct {
	mailer      service.Mailer
	profileRepo profile.Repository
	recipient   string
	logger      logger.Logger
}

// NewSendContactUseCase sends to recipient when set, otherwise to the email
// on the current profile document. mailer may be nil when SMTP is not
// configured.
func NewSendContactUseCase(m service.Mailer, repo profile.Repository, recipient string, log logger.Logger) *SendContactUseCase {
	return &SendContactUseCase{mailer: m, profileRepo: repo, recipient: strings.TrimSpace(recipient), logger: log}
}

type SendContactInput struct {
	Name    string
	Email   string
	Message string
}

type SendContactOutput struct {
	OK         bool   `json:"ok"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

func (uc *SendContactUseCase) Execute(ctx context.Context, input SendContactInput) (*SendContactOutput, error) {
	ctx, span := tracer.Start(ctx, "SendContact")
	defer span.End()

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	message := strings.TrimSpace(input.Message)
	if name == "" || email == "" || message == "" {
		err := apperror.NewInvalidInput("name, email and message are required", nil)
		span.RecordError(err)
		return nil, err
	}

	if uc.mailer == nil {
		err := apperror.NewInternal("mail transport not configured", nil)
		span.RecordError(err)
		return nil, err
	}

	to, err := uc.resolveRecipient(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	receipt, err := uc.mailer.Send(ctx, service.MailMessage{
		To:      to,
		ReplyTo: email,
		Subject: fmt.Sprintf("Portfolio Contact: %s", name),
		Body:    fmt.Sprintf("New contact form submission from your portfolio:\n\nName: %s\nEmail: %s\nMessage:\n%s\n", name, email, message),
	})
	if err != nil {
		uc.logger.Error("Failed to send contact mail", err)
		err = apperror.NewInternal("failed to send message", err)
		span.RecordError(err)
		return nil, err
	}

	return &SendContactOutput{OK: true, PreviewURL: receipt.PreviewURL}, nil
}

func (uc *SendContactUseCase) resolveRecipient(ctx context.Context) (string, error) {
	if uc.recipient != "" {
		return uc.recipient, nil
	}

	doc, err := uc.profileRepo.GetCurrent(ctx)
	if err != nil {
		uc.logger.Warn("Could not read profile for contact recipient", zap.Error(err))
	}
	if doc != nil && strings.TrimSpace(doc.Email) != "" {
		return strings.TrimSpace(doc.Email), nil
	}

	return "", apperror.NewInternal("no recipient configured", nil)
}
