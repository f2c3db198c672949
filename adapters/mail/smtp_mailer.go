package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/config"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type smtpMailer struct {
	client         sender
	from           string
	sandbox        bool
	previewBaseURL string
	logger         logger.Logger
}

func NewSMTPMailer(cfg config.Config, log logger.Logger) (service.Mailer, error) {
	if cfg.Mail.Host == "" {
		return nil, fmt.Errorf("mail host has not config")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Mail.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Mail.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Mail.Username),
			gomail.WithPassword(cfg.Mail.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Mail.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot init smtp client: %w", err)
	}

	from := cfg.Mail.From
	if from == "" {
		from = cfg.Mail.Username
	}

	log.Info("SMTP mailer configured", zap.String("host", cfg.Mail.Host), zap.Int("port", cfg.Mail.Port), zap.Bool("sandbox", cfg.Mail.Sandbox))
	return newSMTPMailer(client, from, cfg.Mail.Sandbox, cfg.Mail.PreviewBaseURL, log), nil
}

func newSMTPMailer(client sender, from string, sandbox bool, previewBaseURL string, log logger.Logger) *smtpMailer {
	return &smtpMailer{
		client:         client,
		from:           from,
		sandbox:        sandbox,
		previewBaseURL: strings.TrimRight(previewBaseURL, "/"),
		logger:         log,
	}
}

func (m *smtpMailer) Send(ctx context.Context, msg service.MailMessage) (*service.MailReceipt, error) {
	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := out.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	out.SetMessageID()
	out.SetDate()

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to send mail: %w", err)
	}

	receipt := &service.MailReceipt{MessageID: strings.Trim(out.GetMessageID(), "<>")}
	if m.sandbox && m.previewBaseURL != "" {
		receipt.PreviewURL = fmt.Sprintf("%s/message/%s", m.previewBaseURL, receipt.MessageID)
	}

	m.logger.Info("Contact mail sent", zap.String("message_id", receipt.MessageID))
	return receipt, nil
}
