package service

import "context"

type MailMessage struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

type MailReceipt struct {
	MessageID string
	// PreviewURL is only set by sandbox transports.
	PreviewURL string
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) (*MailReceipt, error)
}
