package service

import "context"

type ResumeEventType string
type ProfileEventType string

const (
	ResumeEventUploaded  ResumeEventType  = "resume.uploaded"
	ProfileEventReplaced ProfileEventType = "profile.replaced"
)

type ResumeEvent struct {
	EventType   ResumeEventType `json:"event_type"`
	FileID      string          `json:"file_id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Length      int64           `json:"length"`
}

type ProfileEvent struct {
	EventType        ProfileEventType `json:"event_type"`
	DocumentID       string           `json:"document_id"`
	PreserveExisting bool             `json:"preserve_existing"`
}

// EventPublisher announces state changes to background workers.
type EventPublisher interface {
	PublishResumeEvent(ctx context.Context, payload ResumeEvent) error
	PublishProfileEvent(ctx context.Context, payload ProfileEvent) error
}
