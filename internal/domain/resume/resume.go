package resume

import (
	"context"
	"io"
	"time"
)

const (
	DefaultFilename    = "resume.pdf"
	DefaultContentType = "application/pdf"

	// ChunkSize matches the GridFS default so both backends split files the
	// same way.
	ChunkSize = 255 * 1024
)

// File is the metadata of a stored binary object. The bytes themselves are
// only reachable through Store.Open / Store.OpenLatest.
type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Length      int64     `json:"length"`
	ChunkSize   int       `json:"chunkSize"`
	UploadedAt  time.Time `json:"uploadedAt"`
	MirrorURL   *string   `json:"mirrorUrl,omitempty"`
}

// DownloadName falls back to DefaultFilename when no filename was stored.
func (f *File) DownloadName() string {
	if f.Filename == "" {
		return DefaultFilename
	}
	return f.Filename
}

func (f *File) DownloadContentType() string {
	if f.ContentType == "" {
		return DefaultContentType
	}
	return f.ContentType
}

// Store is an append-only chunked object store. Objects become visible only
// once Put has returned successfully.
type Store interface {
	Put(ctx context.Context, r io.Reader, filename, contentType string) (*File, error)
	Open(ctx context.Context, id string) (*File, io.ReadCloser, error)
	OpenLatest(ctx context.Context) (*File, io.ReadCloser, error)
	SetMirrorURL(ctx context.Context, id string, url string) error
}
