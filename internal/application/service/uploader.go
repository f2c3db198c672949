package service

import (
	"context"
	"io"
)

// Uploader pushes a stored file to an external CDN and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string, publicID string) (string, error)
	// Delete removes an asset uploaded with the same folder and publicID.
	Delete(ctx context.Context, folder string, publicID string) error
}
