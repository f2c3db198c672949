package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileDownloadDefaults(t *testing.T) {
	f := &File{}
	assert.Equal(t, "resume.pdf", f.DownloadName())
	assert.Equal(t, "application/pdf", f.DownloadContentType())

	f = &File{Filename: "cv.pdf", ContentType: "application/x-pdf"}
	assert.Equal(t, "cv.pdf", f.DownloadName())
	assert.Equal(t, "application/x-pdf", f.DownloadContentType())
}
