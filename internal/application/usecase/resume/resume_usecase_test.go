package resume

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/internal/testutil"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

func TestUploadResume_StoresAndPublishes(t *testing.T) {
	store := &testutil.MemoryResumeStore{}
	events := testutil.NewRecordingPublisher()
	uc := NewUploadResumeUseCase(store, events, "", logger.NewNop())

	out, err := uc.Execute(context.Background(), UploadResumeInput{
		File:        bytes.NewReader([]byte("%PDF-1.7")),
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "/api/resume/"+out.ID, out.URL)

	select {
	case ev := <-events.ResumeEvents:
		assert.Equal(t, service.ResumeEventUploaded, ev.EventType)
		assert.Equal(t, out.ID, ev.FileID)
		assert.Equal(t, int64(8), ev.Length)
	case <-time.After(time.Second):
		t.Fatal("expected resume event")
	}
}

func TestUploadResume_AbsoluteURLWithPublicBase(t *testing.T) {
	uc := NewUploadResumeUseCase(&testutil.MemoryResumeStore{}, testutil.NewRecordingPublisher(), "https://api.example.com/", logger.NewNop())

	out, err := uc.Execute(context.Background(), UploadResumeInput{File: bytes.NewReader([]byte("x")), Filename: "cv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/resume/"+out.ID, out.URL)
}

func TestUploadResume_DefaultsMetadata(t *testing.T) {
	store := &testutil.MemoryResumeStore{}
	uc := NewUploadResumeUseCase(store, testutil.NewRecordingPublisher(), "", logger.NewNop())

	out, err := uc.Execute(context.Background(), UploadResumeInput{File: bytes.NewReader(nil)})
	require.NoError(t, err)

	f, body, err := store.Open(context.Background(), out.ID)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, resume.DefaultFilename, f.Filename)
	assert.Equal(t, resume.DefaultContentType, f.ContentType)
}

func TestUploadResume_NoFile(t *testing.T) {
	uc := NewUploadResumeUseCase(&testutil.MemoryResumeStore{}, testutil.NewRecordingPublisher(), "", logger.NewNop())

	_, err := uc.Execute(context.Background(), UploadResumeInput{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUploadResume_StoreFailure(t *testing.T) {
	store := &testutil.MemoryResumeStore{Err: apperror.NewStorageWrite("disk full", nil)}
	events := testutil.NewRecordingPublisher()
	uc := NewUploadResumeUseCase(store, events, "", logger.NewNop())

	_, err := uc.Execute(context.Background(), UploadResumeInput{File: bytes.NewReader([]byte("x"))})
	assert.ErrorIs(t, err, apperror.ErrStorageWrite)
	assert.Empty(t, events.ResumeEvents)
}

func TestDownloadResume_ByIDAndLatest(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryResumeStore{}
	first, err := store.Put(ctx, bytes.NewReader([]byte("one")), "one.pdf", "application/pdf")
	require.NoError(t, err)
	_, err = store.Put(ctx, bytes.NewReader([]byte("two")), "two.pdf", "application/pdf")
	require.NoError(t, err)

	uc := NewDownloadResumeUseCase(store)

	out, err := uc.Execute(ctx, DownloadResumeInput{ID: first.ID})
	require.NoError(t, err)
	data, _ := io.ReadAll(out.Body)
	assert.Equal(t, "one", string(data))

	out, err = uc.Execute(ctx, DownloadResumeInput{})
	require.NoError(t, err)
	data, _ = io.ReadAll(out.Body)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, "two.pdf", out.File.Filename)
}

func TestDownloadResume_NotFound(t *testing.T) {
	uc := NewDownloadResumeUseCase(&testutil.MemoryResumeStore{})

	_, err := uc.Execute(context.Background(), DownloadResumeInput{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = uc.Execute(context.Background(), DownloadResumeInput{ID: "missing"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMirrorResume(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryResumeStore{}
	f, err := store.Put(ctx, bytes.NewReader([]byte("pdf-bytes")), "cv.pdf", "application/pdf")
	require.NoError(t, err)

	up := &testutil.FakeUploader{URL: "https://res.cloudinary.com/demo/raw/upload/cv"}
	uc := NewMirrorResumeUseCase(store, up, "portfolio/resumes", logger.NewNop())

	require.NoError(t, uc.Execute(ctx, service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: f.ID}))
	assert.Equal(t, []byte("pdf-bytes"), up.Uploads["portfolio/resumes/"+f.ID])

	got, body, err := store.Open(ctx, f.ID)
	require.NoError(t, err)
	body.Close()
	require.NotNil(t, got.MirrorURL)
	assert.Equal(t, up.URL, *got.MirrorURL)

	// already mirrored: no second upload
	up.Uploads = nil
	require.NoError(t, uc.Execute(ctx, service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: f.ID}))
	assert.Empty(t, up.Uploads)
}

func TestMirrorResume_MissingFileIsSkipped(t *testing.T) {
	uc := NewMirrorResumeUseCase(&testutil.MemoryResumeStore{}, &testutil.FakeUploader{}, "f", logger.NewNop())
	assert.NoError(t, uc.Execute(context.Background(), service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: "gone"}))
}

func TestMirrorResume_RecordFailureRemovesAsset(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryResumeStore{}
	f, err := store.Put(ctx, bytes.NewReader([]byte("pdf-bytes")), "cv.pdf", "application/pdf")
	require.NoError(t, err)
	store.MirrorErr = errors.New("connection reset")

	up := &testutil.FakeUploader{URL: "https://res.cloudinary.com/demo/raw/upload/cv"}
	uc := NewMirrorResumeUseCase(store, up, "portfolio/resumes", logger.NewNop())

	err = uc.Execute(ctx, service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: f.ID})
	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.Equal(t, []string{"portfolio/resumes/" + f.ID}, up.Deleted)
	assert.Empty(t, up.Uploads)

	// the delete failing too still reports the original error
	up.DeleteErr = errors.New("quota")
	err = uc.Execute(ctx, service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: f.ID})
	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.Contains(t, err.Error(), "record mirror url")
}

func TestMirrorResume_UploadFailure(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemoryResumeStore{}
	f, err := store.Put(ctx, bytes.NewReader([]byte("x")), "cv.pdf", "application/pdf")
	require.NoError(t, err)

	uc := NewMirrorResumeUseCase(store, &testutil.FakeUploader{Err: errors.New("quota")}, "f", logger.NewNop())
	err = uc.Execute(ctx, service.ResumeEvent{EventType: service.ResumeEventUploaded, FileID: f.ID})
	assert.ErrorIs(t, err, apperror.ErrInternal)
}
