// Package testutil holds in-memory implementations of the domain ports for
// use in unit tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/internal/domain/resume"
	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
)

type storedFile struct {
	meta resume.File
	data []byte
}

// MemoryResumeStore keeps files in insertion order. Err, when set, is
// returned from every call. MirrorErr fails only SetMirrorURL.
type MemoryResumeStore struct {
	mu        sync.Mutex
	files     []storedFile
	Err       error
	MirrorErr error
}

func (s *MemoryResumeStore) Put(_ context.Context, r io.Reader, filename, contentType string) (*resume.File, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperror.NewStorageWrite("failed to read upload", err)
	}
	f := resume.File{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Length:      int64(len(data)),
		ChunkSize:   resume.ChunkSize,
		UploadedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.files = append(s.files, storedFile{meta: f, data: data})
	s.mu.Unlock()
	return &f, nil
}

func (s *MemoryResumeStore) Open(_ context.Context, id string) (*resume.File, io.ReadCloser, error) {
	if s.Err != nil {
		return nil, nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sf := range s.files {
		if sf.meta.ID == id {
			meta := sf.meta
			return &meta, io.NopCloser(bytes.NewReader(sf.data)), nil
		}
	}
	return nil, nil, apperror.NewNotFound("resume", id)
}

func (s *MemoryResumeStore) OpenLatest(_ context.Context) (*resume.File, io.ReadCloser, error) {
	if s.Err != nil {
		return nil, nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.files) == 0 {
		return nil, nil, apperror.NewNotFound("resume", "latest")
	}
	sf := s.files[len(s.files)-1]
	meta := sf.meta
	return &meta, io.NopCloser(bytes.NewReader(sf.data)), nil
}

func (s *MemoryResumeStore) SetMirrorURL(_ context.Context, id string, url string) error {
	if s.Err != nil {
		return s.Err
	}
	if s.MirrorErr != nil {
		return s.MirrorErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].meta.ID == id {
			u := url
			s.files[i].meta.MirrorURL = &u
			return nil
		}
	}
	return apperror.NewNotFound("resume", id)
}

// Len reports how many files are stored.
func (s *MemoryResumeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// MemoryProfileRepo applies the same ordering as the real repositories:
// latest UpdatedAt, ties broken by insertion order.
type MemoryProfileRepo struct {
	mu     sync.Mutex
	docs   []profile.Document
	nextID int
	Err    error
	Now    func() time.Time
}

func (r *MemoryProfileRepo) GetCurrent(_ context.Context) (*profile.Document, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.docs) == 0 {
		return nil, nil
	}
	best := 0
	for i := 1; i < len(r.docs); i++ {
		if !r.docs[i].UpdatedAt.Before(*r.docs[best].UpdatedAt) {
			best = i
		}
	}
	doc := r.docs[best]
	return &doc, nil
}

func (r *MemoryProfileRepo) Replace(_ context.Context, doc *profile.Document, preserveExisting bool) (*profile.Document, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !preserveExisting {
		r.docs = nil
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	r.nextID++
	stored := *doc
	stored.ID = strconv.Itoa(r.nextID)
	stored.Stamp(now.UTC().Truncate(time.Millisecond))
	r.docs = append(r.docs, stored)
	return &stored, nil
}

// Count reports how many documents are stored.
func (r *MemoryProfileRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

// MemoryProfileCache holds a single document.
type MemoryProfileCache struct {
	mu          sync.Mutex
	doc         *profile.Document
	Sets        int
	Invalidated int
}

func (c *MemoryProfileCache) Get(_ context.Context) (*profile.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return nil, false
	}
	doc := *c.doc
	return &doc, true
}

func (c *MemoryProfileCache) Set(_ context.Context, doc *profile.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := *doc
	c.doc = &d
	c.Sets++
}

func (c *MemoryProfileCache) SetIfAbsent(_ context.Context, doc *profile.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc != nil {
		return
	}
	d := *doc
	c.doc = &d
}

func (c *MemoryProfileCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = nil
	c.Invalidated++
}

// RecordingPublisher captures published events on buffered channels.
type RecordingPublisher struct {
	ResumeEvents  chan service.ResumeEvent
	ProfileEvents chan service.ProfileEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{
		ResumeEvents:  make(chan service.ResumeEvent, 16),
		ProfileEvents: make(chan service.ProfileEvent, 16),
	}
}

func (p *RecordingPublisher) PublishResumeEvent(_ context.Context, payload service.ResumeEvent) error {
	p.ResumeEvents <- payload
	return nil
}

func (p *RecordingPublisher) PublishProfileEvent(_ context.Context, payload service.ProfileEvent) error {
	p.ProfileEvents <- payload
	return nil
}

// FakeMailer records sent messages and returns Receipt or Err.
type FakeMailer struct {
	mu      sync.Mutex
	Sent    []service.MailMessage
	Receipt service.MailReceipt
	Err     error
}

func (m *FakeMailer) Send(_ context.Context, msg service.MailMessage) (*service.MailReceipt, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	r := m.Receipt
	return &r, nil
}

// FakeUploader records uploads and deletes and returns URL.
type FakeUploader struct {
	mu        sync.Mutex
	Uploads   map[string][]byte
	Deleted   []string
	URL       string
	Err       error
	DeleteErr error
}

func (u *FakeUploader) Upload(_ context.Context, file io.Reader, folder string, publicID string) (string, error) {
	if u.Err != nil {
		return "", u.Err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Uploads == nil {
		u.Uploads = map[string][]byte{}
	}
	u.Uploads[folder+"/"+publicID] = data
	return u.URL, nil
}

func (u *FakeUploader) Delete(_ context.Context, folder string, publicID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.DeleteErr != nil {
		return u.DeleteErr
	}
	key := folder + "/" + publicID
	delete(u.Uploads, key)
	u.Deleted = append(u.Deleted, key)
	return nil
}
