package profilesync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fallbackJSON = `{"name":"Fallback Name","role":"Engineer","email":"fallback@example.com"}`

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) watch(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func TestRun_RetriesUntilFourthPassSucceeds(t *testing.T) {
	var calls atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) <= 3 {
			return nil, errors.New("connection refused")
		}
		return jsonResponse(http.StatusOK, `{"name":"Remote Name","skills":[]}`), nil
	})

	rec := &recorder{}
	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example"),
		WithLocalURL(""),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSchedule([]time.Duration{time.Millisecond}),
		WithWatcher(rec.watch),
	)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, StateMerged, c.State())

	updates := rec.all()
	require.Len(t, updates, 2, "failed attempts must not publish")
	assert.Equal(t, StateInit, updates[0].State)
	assert.JSONEq(t, `"Fallback Name"`, string(updates[0].Snapshot["name"]))

	assert.Equal(t, StateMerged, updates[1].State)
	assert.Equal(t, "https://api.example/api/profile", updates[1].Source)
	assert.JSONEq(t, `"Remote Name"`, string(updates[1].Snapshot["name"]))
	assert.JSONEq(t, `"fallback@example.com"`, string(updates[1].Snapshot["email"]))
}

func TestCandidates_OrderAndCacheBuster(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []*http.Request
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		seen = append(seen, r)
		if len(seen) == 3 {
			cancel()
		}
		mu.Unlock()
		return nil, errors.New("down")
	})

	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example/"),
		WithOrigin("https://site.example"),
		WithHTTPClient(&http.Client{Transport: transport}),
		withClock(func() time.Time { return time.UnixMilli(1700000000123) }),
	)

	assert.Equal(t, []string{
		"https://api.example/api/profile",
		"https://site.example/api/profile",
		"http://localhost:5050/api/profile",
	}, c.Candidates())

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	for i, want := range c.Candidates() {
		assert.Equal(t, want+"?t=1700000000123", seen[i].URL.String())
		assert.Empty(t, seen[i].Header.Get("Cookie"))
	}
}

func TestCandidates_SkipsEmptyAndDuplicates(t *testing.T) {
	c := New(Snapshot{}, WithBaseURL("http://localhost:5050"))
	assert.Equal(t, []string{"http://localhost:5050/api/profile"}, c.Candidates())
}

func TestRun_MovesPastEmptyCandidates(t *testing.T) {
	noContent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer noContent.Close()
	notObject := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer notObject.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("t"))
		_, _ = w.Write([]byte(`{"name":"Local"}`))
	}))
	defer good.Close()

	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL(noContent.URL),
		WithOrigin(notObject.URL),
		WithLocalURL(good.URL),
		WithSchedule([]time.Duration{time.Millisecond}),
	)

	require.NoError(t, c.Run(context.Background()))
	assert.JSONEq(t, `"Local"`, string(c.Snapshot()["name"]))
	assert.JSONEq(t, `"Engineer"`, string(c.Snapshot()["role"]))
}

func TestClose_StopsRetriesWithoutPublishing(t *testing.T) {
	var calls atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusServiceUnavailable, ``), nil
	})

	rec := &recorder{}
	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example"),
		WithLocalURL(""),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSchedule([]time.Duration{time.Hour}),
		WithWatcher(rec.watch),
	)
	c.Start(context.Background())

	assert.Eventually(t, func() bool { return c.State() == StateRetryScheduled }, time.Second, time.Millisecond)
	c.Close()

	assert.Equal(t, int32(1), calls.Load())
	updates := rec.all()
	require.Len(t, updates, 1)
	assert.Equal(t, StateInit, updates[0].State)
	assert.JSONEq(t, fallbackJSON, mustJSON(t, c.Snapshot()))
}

func TestClose_DiscardsLateSuccess(t *testing.T) {
	// the response arrives only after teardown has cancelled the request
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return jsonResponse(http.StatusOK, `{"name":"Late"}`), nil
	})

	rec := &recorder{}
	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example"),
		WithLocalURL(""),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithWatcher(rec.watch),
	)
	c.Start(context.Background())
	assert.Eventually(t, func() bool { return c.State() == StateResolving }, time.Second, time.Millisecond)
	c.Close()

	for _, u := range rec.all() {
		assert.NotEqual(t, StateMerged, u.State)
	}
	assert.NotEqual(t, StateMerged, c.State())
	assert.JSONEq(t, `"Fallback Name"`, string(c.Snapshot()["name"]))
}

func TestRun_AfterCloseReturnsErrClosed(t *testing.T) {
	var calls atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})

	rec := &recorder{}
	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example"),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSchedule([]time.Duration{time.Millisecond}),
		WithWatcher(rec.watch),
	)
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.Run(ctx), ErrClosed)
	assert.ErrorIs(t, c.Once(ctx), ErrClosed)
	assert.Zero(t, calls.Load())
	assert.Empty(t, rec.all())
}

func TestClose_StopsDirectRun(t *testing.T) {
	var calls atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})

	rec := &recorder{}
	c := New(mustSnapshot(t, fallbackJSON),
		WithBaseURL("https://api.example"),
		WithLocalURL(""),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSchedule([]time.Duration{time.Hour}),
		WithWatcher(rec.watch),
	)

	result := make(chan error, 1)
	go func() { result <- c.Run(context.Background()) }()

	assert.Eventually(t, func() bool { return c.State() == StateRetryScheduled }, time.Second, time.Millisecond)
	c.Close()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Run kept going after Close")
	}
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, rec.all(), 1)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(DefaultSchedule, 0))
	assert.Equal(t, 8*time.Second, retryDelay(DefaultSchedule, 3))
	assert.Equal(t, 30*time.Second, retryDelay(DefaultSchedule, 5))
	assert.Equal(t, 30*time.Second, retryDelay(DefaultSchedule, 50))
}

func mustJSON(t *testing.T, s Snapshot) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func TestOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(mustSnapshot(t, fallbackJSON), WithBaseURL(srv.URL), WithLocalURL(""))
	assert.Error(t, c.Once(context.Background()))
	assert.Equal(t, StateInit, c.State())

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"role":"Remote Role"}`))
	}))
	defer ok.Close()

	c = New(mustSnapshot(t, fallbackJSON), WithBaseURL(ok.URL), WithLocalURL(""))
	require.NoError(t, c.Once(context.Background()))
	assert.Equal(t, StateMerged, c.State())
	assert.JSONEq(t, `"Remote Role"`, string(c.Snapshot()["role"]))
	assert.JSONEq(t, `"Fallback Name"`, string(c.Snapshot()["name"]))
}
