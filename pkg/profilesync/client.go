// Package profilesync resolves the current profile document for a UI that
// renders a bundled fallback first and upgrades to the remote document once
// the API answers.
package profilesync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type State int

const (
	StateInit State = iota
	StateResolving
	StateMerged
	StateRetryScheduled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateResolving:
		return "resolving"
	case StateMerged:
		return "merged"
	case StateRetryScheduled:
		return "retry_scheduled"
	}
	return "unknown"
}

const (
	profilePath        = "/api/profile"
	DefaultLocalURL    = "http://localhost:5050"
	maxProfileBodySize = 4 << 20
)

// DefaultSchedule is the delay before each retry pass. The last entry repeats.
var DefaultSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	15 * time.Second,
	30 * time.Second,
}

var (
	errNoContent = errors.New("no content")
	// ErrClosed is returned by Run and Once after Close.
	ErrClosed = errors.New("profilesync: client closed")
)

// Update is delivered to the watcher on every visible transition.
type Update struct {
	State    State
	Snapshot Snapshot
	// Source is the candidate URL that produced a merged snapshot.
	Source string
}

type Option func(*Client)

// WithBaseURL sets the explicitly configured API base, tried first.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithOrigin sets the page origin used for the same-origin candidate. Without
// it that candidate is skipped.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// WithLocalURL replaces the local development fallback. Empty disables it.
func WithLocalURL(local string) Option {
	return func(c *Client) { c.localURL = local }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSchedule(schedule []time.Duration) Option {
	return func(c *Client) { c.schedule = schedule }
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithWatcher registers fn to receive state updates. fn is called from the
// goroutine running Run and never after Run has returned.
func WithWatcher(fn func(Update)) Option {
	return func(c *Client) { c.watcher = fn }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type Client struct {
	baseURL    string
	origin     string
	localURL   string
	httpClient *http.Client
	schedule   []time.Duration
	logger     logger.Logger
	watcher    func(Update)
	now        func() time.Time

	fallback Snapshot

	mu       sync.Mutex
	state    State
	snapshot Snapshot
	closed   bool
	runs     map[int]context.CancelFunc
	nextRun  int
	active   sync.WaitGroup
}

func New(fallback Snapshot, opts ...Option) *Client {
	c := &Client{
		localURL:   DefaultLocalURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		schedule:   DefaultSchedule,
		logger:     logger.NewNop(),
		now:        time.Now,
		fallback:   fallback,
		state:      StateInit,
		snapshot:   fallback,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.schedule) == 0 {
		c.schedule = DefaultSchedule
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the fallback until a remote document has been merged.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Candidates lists the profile URLs in the order they are tried.
func (c *Client) Candidates() []string {
	var out []string
	seen := map[string]bool{}
	for _, base := range []string{c.baseURL, c.origin, c.localURL} {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" || seen[base] {
			continue
		}
		seen[base] = true
		out = append(out, base+profilePath)
	}
	return out
}

// Start runs the client in the background until Close is called or ctx ends.
func (c *Client) Start(ctx context.Context) {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return
	}

	go func() {
		defer release()
		err := c.closedErr(c.run(ctx))
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
			c.logger.Warn("Profile sync stopped", zap.Error(err))
		}
	}()
}

// Close stops every Run, Once and Start in progress and waits for them to
// exit. No update is delivered after Close returns, and later calls to Run or
// Once return ErrClosed. Close must not be called from the watcher.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	cancels := make([]context.CancelFunc, 0, len(c.runs))
	for _, cancel := range c.runs {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.active.Wait()
}

// acquire registers a run so Close can cancel it and wait for it.
func (c *Client) acquire(parent context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(parent)
	if c.runs == nil {
		c.runs = make(map[int]context.CancelFunc)
	}
	c.nextRun++
	id := c.nextRun
	c.runs[id] = cancel
	c.active.Add(1)

	return ctx, func() {
		cancel()
		c.mu.Lock()
		delete(c.runs, id)
		c.mu.Unlock()
		c.active.Done()
	}, nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// closedErr reports ErrClosed for runs stopped by Close.
func (c *Client) closedErr(err error) error {
	if err != nil && c.isClosed() {
		return ErrClosed
	}
	return err
}

// Run publishes the fallback, then resolves candidates until one succeeds or
// ctx is done. It returns nil once a remote document has been merged and
// ErrClosed when Close was called before or during the run.
func (c *Client) Run(parent context.Context) error {
	ctx, release, err := c.acquire(parent)
	if err != nil {
		return err
	}
	defer release()
	return c.closedErr(c.run(ctx))
}

func (c *Client) run(ctx context.Context) error {
	if !c.transition(ctx, Update{State: StateInit, Snapshot: c.fallback}, true) {
		return c.stopped(ctx)
	}

	for attempt := 0; ; attempt++ {
		err := c.pass(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrClosed) {
			return err
		}

		delay := retryDelay(c.schedule, attempt)
		c.transition(ctx, Update{State: StateRetryScheduled}, false)
		c.logger.Debug("No profile candidate answered, retrying", zap.Duration("delay", delay), zap.Int("attempt", attempt+1))

		if err := waitWithContext(ctx, delay); err != nil {
			return err
		}
	}
}

// Once makes a single resolution pass without scheduling retries. On failure
// the client falls back to StateInit and the error of the last candidate is
// returned.
func (c *Client) Once(parent context.Context) error {
	ctx, release, err := c.acquire(parent)
	if err != nil {
		return err
	}
	defer release()

	err = c.pass(ctx, 0)
	if err != nil {
		c.transition(ctx, Update{State: StateInit}, false)
	}
	return c.closedErr(err)
}

func (c *Client) pass(ctx context.Context, attempt int) error {
	if !c.transition(ctx, Update{State: StateResolving}, false) {
		return c.stopped(ctx)
	}

	remote, source, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	merged := Merge(c.fallback, remote)
	if !c.transition(ctx, Update{State: StateMerged, Snapshot: merged, Source: source}, true) {
		return c.stopped(ctx)
	}
	c.logger.Info("Profile merged from remote", zap.String("source", source), zap.Int("attempt", attempt+1))
	return nil
}

func (c *Client) stopped(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// transition records the new state. When publish is set and the client is
// still live the watcher is notified. It reports false after teardown.
func (c *Client) transition(ctx context.Context, u Update, publish bool) bool {
	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.state = u.State
	if u.Snapshot != nil {
		c.snapshot = u.Snapshot
	}
	watcher := c.watcher
	c.mu.Unlock()

	if publish && watcher != nil {
		watcher(u)
	}
	return true
}

func (c *Client) resolve(ctx context.Context) (Snapshot, string, error) {
	var lastErr error
	for _, candidate := range c.Candidates() {
		snap, err := c.fetch(ctx, candidate)
		if err == nil {
			return snap, candidate, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		c.logger.Debug("Profile candidate failed", zap.String("url", candidate), zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no profile candidates configured")
	}
	return nil, "", lastErr
}

func (c *Client) fetch(ctx context.Context, candidate string) (Snapshot, error) {
	u, err := url.Parse(candidate)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, errNoContent
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodySize))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errNoContent
	}
	snap, err := ParseSnapshot(body)
	if err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return nil, errNoContent
	}
	return snap, nil
}

func retryDelay(schedule []time.Duration, attempt int) time.Duration {
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
