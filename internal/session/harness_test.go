package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/media"
	"github.com/wby/protokoll/internal/meeting"
	"github.com/wby/protokoll/internal/recognition"
)

// fakeClock drives AfterFunc timers deterministically. Advance walks
// through due deadlines in order so that re-armed timers (the 1-second
// duration tick) fire the expected number of times within one call.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c        *fakeClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()
		fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeEngine is a scripted recognition engine. Tests drive its callbacks
// directly to simulate result, end, and error events.
type fakeEngine struct {
	mu       sync.Mutex
	cfg      recognition.Config
	handlers recognition.Handlers
	running  bool
	starts   int
	stops    int
	aborts   int
	startErr error
}

func (e *fakeEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return e.startErr
	}
	if e.running {
		return recognition.ErrAlreadyStarted
	}
	e.running = true
	e.starts++
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.stops++
	h := e.handlers
	e.mu.Unlock()
	if wasRunning && h.OnEnd != nil {
		h.OnEnd()
	}
	return nil
}

func (e *fakeEngine) Abort() error {
	e.mu.Lock()
	wasRunning := e.running
	e.running = false
	e.aborts++
	h := e.handlers
	e.mu.Unlock()
	if wasRunning {
		if h.OnError != nil {
			h.OnError(recognition.ErrAborted)
		}
		if h.OnEnd != nil {
			h.OnEnd()
		}
	}
	return nil
}

func (e *fakeEngine) emitInterim(text string) {
	e.handlers.OnResult(nil, text)
}

func (e *fakeEngine) emitFinal(text string) {
	e.handlers.OnResult([]string{text}, "")
}

// end simulates the engine stopping on its own, e.g. a silence timeout.
func (e *fakeEngine) end() {
	e.mu.Lock()
	e.running = false
	h := e.handlers
	e.mu.Unlock()
	h.OnEnd()
}

func (e *fakeEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

func (e *fakeEngine) abortCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborts
}

// fakeStore is an in-memory Store that records every write.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	records   map[string]meeting.Meeting
	updates   []db.Fields
	deleted   []string
	createErr error
	getErr    error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]meeting.Meeting{}}
}

func (s *fakeStore) Create(m *meeting.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	m.ID = fmt.Sprintf("sess-%03d", s.seq)
	m.CreatedAt = 1700000000
	m.UpdatedAt = 1700000000
	s.records[m.ID] = *m
	return nil
}

func (s *fakeStore) Get(id string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	m, ok := s.records[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	out := m
	return &out, nil
}

func (s *fakeStore) Update(id string, f db.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	m, ok := s.records[id]
	if !ok {
		return errors.NewNotFound(id)
	}
	if f.Name != nil {
		m.Name = *f.Name
	}
	if f.Folder != nil {
		m.Folder = *f.Folder
	}
	if f.Transcript != nil {
		m.Transcript = *f.Transcript
	}
	if f.InterimTranscript != nil {
		m.InterimTranscript = *f.InterimTranscript
	}
	if f.IsPaused != nil {
		m.IsPaused = *f.IsPaused
	}
	if f.IsMuted != nil {
		m.IsMuted = *f.IsMuted
	}
	if f.DurationSeconds != nil {
		m.DurationSeconds = *f.DurationSeconds
	}
	s.records[id] = m
	s.updates = append(s.updates, f)
	return nil
}

func (s *fakeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) record(t *testing.T, id string) meeting.Meeting {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok {
		t.Fatalf("no record %s in store", id)
	}
	return m
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func (s *fakeStore) setUpdateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *fakeStore) put(m meeting.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[m.ID] = m
}

// recordingCapture keeps the last acquired stream so tests can inspect
// its enabled flag.
type recordingCapture struct {
	inner media.Capture
	last  media.Stream
}

func (c *recordingCapture) Acquire(ctx context.Context, cons media.Constraints) (media.Stream, error) {
	s, err := c.inner.Acquire(ctx, cons)
	if err != nil {
		return nil, err
	}
	c.last = s
	return s, nil
}

type harness struct {
	clock   *fakeClock
	store   *fakeStore
	engine  *fakeEngine
	capture *recordingCapture
	rec     *Recorder
}

func newHarness(opts Options) *harness {
	h := &harness{
		clock:   newFakeClock(),
		store:   newFakeStore(),
		engine:  &fakeEngine{},
		capture: &recordingCapture{inner: media.NullCapture{}},
	}
	opts.Clock = h.clock
	if opts.Locale == "" {
		opts.Locale = "sv-SE"
	}
	h.rec = New(h.store, h.capture, func(cfg recognition.Config, handlers recognition.Handlers) (recognition.Engine, error) {
		h.engine.cfg = cfg
		h.engine.handlers = handlers
		return h.engine, nil
	}, opts)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
}

func (h *harness) streamEnabled() bool {
	if h.capture.last == nil {
		return false
	}
	return h.capture.last.Enabled()
}
