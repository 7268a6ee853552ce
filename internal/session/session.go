// Package session implements the recording session engine: it coordinates
// microphone capture, the speech-recognition engine lifecycle, transcript
// accumulation, pause/mute semantics, duration tracking, and debounced
// persistence, and hands the final transcript to protocol generation.
package session

import (
	"context"
	stderrors "errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/media"
	"github.com/wby/protokoll/internal/meeting"
	"github.com/wby/protokoll/internal/recognition"
)

// Status tracks the session lifecycle. Paused and Muted are flags layered
// on Active, not states of their own: both may hold at once, and each
// independently gates the engine and the audio tracks.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
	StatusStopping     Status = "stopping"
	StatusFinished     Status = "finished"
)

// Policy defaults, overridable through Options.
const (
	DefaultDebounceWindow = 1500 * time.Millisecond
	DefaultRestartDelay   = 100 * time.Millisecond
	DefaultMaxDuration    = 2 * time.Hour
	DefaultMinWords       = 30
)

// Options configures a Recorder.
type Options struct {
	// ResumeID continues an existing session instead of creating one.
	ResumeID string

	// Name and Folder seed a fresh session. Empty values fall back to
	// meeting.DefaultName and meeting.DefaultFolder.
	Name   string
	Folder string

	// Locale is handed to the recognition engine.
	Locale string

	// DebounceWindow coalesces persistence writes.
	DebounceWindow time.Duration

	// RestartDelay spaces out engine auto-restarts.
	RestartDelay time.Duration

	// MaxDuration force-stops the session when reached.
	MaxDuration time.Duration

	// MinWords is the short-content confirmation threshold at stop time.
	MinWords int

	// PreserveMute keeps a resumed session's mute flag instead of
	// re-arming audio. Pause is always cleared on resume: continuing a
	// session implies intent to keep talking.
	PreserveMute bool

	// Clock overrides timer creation in tests. Nil means wall clock.
	Clock Clock
}

// OptionsFromConfig builds Options from application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Locale:         cfg.Locale,
		DebounceWindow: time.Duration(cfg.DebounceMillis) * time.Millisecond,
		RestartDelay:   time.Duration(cfg.RestartDelayMillis) * time.Millisecond,
		MaxDuration:    time.Duration(cfg.MaxDurationSeconds) * time.Second,
		MinWords:       cfg.MinWordCount,
		PreserveMute:   true,
	}
}

// EngineFactory creates the recognition engine for a session, with the
// session's callbacks installed. Returning recognition.ErrUnavailable means
// the host has no recognition capability.
type EngineFactory func(cfg recognition.Config, h recognition.Handlers) (recognition.Engine, error)

// Outcome classifies how a stop request resolved.
type Outcome string

const (
	// OutcomeDiscarded means nothing was recorded; the record was deleted.
	OutcomeDiscarded Outcome = "discarded"

	// OutcomeShortTranscript means the transcript is under the word
	// threshold. The session is still active; the caller either keeps
	// recording or stops again with Force.
	OutcomeShortTranscript Outcome = "short_transcript"

	// OutcomeFinished means the session ended and the transcript is ready
	// for protocol generation.
	OutcomeFinished Outcome = "finished"
)

// StopResult carries the hand-off payload for a finished session.
type StopResult struct {
	Outcome    Outcome
	SessionID  string
	Name       string
	Transcript string
	WordCount  int
}

// StopOptions modifies stop behavior.
type StopOptions struct {
	// Force skips the short-content confirmation gate.
	Force bool
}

// Recorder owns the lifecycle of one recording session. A Recorder is
// single-use: once stopped or failed it cannot be started again.
type Recorder struct {
	opts      Options
	store     Store
	capture   media.Capture
	newEngine EngineFactory
	clock     Clock
	bus       *NoticeBus
	saver     *saver

	mu            sync.Mutex
	started       bool
	status        Status
	m             meeting.Meeting
	engine        recognition.Engine
	stream        media.Stream
	engineRunning bool
	restartTimer  Timer
	tickTimer     Timer
}

// New creates an idle Recorder.
func New(store Store, capture media.Capture, factory EngineFactory, opts Options) *Recorder {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.MinWords <= 0 {
		opts.MinWords = DefaultMinWords
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	r := &Recorder{
		opts:      opts,
		store:     store,
		capture:   capture,
		newEngine: factory,
		clock:     opts.Clock,
		bus:       NewNoticeBus(0),
		status:    StatusIdle,
	}
	r.saver = newSaver(r.clock, opts.DebounceWindow, r.persistSnapshot)
	return r
}

// Start resolves the session record, acquires the microphone, and starts
// recognition. Calling Start twice is a no-op: initialization is guarded
// one-shot against re-entrant lifecycle hooks.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.status = StatusInitializing
	r.mu.Unlock()

	fresh := r.opts.ResumeID == ""
	var m *meeting.Meeting
	if fresh {
		m = &meeting.Meeting{
			Name:   r.opts.Name,
			Folder: r.opts.Folder,
		}
		if m.Name == "" {
			m.Name = meeting.DefaultName
		}
		if m.Folder == "" {
			m.Folder = meeting.DefaultFolder
		}
		if err := r.store.Create(m); err != nil {
			r.fail()
			return err
		}
	} else {
		loaded, err := r.store.Get(r.opts.ResumeID)
		if err != nil {
			r.fail()
			return err
		}
		m = loaded
		// Resuming re-arms capture: the pause flag never survives a
		// resume, while mute may, forcing an explicit unmute.
		m.IsPaused = false
		m.InterimTranscript = ""
		if !r.opts.PreserveMute {
			m.IsMuted = false
		}
	}

	stream, err := r.capture.Acquire(ctx, media.DefaultConstraints())
	if err != nil {
		if fresh {
			r.discardRecord(m.ID)
		}
		r.fail()
		return errors.NewPermissionDenied("could not access the microphone: " + err.Error())
	}

	engine, err := r.newEngine(recognition.Config{
		Locale:         r.opts.Locale,
		Continuous:     true,
		InterimResults: true,
	}, recognition.Handlers{
		OnResult: r.handleResult,
		OnEnd:    r.handleEnd,
		OnError:  r.handleError,
	})
	if err != nil {
		stream.Stop()
		if fresh {
			r.discardRecord(m.ID)
		}
		r.fail()
		return errors.NewCapabilityUnavailable("speech recognition")
	}

	r.mu.Lock()
	r.m = *m
	r.engine = engine
	r.stream = stream
	r.status = StatusActive
	muted := m.IsMuted
	r.armTickLocked()
	r.mu.Unlock()

	if muted {
		stream.SetEnabled(false)
	} else {
		if err := engine.Start(); err != nil && !stderrors.Is(err, recognition.ErrAlreadyStarted) {
			stream.Stop()
			if fresh {
				r.discardRecord(m.ID)
			}
			r.fail()
			return errors.NewCapabilityUnavailable("speech recognition")
		}
		r.mu.Lock()
		r.engineRunning = true
		r.mu.Unlock()
	}

	if !fresh {
		// The cleared pause flag must reach the store.
		r.saver.Schedule()
	}

	return nil
}

// TogglePause flips the pause flag. Pausing clears the interim hypothesis
// and cancels any pending restart before the engine's asynchronous stop
// completes, and disables the audio tracks so nothing is processed at all.
func (r *Recorder) TogglePause() {
	r.mu.Lock()
	if r.status != StatusActive {
		r.mu.Unlock()
		return
	}
	r.m.IsPaused = !r.m.IsPaused
	pausing := r.m.IsPaused
	r.m.InterimTranscript = ""
	r.cancelRestartLocked()
	if pausing {
		r.cancelTickLocked()
	} else {
		r.armTickLocked()
	}
	r.saver.Schedule()
	muted := r.m.IsMuted
	engine, stream := r.engine, r.stream
	wasRunning := r.engineRunning
	if pausing {
		r.engineRunning = false
	}
	r.mu.Unlock()

	if pausing {
		stream.SetEnabled(false)
		if wasRunning {
			_ = engine.Stop()
		}
	} else if !muted {
		stream.SetEnabled(true)
		r.startEngine(engine)
	}
}

// ToggleMute flips the mute flag. Mute is orthogonal to pause: a muted,
// unpaused session still accrues duration, it just captures no audio.
func (r *Recorder) ToggleMute() {
	r.mu.Lock()
	if r.status != StatusActive {
		r.mu.Unlock()
		return
	}
	r.m.IsMuted = !r.m.IsMuted
	muting := r.m.IsMuted
	r.m.InterimTranscript = ""
	r.cancelRestartLocked()
	r.saver.Schedule()
	paused := r.m.IsPaused
	engine, stream := r.engine, r.stream
	wasRunning := r.engineRunning
	if muting {
		r.engineRunning = false
	}
	r.mu.Unlock()

	if muting {
		stream.SetEnabled(false)
		if wasRunning {
			_ = engine.Stop()
		}
	} else if !paused {
		stream.SetEnabled(true)
		r.startEngine(engine)
	}
}

// SetName renames the session.
func (r *Recorder) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = meeting.DefaultName
	}
	r.mu.Lock()
	if r.m.Name != name {
		r.m.Name = name
		r.saver.Schedule()
	}
	r.mu.Unlock()
}

// SetFolder refiles the session. Callers validate the folder exists;
// an empty value falls back to the default folder.
func (r *Recorder) SetFolder(folder string) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		folder = meeting.DefaultFolder
	}
	r.mu.Lock()
	if r.m.Folder != folder {
		r.m.Folder = folder
		r.saver.Schedule()
	}
	r.mu.Unlock()
}

// Stop ends the session. An empty session is deleted, a short one is held
// for confirmation unless forced, and anything else is torn down, given a
// final awaited write, and handed back for protocol generation.
func (r *Recorder) Stop(opts StopOptions) (*StopResult, error) {
	r.mu.Lock()
	if r.status != StatusActive {
		r.mu.Unlock()
		return nil, errors.NewInvalidRequest("no active recording to stop")
	}

	combined := r.m.CombinedTranscript()
	if strings.TrimSpace(combined) == "" {
		r.status = StatusStopping
		r.cancelTimersLocked()
		id := r.m.ID
		engine, stream := r.engine, r.stream
		r.mu.Unlock()

		r.saver.Cancel()
		releaseCapture(engine, stream)
		r.discardRecord(id)

		r.mu.Lock()
		r.status = StatusFinished
		r.mu.Unlock()
		return &StopResult{Outcome: OutcomeDiscarded}, nil
	}

	words := meeting.WordCount(combined)
	if words < r.opts.MinWords && !opts.Force {
		// Not an error: the caller offers "keep recording" or "proceed
		// anyway". Nothing has been torn down.
		r.mu.Unlock()
		return &StopResult{Outcome: OutcomeShortTranscript, WordCount: words}, nil
	}

	r.status = StatusStopping
	// Fold the trailing interim hypothesis into the permanent transcript.
	r.m.Transcript = combined
	r.m.InterimTranscript = ""
	r.m.IsPaused = false
	r.cancelTimersLocked()
	id, name := r.m.ID, r.m.Name
	engine, stream := r.engine, r.stream
	r.mu.Unlock()

	releaseCapture(engine, stream)

	// Final non-debounced write so the terminal transcript is never lost
	// to a pending debounce. Failure is logged, never blocks hand-off.
	if err := r.saver.Flush(); err != nil {
		log.Printf("final session write failed: %v", err)
	}

	r.mu.Lock()
	r.status = StatusFinished
	r.mu.Unlock()

	return &StopResult{
		Outcome:    OutcomeFinished,
		SessionID:  id,
		Name:       name,
		Transcript: combined,
		WordCount:  words,
	}, nil
}

// SaveToLibrary persists the session and ends the view without protocol
// generation. Only available while paused and only with spoken content;
// the record keeps its paused flag so the library shows it as resumable.
func (r *Recorder) SaveToLibrary() error {
	r.mu.Lock()
	if r.status != StatusActive || !r.m.IsPaused {
		r.mu.Unlock()
		return errors.NewInvalidRequest("save to library requires a paused session")
	}
	if !r.m.HasContent() {
		r.mu.Unlock()
		return errors.NewInvalidRequest("nothing recorded yet")
	}
	r.status = StatusStopping
	r.cancelTimersLocked()
	engine, stream := r.engine, r.stream
	r.mu.Unlock()

	releaseCapture(engine, stream)
	err := r.saver.Flush()

	r.mu.Lock()
	r.status = StatusFinished
	r.mu.Unlock()

	if err != nil {
		return errors.NewPersistence(err)
	}
	return nil
}

// Close cancels all pending timers and releases the engine and stream.
// Used when the caller navigates away without a proper stop. A last
// best-effort write preserves whatever was captured.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.status != StatusActive && r.status != StatusInitializing {
		r.mu.Unlock()
		return
	}
	r.status = StatusStopping
	r.cancelTimersLocked()
	engine, stream := r.engine, r.stream
	hasRecord := r.m.ID != ""
	r.mu.Unlock()

	releaseCapture(engine, stream)
	if hasRecord {
		if err := r.saver.Flush(); err != nil {
			log.Printf("close-time session write failed: %v", err)
		}
	} else {
		r.saver.Cancel()
	}

	r.mu.Lock()
	r.status = StatusFinished
	r.mu.Unlock()
}

// Status returns the current lifecycle state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns a copy of the current session record.
func (r *Recorder) Snapshot() meeting.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m
}

// Notices exposes the session's notice bus.
func (r *Recorder) Notices() *NoticeBus {
	return r.bus
}

// handleResult processes a recognition result event. Flags are read here,
// at callback time, not at registration time: a stale callback arriving
// after a pause or mute must never revive interim text.
func (r *Recorder) handleResult(finals []string, interim string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusActive || r.m.IsPaused || r.m.IsMuted {
		return
	}

	if len(finals) > 0 {
		var b strings.Builder
		b.WriteString(r.m.Transcript)
		for _, f := range finals {
			b.WriteString(f)
			b.WriteString(" ")
		}
		r.m.Transcript = b.String()
		// A final fragment supersedes whatever hypothesis preceded it.
		r.m.InterimTranscript = interim
		r.saver.Schedule()
		return
	}

	if interim != "" && interim != r.m.InterimTranscript {
		r.m.InterimTranscript = interim
		r.saver.Schedule()
	}
}

// handleEnd fires when the engine stops, deliberately or on its own
// (silence timeout). If the session still wants audio, a restart is
// scheduled after a short delay to avoid restart storms.
func (r *Recorder) handleEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.engineRunning = false

	if r.status != StatusActive || r.m.IsPaused || r.m.IsMuted {
		return
	}
	if r.restartTimer != nil {
		// A restart is already pending; that is success, not failure.
		return
	}
	r.restartTimer = r.clock.AfterFunc(r.opts.RestartDelay, r.restartEngine)
}

// handleError translates engine faults. Self-inflicted aborts are swallowed
// entirely; no-speech is a dismissible notice; the rest degrade to a notice
// as well since recording may still recover via restart.
func (r *Recorder) handleError(err error) {
	switch {
	case stderrors.Is(err, recognition.ErrAborted):
		// Caused by our own stop/pause/mute. Not an error.
	case stderrors.Is(err, recognition.ErrNoSpeech):
		r.bus.Publish(NoticeNoSpeech, "no speech detected, try speaking louder")
	default:
		r.bus.Publish(NoticeEngineError, err.Error())
	}
}

func (r *Recorder) restartEngine() {
	r.mu.Lock()
	r.restartTimer = nil
	if r.status != StatusActive || r.m.IsPaused || r.m.IsMuted || r.engineRunning {
		r.mu.Unlock()
		return
	}
	engine := r.engine
	r.mu.Unlock()

	r.startEngine(engine)
}

// startEngine starts the engine, treating "already started" as success.
func (r *Recorder) startEngine(engine recognition.Engine) {
	err := engine.Start()
	if err != nil && !stderrors.Is(err, recognition.ErrAlreadyStarted) {
		r.bus.Publish(NoticeRestartFailed, err.Error())
		return
	}

	r.mu.Lock()
	if r.status == StatusActive {
		r.engineRunning = true
	}
	r.mu.Unlock()
}

// onTick advances the duration counter once per second while the session
// is active and unpaused. Mute does not stop the clock: a muted session is
// still recording from the user's perspective.
func (r *Recorder) onTick() {
	r.mu.Lock()
	if r.status != StatusActive || r.m.IsPaused {
		r.tickTimer = nil
		r.mu.Unlock()
		return
	}

	r.m.DurationSeconds++
	r.saver.Schedule()
	hitCeiling := time.Duration(r.m.DurationSeconds)*time.Second >= r.opts.MaxDuration
	if hitCeiling {
		r.tickTimer = nil
	} else {
		r.armTickLocked()
	}
	r.mu.Unlock()

	if hitCeiling {
		r.bus.Publish(NoticeDurationLimit, "maximum recording length reached")
		if _, err := r.Stop(StopOptions{Force: true}); err != nil {
			log.Printf("ceiling stop failed: %v", err)
		}
	}
}

// armTickLocked (re)creates the 1-second duration timer. The previous
// timer is always cancelled first so ticks never stack.
func (r *Recorder) armTickLocked() {
	if r.tickTimer != nil {
		r.tickTimer.Stop()
	}
	r.tickTimer = r.clock.AfterFunc(time.Second, r.onTick)
}

func (r *Recorder) cancelTickLocked() {
	if r.tickTimer != nil {
		r.tickTimer.Stop()
		r.tickTimer = nil
	}
}

func (r *Recorder) cancelRestartLocked() {
	if r.restartTimer != nil {
		r.restartTimer.Stop()
		r.restartTimer = nil
	}
}

func (r *Recorder) cancelTimersLocked() {
	r.cancelTickLocked()
	r.cancelRestartLocked()
}

// persistSnapshot writes the current field values. Called by the saver at
// debounce fire time and at flush, so the write reflects the latest state.
func (r *Recorder) persistSnapshot() error {
	r.mu.Lock()
	if r.m.ID == "" {
		r.mu.Unlock()
		return nil
	}
	id := r.m.ID
	name := r.m.Name
	folder := r.m.Folder
	transcript := r.m.Transcript
	interim := r.m.InterimTranscript
	isPaused := r.m.IsPaused
	isMuted := r.m.IsMuted
	duration := r.m.DurationSeconds
	r.mu.Unlock()

	err := r.store.Update(id, db.Fields{
		Name:              &name,
		Folder:            &folder,
		Transcript:        &transcript,
		InterimTranscript: &interim,
		IsPaused:          &isPaused,
		IsMuted:           &isMuted,
		DurationSeconds:   &duration,
	})
	if err != nil {
		r.bus.Publish(NoticePersistence, err.Error())
		return err
	}
	return nil
}

// fail marks a session that never reached Active. The Recorder stays
// unusable; the caller builds a new one to retry.
func (r *Recorder) fail() {
	r.mu.Lock()
	r.status = StatusIdle
	r.mu.Unlock()
}

// discardRecord removes an abandoned record, best-effort.
func (r *Recorder) discardRecord(id string) {
	if id == "" {
		return
	}
	if err := r.store.Delete(id); err != nil {
		log.Printf("discarding session %s failed: %v", id, err)
	}
}

// releaseCapture tears down the engine and stream. Teardown errors are
// swallowed: failure to stop the engine must not prevent releasing tracks.
func releaseCapture(engine recognition.Engine, stream media.Stream) {
	if engine != nil {
		_ = engine.Abort()
	}
	if stream != nil {
		stream.Stop()
	}
}
