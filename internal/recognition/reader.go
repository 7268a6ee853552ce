package recognition

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// ReaderEngine adapts a line-oriented reader to the Engine contract, used
// for piped and typed dictation. Each line is delivered first as an interim
// hypothesis and then as a final fragment, so consumers see the same
// two-phase result flow a live recognizer produces. Blank lines become
// ErrNoSpeech events. Lines read while the engine is stopped are dropped,
// the way audio spoken into a stopped recognizer is.
type ReaderEngine struct {
	mu       sync.Mutex
	scanner  *bufio.Scanner
	handlers Handlers
	started  bool
	reading  bool
	eof      bool
}

// NewReaderEngine creates a ReaderEngine over r.
func NewReaderEngine(r io.Reader, h Handlers) *ReaderEngine {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &ReaderEngine{scanner: scanner, handlers: h}
}

// Start begins (or resumes) delivering one event pair per input line.
func (e *ReaderEngine) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	if e.eof {
		e.mu.Unlock()
		return ErrUnavailable
	}
	e.started = true
	launch := !e.reading
	if launch {
		e.reading = true
	}
	e.mu.Unlock()

	// One reader goroutine for the engine's whole life; restarts just
	// re-arm delivery.
	if launch {
		go e.run()
	}
	return nil
}

// Stop ends delivery. The pending line, if any, is dropped.
func (e *ReaderEngine) Stop() error {
	return e.halt(nil)
}

// Abort ends delivery and reports the self-inflicted stop.
func (e *ReaderEngine) Abort() error {
	return e.halt(ErrAborted)
}

func (e *ReaderEngine) halt(cause error) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	e.mu.Unlock()

	if cause != nil && e.handlers.OnError != nil {
		e.handlers.OnError(cause)
	}
	if e.handlers.OnEnd != nil {
		e.handlers.OnEnd()
	}
	return nil
}

func (e *ReaderEngine) run() {
	for e.scanner.Scan() {
		line := strings.TrimSpace(e.scanner.Text())

		e.mu.Lock()
		active := e.started
		e.mu.Unlock()
		if !active {
			continue
		}

		if line == "" {
			if e.handlers.OnError != nil {
				e.handlers.OnError(ErrNoSpeech)
			}
			continue
		}

		if e.handlers.OnResult != nil {
			e.handlers.OnResult(nil, line)
			e.handlers.OnResult([]string{line}, "")
		}
	}

	e.mu.Lock()
	e.eof = true
	e.reading = false
	wasStarted := e.started
	e.started = false
	e.mu.Unlock()

	if wasStarted && e.handlers.OnEnd != nil {
		e.handlers.OnEnd()
	}
}
