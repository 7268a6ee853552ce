// Package media defines the microphone-capture capability consumed by the
// session engine. Real capture is environment-provided; the session only
// needs track semantics: disable for mute, stop for teardown.
package media

import (
	"context"
	"sync"
)

// Constraints mirrors the audio processing options requested at acquisition.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConstraints returns the constraints every recording session uses.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Stream is an acquired microphone stream.
type Stream interface {
	// SetEnabled enables or disables the audio tracks. Disabled tracks stay
	// open but produce no audio: this is mute at the stream level.
	SetEnabled(enabled bool)

	// Enabled reports whether the tracks currently produce audio.
	Enabled() bool

	// Stop releases the tracks. A stopped stream cannot be re-enabled.
	Stop()
}

// Capture acquires microphone streams.
type Capture interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// trackStream implements Stream with plain flag semantics.
type trackStream struct {
	mu      sync.Mutex
	enabled bool
	stopped bool
}

func (s *trackStream) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.enabled = enabled
}

func (s *trackStream) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && !s.stopped
}

func (s *trackStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.enabled = false
}

// NullCapture acquires streams not backed by any device. It serves hosts
// where dictation arrives as text (piped input) and tests.
type NullCapture struct{}

// Acquire returns an enabled deviceless stream.
func (NullCapture) Acquire(_ context.Context, _ Constraints) (Stream, error) {
	return &trackStream{enabled: true}, nil
}

// FailingCapture always fails acquisition with the given error, standing in
// for denied microphone permission.
type FailingCapture struct {
	Err error
}

// Acquire returns the configured error.
func (f FailingCapture) Acquire(_ context.Context, _ Constraints) (Stream, error) {
	return nil, f.Err
}
