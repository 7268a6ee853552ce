// Package recognition defines the speech-recognition capability the session
// engine drives. The engine is an external collaborator: implementations
// adapt whatever recognizer the host environment provides (a browser bridge,
// a streaming provider, piped text). The session only depends on the event
// contract here.
package recognition

import (
	"errors"
)

// Config mirrors the engine configuration the session requests.
type Config struct {
	// Locale is the BCP-47 language tag, e.g. "sv-SE".
	Locale string

	// Continuous keeps the engine listening across utterances.
	Continuous bool

	// InterimResults asks the engine for unfinalized hypotheses.
	InterimResults bool
}

// Handlers receives engine events. Callbacks fire from the engine's own
// goroutine; receivers must do their own locking and must consult live
// session state, not state captured at registration time.
type Handlers struct {
	// OnResult delivers zero or more finalized fragments, in emission
	// order, and the current interim hypothesis ("" when none). The interim
	// value replaces any previous hypothesis wholesale.
	OnResult func(finals []string, interim string)

	// OnEnd fires when the engine stops, whether asked to or on its own
	// (silence timeout). The session decides whether to restart.
	OnEnd func()

	// OnError delivers engine faults. ErrNoSpeech is transient; ErrAborted
	// means the stop was self-inflicted and must be swallowed.
	OnError func(err error)
}

// Engine is one recognition engine instance. At most one may be started per
// session at any time; Start on a started engine returns ErrAlreadyStarted,
// which callers treat as success.
type Engine interface {
	// Start begins listening and delivering events.
	Start() error

	// Stop ends listening gracefully. Pending finals may still be delivered
	// before OnEnd fires.
	Stop() error

	// Abort ends listening immediately, discarding pending hypotheses.
	// The resulting error event carries ErrAborted.
	Abort() error
}

// Sentinel errors for the engine contract. Adapters translate provider
// error strings into these kinds at the boundary.
var (
	// ErrUnavailable means the host has no recognition capability at all.
	ErrUnavailable = errors.New("speech recognition unavailable")

	// ErrAlreadyStarted is returned by Start on a running engine. Benign.
	ErrAlreadyStarted = errors.New("recognition already started")

	// ErrNoSpeech is the transient nothing-heard error.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrAborted marks a stop the session itself requested.
	ErrAborted = errors.New("recognition aborted")
)
