package session

import (
	"sync"
	"time"
)

// NoticeKind classifies messages the session surfaces to its UI.
type NoticeKind string

const (
	// NoticeNoSpeech is the dismissible nothing-heard notice.
	NoticeNoSpeech NoticeKind = "no_speech"

	// NoticeDurationLimit reports the session hit the duration ceiling
	// and was force-stopped.
	NoticeDurationLimit NoticeKind = "duration_limit"

	// NoticePersistence reports a failed background save. Recording
	// continues; the next debounce cycle retries.
	NoticePersistence NoticeKind = "persistence_degraded"

	// NoticeRestartFailed reports that the engine could not be restarted
	// after it ended on its own.
	NoticeRestartFailed NoticeKind = "restart_failed"

	// NoticeEngineError reports an unclassified recognition fault.
	NoticeEngineError NoticeKind = "engine_error"
)

// Notice is a sequenced message consumed by UI subscribers.
type Notice struct {
	Seq       int64      `json:"seq"`
	Timestamp time.Time  `json:"timestamp"`
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message,omitempty"`
}

// NoticeBus stores recent notices and provides incremental reads.
type NoticeBus struct {
	mu         sync.RWMutex
	nextSeq    int64
	maxNotices int
	notices    []Notice
}

// NewNoticeBus creates a bounded in-memory notice buffer.
func NewNoticeBus(maxNotices int) *NoticeBus {
	if maxNotices <= 0 {
		maxNotices = 100
	}

	return &NoticeBus{
		maxNotices: maxNotices,
		notices:    make([]Notice, 0, maxNotices),
	}
}

// Publish appends one notice and assigns sequence and timestamp.
func (b *NoticeBus) Publish(kind NoticeKind, message string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	n := Notice{
		Seq:       b.nextSeq,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Message:   message,
	}

	b.notices = append(b.notices, n)
	if len(b.notices) > b.maxNotices {
		trim := len(b.notices) - b.maxNotices
		b.notices = append([]Notice(nil), b.notices[trim:]...)
	}

	return n
}

// Since returns notices with sequence strictly greater than seq.
func (b *NoticeBus) Since(seq int64) []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.notices) == 0 {
		return nil
	}

	out := make([]Notice, 0, len(b.notices))
	for _, n := range b.notices {
		if n.Seq > seq {
			out = append(out, n)
		}
	}
	return out
}
