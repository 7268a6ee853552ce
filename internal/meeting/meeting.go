package meeting

import (
	"regexp"
	"strings"
)

// DefaultName is the display label assigned to a session the user never named.
const DefaultName = "Untitled meeting"

// DefaultFolder is the folder every session lands in unless filed elsewhere.
// Deleting a folder moves its meetings back here.
const DefaultFolder = "General"

// Meeting is one recording session persisted as a single record.
type Meeting struct {
	// ID is a ULID assigned when the record is created
	ID string `json:"id"`

	// Name is the user-editable display label
	Name string `json:"name"`

	// Folder is the categorization tag; always references an existing folder
	Folder string `json:"folder"`

	// Transcript is the append-only text built from finalized recognition results
	Transcript string `json:"transcript"`

	// InterimTranscript is the last unfinalized hypothesis. It is replaced
	// wholesale on every recognition update and cleared on pause, mute, and
	// when a final fragment arrives. Persisted only so the library can show
	// a live preview; it is never part of the finished document.
	InterimTranscript string `json:"interim_transcript"`

	// IsPaused reports whether the user paused the session
	IsPaused bool `json:"is_paused"`

	// IsMuted reports whether the user muted capture. Independent of IsPaused.
	IsMuted bool `json:"is_muted"`

	// DurationSeconds is the accrued recording time. Never decreases.
	DurationSeconds int `json:"duration_seconds"`

	// CreatedAt is the Unix timestamp when the record was created
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp when the record was last written
	UpdatedAt int64 `json:"updated_at"`
}

// Protocol is the structured meeting-minutes document derived from a transcript.
type Protocol struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	MainPoints  []string `json:"mainPoints"`
	Decisions   []string `json:"decisions"`
	ActionItems []string `json:"actionItems"`
}

// CombinedTranscript returns the transcript with any trailing interim
// hypothesis folded in. This is the text that reaches protocol generation.
func (m *Meeting) CombinedTranscript() string {
	if m.InterimTranscript == "" {
		return m.Transcript
	}
	return m.Transcript + m.InterimTranscript
}

// HasContent reports whether the session captured any spoken text at all.
func (m *Meeting) HasContent() bool {
	return strings.TrimSpace(m.CombinedTranscript()) != ""
}

// Summary is a meeting's metadata without the full transcript.
// Used for browse operations to reduce data transfer.
type Summary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Folder          string `json:"folder"`
	Preview         string `json:"preview"`
	IsPaused        bool   `json:"is_paused"`
	DurationSeconds int    `json:"duration_seconds"`
	WordCount       int    `json:"word_count"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// previewChars bounds the transcript excerpt shown in listings.
const previewChars = 160

// ToSummary converts a Meeting to a Summary, truncating the transcript to a
// short preview. An in-flight interim hypothesis stands in when nothing has
// been finalized yet, matching what a live library listing should show.
func (m *Meeting) ToSummary() Summary {
	preview := strings.TrimSpace(m.Transcript)
	if preview == "" {
		preview = strings.TrimSpace(m.InterimTranscript)
	}
	if runes := []rune(preview); len(runes) > previewChars {
		preview = string(runes[:previewChars]) + "…"
	}

	return Summary{
		ID:              m.ID,
		Name:            m.Name,
		Folder:          m.Folder,
		Preview:         preview,
		IsPaused:        m.IsPaused,
		DurationSeconds: m.DurationSeconds,
		WordCount:       WordCount(m.Transcript),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize normalizes a folder name:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// WordCount counts whitespace-separated words. The short-content gate at
// stop time compares this against the configured minimum.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
