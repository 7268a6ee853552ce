package ops

import (
	"database/sql"
	"strings"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID                string
	IncludeTranscript *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	meeting.Meeting // embedded (copy, not pointer)
}

// Fetch retrieves a meeting by id.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id must not be empty")
	}

	m, err := db.GetMeeting(database, id)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Meeting: *m}

	includeTranscript := true
	if input.IncludeTranscript != nil {
		includeTranscript = *input.IncludeTranscript
	}
	if !includeTranscript {
		output.Transcript = ""
		output.InterimTranscript = ""
	}

	return output, nil
}
