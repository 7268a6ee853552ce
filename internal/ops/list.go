package ops

import (
	"database/sql"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/meeting"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Folder string // empty means all folders
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []meeting.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// List retrieves meeting summaries, newest first, optionally filtered by
// folder.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	folder := input.Folder
	if folder != "" {
		resolved, err := db.ResolveFolder(database, folder)
		if err != nil {
			return nil, err
		}
		folder = resolved
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset := max(input.Offset, 0)

	summaries, total, err := db.ListMeetings(database, folder, limit, offset)
	if err != nil {
		return nil, err
	}

	if summaries == nil {
		summaries = []meeting.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
