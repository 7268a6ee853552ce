package ops

import (
	"database/sql"

	"github.com/wby/protokoll/internal/db"
)

// PruneOutput contains the result of the Prune operation.
type PruneOutput struct {
	Removed int `json:"removed"`
}

// Prune removes duplicate empty sessions created within the same minute,
// keeping the newest of each group. Empty sessions pile up when recording
// starts are abandoned before any speech arrives.
func Prune(database *sql.DB) (*PruneOutput, error) {
	removed, err := db.PruneEmptyDuplicates(database)
	if err != nil {
		return nil, err
	}
	return &PruneOutput{Removed: removed}, nil
}
