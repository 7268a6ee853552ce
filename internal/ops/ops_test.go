package ops

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/meeting"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

var seedSeq int

func seedMeeting(t *testing.T, database *sql.DB, name, folder, transcript string) string {
	t.Helper()
	seedSeq++
	m := &meeting.Meeting{
		ID:         fmt.Sprintf("seed-%03d", seedSeq),
		Name:       name,
		Folder:     folder,
		Transcript: transcript,
		CreatedAt:  1700000000 + int64(seedSeq),
		UpdatedAt:  1700000000 + int64(seedSeq),
	}
	if folder != meeting.DefaultFolder {
		if err := db.EnsureFolder(database, folder); err != nil {
			t.Fatalf("EnsureFolder failed: %v", err)
		}
	}
	if err := db.InsertMeeting(database, m); err != nil {
		t.Fatalf("InsertMeeting failed: %v", err)
	}
	return m.ID
}
