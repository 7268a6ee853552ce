package ops

import (
	"database/sql"
	"testing"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

func seedEmptyAt(t *testing.T, database *sql.DB, id string, createdAt int64) {
	t.Helper()
	m := &meeting.Meeting{
		ID:        id,
		Name:      meeting.DefaultName,
		Folder:    meeting.DefaultFolder,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := db.InsertMeeting(database, m); err != nil {
		t.Fatalf("InsertMeeting failed: %v", err)
	}
}

func TestPrune_RemovesSameMinuteEmpties(t *testing.T) {
	database := testDB(t)
	base := int64(1700000000) - 1700000000%60

	seedEmptyAt(t, database, "empty-a", base)
	seedEmptyAt(t, database, "empty-b", base+10)
	seedEmptyAt(t, database, "empty-c", base+50)
	// Different minute, survives on its own.
	seedEmptyAt(t, database, "empty-d", base+70)
	// Has content, never pruned.
	seedMeeting(t, database, "Riktigt möte", meeting.DefaultFolder, "innehåll")

	out, err := Prune(database)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if out.Removed != 2 {
		t.Errorf("removed = %d, want 2", out.Removed)
	}

	// The newest of the same-minute group survives.
	if _, err := Fetch(database, FetchInput{ID: "empty-c"}); err != nil {
		t.Errorf("empty-c should survive: %v", err)
	}
	for _, gone := range []string{"empty-a", "empty-b"} {
		if _, err := Fetch(database, FetchInput{ID: gone}); !errors.Is(err, errors.ErrNotFound) {
			t.Errorf("%s should be pruned, got %v", gone, err)
		}
	}
	if _, err := Fetch(database, FetchInput{ID: "empty-d"}); err != nil {
		t.Errorf("empty-d should survive: %v", err)
	}
}

func TestPrune_NothingToRemove(t *testing.T) {
	database := testDB(t)
	seedMeeting(t, database, "Möte", meeting.DefaultFolder, "innehåll")

	out, err := Prune(database)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if out.Removed != 0 {
		t.Errorf("removed = %d, want 0", out.Removed)
	}
}
