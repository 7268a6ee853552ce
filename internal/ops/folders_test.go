package ops

import (
	"testing"

	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

func TestFolderAdd(t *testing.T) {
	database := testDB(t)

	out, err := FolderAdd(database, FolderAddInput{Name: "Planering"})
	if err != nil {
		t.Fatalf("FolderAdd failed: %v", err)
	}
	if !out.Created || out.Name != "Planering" {
		t.Errorf("output = %+v", out)
	}

	// Adding again, in any casing, is a no-op that reports the canonical name.
	out, err = FolderAdd(database, FolderAddInput{Name: "planering"})
	if err != nil {
		t.Fatalf("FolderAdd failed: %v", err)
	}
	if out.Created {
		t.Error("re-adding must not create")
	}
	if out.Name != "Planering" {
		t.Errorf("name = %q, want the canonical casing", out.Name)
	}
}

func TestFolderAdd_EmptyName(t *testing.T) {
	database := testDB(t)

	_, err := FolderAdd(database, FolderAddInput{Name: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestFolderList_DefaultFirst(t *testing.T) {
	database := testDB(t)
	if _, err := FolderAdd(database, FolderAddInput{Name: "Planering"}); err != nil {
		t.Fatalf("FolderAdd failed: %v", err)
	}
	if _, err := FolderAdd(database, FolderAddInput{Name: "Avslutade"}); err != nil {
		t.Fatalf("FolderAdd failed: %v", err)
	}

	out, err := FolderList(database)
	if err != nil {
		t.Fatalf("FolderList failed: %v", err)
	}
	if len(out.Folders) != 3 {
		t.Fatalf("folders = %v, want 3", out.Folders)
	}
	if out.Folders[0] != meeting.DefaultFolder {
		t.Errorf("first = %q, want the default folder", out.Folders[0])
	}
	if out.Folders[1] != "Avslutade" || out.Folders[2] != "Planering" {
		t.Errorf("rest = %v, want sorted", out.Folders[1:])
	}
}

func TestFolderRemove_ReassignsMeetings(t *testing.T) {
	database := testDB(t)
	id := seedMeeting(t, database, "Planeringsmöte", "Planering", "text")

	out, err := FolderRemove(database, FolderRemoveInput{Name: "Planering"})
	if err != nil {
		t.Fatalf("FolderRemove failed: %v", err)
	}
	if !out.Removed || out.ReassignedTo != meeting.DefaultFolder {
		t.Errorf("output = %+v", out)
	}

	fetched, err := Fetch(database, FetchInput{ID: id})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fetched.Folder != meeting.DefaultFolder {
		t.Errorf("folder = %q, want reassignment to the default", fetched.Folder)
	}
}

func TestFolderRemove_DefaultRefused(t *testing.T) {
	database := testDB(t)

	_, err := FolderRemove(database, FolderRemoveInput{Name: meeting.DefaultFolder})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestFolderRemove_Missing(t *testing.T) {
	database := testDB(t)

	_, err := FolderRemove(database, FolderRemoveInput{Name: "finns-inte"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}
