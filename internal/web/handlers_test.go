package web

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/meeting"
	"github.com/wby/protokoll/internal/protocol"
)

var seedSeq int

func testHandler(t *testing.T) (http.Handler, *sql.DB) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	h := &Handlers{
		db:         database,
		cfg:        cfg,
		generator:  protocol.NewGenerator(cfg),
		exportsDir: db.ExportsDir(baseDir),
	}
	return NewHandler(h), database
}

func seedMeeting(t *testing.T, database *sql.DB, name, transcript string) string {
	t.Helper()
	seedSeq++
	m := &meeting.Meeting{
		ID:         fmt.Sprintf("seed-%03d", seedSeq),
		Name:       name,
		Folder:     meeting.DefaultFolder,
		Transcript: transcript,
		CreatedAt:  1700000000 + int64(seedSeq),
		UpdatedAt:  1700000000 + int64(seedSeq),
	}
	if err := db.InsertMeeting(database, m); err != nil {
		t.Fatalf("InsertMeeting failed: %v", err)
	}
	return m.ID
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleList(t *testing.T) {
	handler, database := testHandler(t)
	seedMeeting(t, database, "Första mötet", "text")
	seedMeeting(t, database, "Andra mötet", "text")

	rec := doRequest(t, handler, "GET", "/api/meetings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	var out struct {
		Items []meeting.Summary `json:"items"`
	}
	decodeBody(t, rec, &out)
	if len(out.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(out.Items))
	}
	if out.Items[0].Name != "Andra mötet" {
		t.Errorf("first item = %q, want newest first", out.Items[0].Name)
	}
}

func TestHandleList_UnknownFolder(t *testing.T) {
	handler, _ := testHandler(t)

	rec := doRequest(t, handler, "GET", "/api/meetings?folder=okänd", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleFetch(t *testing.T) {
	handler, database := testHandler(t)
	id := seedMeeting(t, database, "Styrelsemöte", "beslut om budget ")

	rec := doRequest(t, handler, "GET", "/api/meetings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out meeting.Meeting
	decodeBody(t, rec, &out)
	if out.Name != "Styrelsemöte" || out.Transcript != "beslut om budget " {
		t.Errorf("meeting = %+v", out)
	}
}

func TestHandleFetch_NotFound(t *testing.T) {
	handler, _ := testHandler(t)

	rec := doRequest(t, handler, "GET", "/api/meetings/finns-inte", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var out struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &out)
	if out.Error != "NOT_FOUND" {
		t.Errorf("error = %q", out.Error)
	}
}

func TestHandleDelete(t *testing.T) {
	handler, database := testHandler(t)
	id := seedMeeting(t, database, "Bortglömt", "text")

	rec := doRequest(t, handler, "DELETE", "/api/meetings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doRequest(t, handler, "GET", "/api/meetings/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("fetch after delete = %d, want 404", rec.Code)
	}
}

func TestHandleFolders(t *testing.T) {
	handler, _ := testHandler(t)

	rec := doRequest(t, handler, "POST", "/api/folders", `{"name":"Planering"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, "GET", "/api/folders", "")
	var out struct {
		Folders []string `json:"folders"`
	}
	decodeBody(t, rec, &out)
	if len(out.Folders) != 2 || out.Folders[1] != "Planering" {
		t.Errorf("folders = %v", out.Folders)
	}

	rec = doRequest(t, handler, "DELETE", "/api/folders/Planering", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}

	rec = doRequest(t, handler, "DELETE", "/api/folders/"+meeting.DefaultFolder, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("default folder remove = %d, want 400", rec.Code)
	}
}

func TestHandleFolderAdd_BadBody(t *testing.T) {
	handler, _ := testHandler(t)

	rec := doRequest(t, handler, "POST", "/api/folders", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerate_FallbackWithoutRemote(t *testing.T) {
	handler, database := testHandler(t)
	id := seedMeeting(t, database, "Veckomöte", "första punkten. andra punkten.")

	// No generator API key is configured, so generation degrades locally.
	rec := doRequest(t, handler, "POST", "/api/meetings/"+id+"/protocol", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Degraded bool `json:"degraded"`
		Protocol struct {
			Title      string   `json:"title"`
			MainPoints []string `json:"mainPoints"`
		} `json:"protocol"`
	}
	decodeBody(t, rec, &out)
	if !out.Degraded {
		t.Error("expected degraded protocol without remote access")
	}
	if out.Protocol.Title != "Veckomöte" || len(out.Protocol.MainPoints) == 0 {
		t.Errorf("protocol = %+v", out.Protocol)
	}
}

func TestHandleGenerate_EmptyMeeting(t *testing.T) {
	handler, database := testHandler(t)
	id := seedMeeting(t, database, "Tomt", "   ")

	rec := doRequest(t, handler, "POST", "/api/meetings/"+id+"/protocol", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePrune(t *testing.T) {
	handler, database := testHandler(t)
	base := int64(1700009940) - 1700009940%60
	for i, id := range []string{"e-1", "e-2"} {
		m := &meeting.Meeting{
			ID:        id,
			Name:      meeting.DefaultName,
			Folder:    meeting.DefaultFolder,
			CreatedAt: base + int64(i),
			UpdatedAt: base + int64(i),
		}
		if err := db.InsertMeeting(database, m); err != nil {
			t.Fatalf("InsertMeeting failed: %v", err)
		}
	}

	rec := doRequest(t, handler, "POST", "/api/meetings/prune", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Removed int `json:"removed"`
	}
	decodeBody(t, rec, &out)
	if out.Removed != 1 {
		t.Errorf("removed = %d, want 1", out.Removed)
	}
}
