package web

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log"
	"net/http"
	"strconv"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/mail"
	"github.com/wby/protokoll/internal/ops"
	"github.com/wby/protokoll/internal/protocol"
)

// Handlers contains the HTTP route handlers for the JSON API.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	generator  *protocol.Generator
	mailer     mail.Mailer
	exportsDir string
}

// HandleList handles GET /api/meetings — list the meeting library.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.ListInput{
		Folder: r.URL.Query().Get("folder"),
		Limit:  parseIntParam(r, "limit", 0),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(h.db, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleFetch handles GET /api/meetings/{id}.
func (h *Handlers) HandleFetch(w http.ResponseWriter, r *http.Request) {
	input := ops.FetchInput{ID: r.PathValue("id")}
	if r.URL.Query().Get("include_transcript") == "false" {
		includeTranscript := false
		input.IncludeTranscript = &includeTranscript
	}

	result, err := ops.Fetch(h.db, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleDelete handles DELETE /api/meetings/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(h.db, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGenerate handles POST /api/meetings/{id}/protocol — generate the
// protocol document and optionally email it.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recipients []string `json:"recipients"`
		Message    string   `json:"message"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errors.NewInvalidRequest("invalid JSON body"))
			return
		}
	}

	deps := ops.GenerateDeps{
		DB:         h.db,
		Generator:  h.generator,
		Mailer:     h.mailer,
		ExportsDir: h.exportsDir,
	}
	result, err := ops.GenerateProtocol(r.Context(), deps, ops.GenerateInput{
		ID:         r.PathValue("id"),
		Recipients: body.Recipients,
		Message:    body.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandlePrune handles POST /api/meetings/prune.
func (h *Handlers) HandlePrune(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Prune(h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleFolderList handles GET /api/folders.
func (h *Handlers) HandleFolderList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.FolderList(h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleFolderAdd handles POST /api/folders.
func (h *Handlers) HandleFolderAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	result, err := ops.FolderAdd(h.db, ops.FolderAddInput{Name: body.Name})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// HandleFolderRemove handles DELETE /api/folders/{name}.
func (h *Handlers) HandleFolderRemove(w http.ResponseWriter, r *http.Request) {
	result, err := ops.FolderRemove(h.db, ops.FolderRemoveInput{Name: r.PathValue("name")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var pe *errors.ProtokollError
	if stderrors.As(err, &pe) {
		writeJSON(w, pe.Status, map[string]any{
			"error":   pe.Code,
			"message": pe.Message,
			"details": pe.Details,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":   errors.ErrInternal,
		"message": err.Error(),
	})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
