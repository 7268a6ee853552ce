package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/mail"
	"github.com/wby/protokoll/internal/ops"
	"github.com/wby/protokoll/internal/protocol"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	generator  *protocol.Generator
	mailer     mail.Mailer
	exportsDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, cfg *config.Config, baseDir string) *Handlers {
	return &Handlers{
		db:         database,
		cfg:        cfg,
		generator:  protocol.NewGenerator(cfg),
		mailer:     mail.NewHTTPMailer(cfg),
		exportsDir: db.ExportsDir(baseDir),
	}
}

// Request types for each tool

// ListRequest represents the arguments for meeting_list.
type ListRequest struct {
	Folder string `json:"folder,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for meeting_fetch.
type FetchRequest struct {
	ID                string `json:"id"`
	IncludeTranscript *bool  `json:"include_transcript,omitempty"`
}

// DeleteRequest represents the arguments for meeting_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// FolderAddRequest represents the arguments for folder_add.
type FolderAddRequest struct {
	Name string `json:"name"`
}

// FolderRemoveRequest represents the arguments for folder_remove.
type FolderRemoveRequest struct {
	Name string `json:"name"`
}

// GenerateRequest represents the arguments for protocol_generate.
type GenerateRequest struct {
	ID         string   `json:"id"`
	Recipients []string `json:"recipients,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Tool definitions

var listToolDef = mcp.NewTool("meeting_list",
	mcp.WithDescription("List recorded meetings, newest first. Optionally filter by folder."),
	mcp.WithString("folder", mcp.Description("Folder name to filter by; omit for all folders")),
	mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
)

var fetchToolDef = mcp.NewTool("meeting_fetch",
	mcp.WithDescription("Fetch one meeting by id, including its transcript."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting id")),
	mcp.WithBoolean("include_transcript", mcp.Description("Include transcript text, default true")),
)

var deleteToolDef = mcp.NewTool("meeting_delete",
	mcp.WithDescription("Delete a meeting permanently."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting id")),
)

var pruneToolDef = mcp.NewTool("meeting_prune",
	mcp.WithDescription("Remove duplicate empty meetings created within the same minute."),
)

var folderListToolDef = mcp.NewTool("folder_list",
	mcp.WithDescription("List folders, the default folder first."),
)

var folderAddToolDef = mcp.NewTool("folder_add",
	mcp.WithDescription("Create a folder. Adding an existing folder is a no-op."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
)

var folderRemoveToolDef = mcp.NewTool("folder_remove",
	mcp.WithDescription("Delete a folder and refile its meetings into the default folder."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
)

var generateToolDef = mcp.NewTool("protocol_generate",
	mcp.WithDescription("Generate a protocol document from a meeting transcript and export it. Optionally email the document."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting id")),
	mcp.WithArray("recipients", mcp.Description("Email addresses to deliver the document to"),
		mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("message", mcp.Description("Email body accompanying the document")),
)

// HandleList handles the meeting_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, ops.ListInput{
		Folder: input.Folder,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the meeting_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.db, ops.FetchInput{
		ID:                input.ID,
		IncludeTranscript: input.IncludeTranscript,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the meeting_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePrune handles the meeting_prune tool call.
func (h *Handlers) HandlePrune(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Prune(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolderList handles the folder_list tool call.
func (h *Handlers) HandleFolderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.FolderList(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolderAdd handles the folder_add tool call.
func (h *Handlers) HandleFolderAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FolderAdd(h.db, ops.FolderAddInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolderRemove handles the folder_remove tool call.
func (h *Handlers) HandleFolderRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRemoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FolderRemove(h.db, ops.FolderRemoveInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGenerate handles the protocol_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	deps := ops.GenerateDeps{
		DB:         h.db,
		Generator:  h.generator,
		Mailer:     h.mailer,
		ExportsDir: h.exportsDir,
	}
	result, err := ops.GenerateProtocol(ctx, deps, ops.GenerateInput{
		ID:         input.ID,
		Recipients: input.Recipients,
		Message:    input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pErr, ok := err.(*errors.ProtokollError); ok {
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": pErr.Message,
			"status":  pErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if pErr.Code != errors.ErrInternal && pErr.Details != nil {
			errorObj["details"] = pErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}
