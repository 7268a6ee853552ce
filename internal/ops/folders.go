package ops

import (
	"database/sql"
	"strings"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

// FolderAddInput contains parameters for the FolderAdd operation.
type FolderAddInput struct {
	Name string
}

// FolderAddOutput contains the result of the FolderAdd operation.
type FolderAddOutput struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// FolderAdd creates a folder. Adding an existing folder is not an error.
func FolderAdd(database *sql.DB, input FolderAddInput) (*FolderAddOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("folder name must not be empty")
	}

	exists, err := db.FolderExists(database, name)
	if err != nil {
		return nil, err
	}
	if exists {
		resolved, err := db.ResolveFolder(database, name)
		if err != nil {
			return nil, err
		}
		return &FolderAddOutput{Name: resolved, Created: false}, nil
	}

	if err := db.EnsureFolder(database, name); err != nil {
		return nil, err
	}
	return &FolderAddOutput{Name: name, Created: true}, nil
}

// FolderListOutput contains the result of the FolderList operation.
type FolderListOutput struct {
	Folders []string `json:"folders"`
}

// FolderList returns all folders, the default folder first.
func FolderList(database *sql.DB) (*FolderListOutput, error) {
	folders, err := db.ListFolders(database)
	if err != nil {
		return nil, err
	}
	if folders == nil {
		folders = []string{}
	}
	return &FolderListOutput{Folders: folders}, nil
}

// FolderRemoveInput contains parameters for the FolderRemove operation.
type FolderRemoveInput struct {
	Name string
}

// FolderRemoveOutput contains the result of the FolderRemove operation.
type FolderRemoveOutput struct {
	Removed      bool   `json:"removed"`
	Name         string `json:"name"`
	ReassignedTo string `json:"reassigned_to"`
}

// FolderRemove deletes a folder and refiles its meetings into the default
// folder. The default folder itself cannot be removed.
func FolderRemove(database *sql.DB, input FolderRemoveInput) (*FolderRemoveOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("folder name must not be empty")
	}

	resolved, err := db.ResolveFolder(database, name)
	if err != nil {
		return nil, err
	}

	if err := db.DeleteFolder(database, resolved); err != nil {
		return nil, err
	}

	return &FolderRemoveOutput{
		Removed:      true,
		Name:         resolved,
		ReassignedTo: meeting.DefaultFolder,
	}, nil
}
