package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

// InsertMeeting stores a new meeting record.
func InsertMeeting(db *sql.DB, m *meeting.Meeting) error {
	query := `
		INSERT INTO meetings (
			id, name, folder, transcript, interim_transcript,
			is_paused, is_muted, duration_seconds, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		m.ID, m.Name, m.Folder, m.Transcript, m.InterimTranscript,
		boolToInt(m.IsPaused), boolToInt(m.IsMuted), m.DurationSeconds,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return errors.NewPersistence(err)
	}

	return nil
}

// GetMeeting retrieves a meeting by its ULID.
func GetMeeting(db *sql.DB, id string) (*meeting.Meeting, error) {
	query := `
		SELECT id, name, folder, transcript, interim_transcript,
			is_paused, is_muted, duration_seconds, created_at, updated_at
		FROM meetings
		WHERE id = ?
	`

	row := db.QueryRow(query, id)
	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return m, nil
}

// Fields carries a partial update. Only non-nil fields are written.
type Fields struct {
	Name              *string
	Folder            *string
	Transcript        *string
	InterimTranscript *string
	IsPaused          *bool
	IsMuted           *bool
	DurationSeconds   *int
}

// UpdateMeetingFields applies a partial update to an existing meeting.
// Only provided fields change; updated_at is always set.
func UpdateMeetingFields(db *sql.DB, id string, f Fields) error {
	set := make([]string, 0, 8)
	args := make([]any, 0, 9)

	if f.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *f.Name)
	}
	if f.Folder != nil {
		set = append(set, "folder = ?")
		args = append(args, *f.Folder)
	}
	if f.Transcript != nil {
		set = append(set, "transcript = ?")
		args = append(args, *f.Transcript)
	}
	if f.InterimTranscript != nil {
		set = append(set, "interim_transcript = ?")
		args = append(args, *f.InterimTranscript)
	}
	if f.IsPaused != nil {
		set = append(set, "is_paused = ?")
		args = append(args, boolToInt(*f.IsPaused))
	}
	if f.IsMuted != nil {
		set = append(set, "is_muted = ?")
		args = append(args, boolToInt(*f.IsMuted))
	}
	if f.DurationSeconds != nil {
		set = append(set, "duration_seconds = ?")
		args = append(args, *f.DurationSeconds)
	}

	set = append(set, "updated_at = ?")
	args = append(args, time.Now().Unix())
	args = append(args, id)

	query := "UPDATE meetings SET " + strings.Join(set, ", ") + " WHERE id = ?"

	result, err := db.Exec(query, args...)
	if err != nil {
		return errors.NewPersistence(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	return nil
}

// DeleteMeeting removes a meeting record. Deleting a session is the only
// way its transcript is ever removed.
func DeleteMeeting(db *sql.DB, id string) error {
	result, err := db.Exec(`DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	return nil
}

// ListMeetings returns meeting summaries ordered by updated_at DESC.
// An empty folder lists every meeting.
func ListMeetings(db *sql.DB, folder string, limit, offset int) ([]meeting.Summary, int, error) {
	where := ""
	args := []any{}
	if folder != "" {
		where = " WHERE folder = ?"
		args = append(args, folder)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM meetings"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, name, folder, transcript, interim_transcript,
			is_paused, is_muted, duration_seconds, created_at, updated_at
		FROM meetings` + where + `
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []meeting.Summary
	for rows.Next() {
		m, err := scanMeetingRows(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, m.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// PruneEmptyDuplicates deletes redundant empty sessions. When several
// sessions with no transcript were created within the same minute, only the
// newest survives; a single empty session is left alone since it may be the
// one being recorded right now. Returns the number of deleted records.
func PruneEmptyDuplicates(db *sql.DB) (int, error) {
	query := `
		SELECT id, created_at FROM meetings
		WHERE TRIM(transcript) = '' AND TRIM(interim_transcript) = ''
		ORDER BY created_at DESC
	`

	rows, err := db.Query(query)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	byMinute := make(map[int64][]string)
	var order []int64
	for rows.Next() {
		var id string
		var createdAt int64
		if err := rows.Scan(&id, &createdAt); err != nil {
			rows.Close()
			return 0, errors.NewInternal(err)
		}
		minute := createdAt / 60
		if _, seen := byMinute[minute]; !seen {
			order = append(order, minute)
		}
		byMinute[minute] = append(byMinute[minute], id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, errors.NewInternal(err)
	}
	rows.Close()

	deleted := 0
	for _, minute := range order {
		ids := byMinute[minute]
		// Rows arrive newest-first; everything after the first is a duplicate.
		for _, id := range ids[1:] {
			if _, err := db.Exec(`DELETE FROM meetings WHERE id = ?`, id); err != nil {
				return deleted, errors.NewPersistence(err)
			}
			deleted++
		}
	}

	return deleted, nil
}

// EnsureFolder creates a folder if it does not already exist.
func EnsureFolder(db *sql.DB, name string) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO folders (name, created_at) VALUES (?, ?)`,
		name, time.Now().Unix(),
	)
	if err != nil {
		return errors.NewPersistence(err)
	}
	return nil
}

// ListFolders returns all folder names, default folder first, rest sorted.
func ListFolders(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		`SELECT name FROM folders ORDER BY (name = ?) DESC, name ASC`,
		meeting.DefaultFolder,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var folders []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewInternal(err)
		}
		folders = append(folders, name)
	}
	return folders, rows.Err()
}

// FolderExists reports whether a folder with the given name exists.
// Matching ignores case and surrounding whitespace.
func FolderExists(db *sql.DB, name string) (bool, error) {
	folders, err := ListFolders(db)
	if err != nil {
		return false, err
	}
	norm := meeting.Normalize(name)
	for _, f := range folders {
		if meeting.Normalize(f) == norm {
			return true, nil
		}
	}
	return false, nil
}

// ResolveFolder returns the stored name of a folder matched case-insensitively,
// or "" when no folder matches.
func ResolveFolder(db *sql.DB, name string) (string, error) {
	folders, err := ListFolders(db)
	if err != nil {
		return "", err
	}
	norm := meeting.Normalize(name)
	for _, f := range folders {
		if meeting.Normalize(f) == norm {
			return f, nil
		}
	}
	return "", nil
}

// DeleteFolder removes a folder and moves its meetings to the default folder.
// The default folder cannot be deleted.
func DeleteFolder(db *sql.DB, name string) error {
	if meeting.Normalize(name) == meeting.Normalize(meeting.DefaultFolder) {
		return errors.NewInvalidRequest("the default folder cannot be deleted")
	}

	stored, err := ResolveFolder(db, name)
	if err != nil {
		return err
	}
	if stored == "" {
		return errors.NewFolderNotFound(name)
	}

	if _, err := db.Exec(
		`UPDATE meetings SET folder = ?, updated_at = ? WHERE folder = ?`,
		meeting.DefaultFolder, time.Now().Unix(), stored,
	); err != nil {
		return errors.NewPersistence(err)
	}

	if _, err := db.Exec(`DELETE FROM folders WHERE name = ?`, stored); err != nil {
		return errors.NewPersistence(err)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row *sql.Row) (*meeting.Meeting, error) {
	return scanMeetingFrom(row)
}

func scanMeetingRows(rows *sql.Rows) (*meeting.Meeting, error) {
	return scanMeetingFrom(rows)
}

func scanMeetingFrom(s rowScanner) (*meeting.Meeting, error) {
	var (
		m        meeting.Meeting
		isPaused int
		isMuted  int
	)

	err := s.Scan(
		&m.ID, &m.Name, &m.Folder, &m.Transcript, &m.InterimTranscript,
		&isPaused, &isMuted, &m.DurationSeconds, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.IsPaused = isPaused != 0
	m.IsMuted = isMuted != 0

	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
