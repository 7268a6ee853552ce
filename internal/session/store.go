package session

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/meeting"
)

// Store is the persistence collaborator the recorder writes through.
// Records are keyed by session id; Update has partial semantics.
type Store interface {
	// Create persists a new record and assigns its id.
	Create(m *meeting.Meeting) error
	Get(id string) (*meeting.Meeting, error)
	Update(id string, f db.Fields) error
	Delete(id string) error
}

// SQLStore backs Store with the sqlite meetings table.
type SQLStore struct {
	DB *sql.DB
}

// NewSQLStore wraps a database handle.
func NewSQLStore(database *sql.DB) *SQLStore {
	return &SQLStore{DB: database}
}

// Create assigns a ULID and timestamps, then inserts the record.
func (s *SQLStore) Create(m *meeting.Meeting) error {
	id, err := generateULID()
	if err != nil {
		return err
	}
	m.ID = id

	now := time.Now().Unix()
	m.CreatedAt = now
	m.UpdatedAt = now

	return db.InsertMeeting(s.DB, m)
}

// Get retrieves a record by id.
func (s *SQLStore) Get(id string) (*meeting.Meeting, error) {
	return db.GetMeeting(s.DB, id)
}

// Update applies a partial update.
func (s *SQLStore) Update(id string, f db.Fields) error {
	return db.UpdateMeetingFields(s.DB, id, f)
}

// Delete removes a record.
func (s *SQLStore) Delete(id string) error {
	return db.DeleteMeeting(s.DB, id)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
