package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

const sessionColumns = `
	id, sequence, organization_id, title, location, start_time, end_time,
	created_at, updated_at, deleted_at
`

// SessionRepository implements models.Repository[*models.Session].
//
// Handles session CRUD with soft delete support, linked track/collaborator
// management, and upcoming/past scoping by start time.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new [models.Session] with generated ID and sequence.
// Linked track and collaborator ids on the model are inserted alongside it.
func (r *SessionRepository) Create(s *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	s.ID = shared.GenerateID()
	s.Sequence = sequence
	s.Touch(time.Now())

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = tx.Exec(query,
		s.ID,
		s.Sequence,
		s.OrganizationID,
		s.Title,
		s.Location,
		s.StartTime,
		s.EndTime,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if err := insertSessionLinks(tx, s); err != nil {
		return err
	}

	return tx.Commit()
}

// Get retrieves a session by ID with linked ids, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = ? AND deleted_at IS NULL
	`

	s, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadLinks(s); err != nil {
		return nil, err
	}

	return s, nil
}

// Update modifies an existing session and replaces its linked ids.
func (r *SessionRepository) Update(s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	s.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE sessions
		SET title = ?, location = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query, s.Title, s.Location, s.StartTime, s.EndTime, now, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if err := requireAffected(result, "session", s.ID); err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM session_tracks WHERE session_id = ?", s.ID); err != nil {
		return fmt.Errorf("failed to clear session tracks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM session_collaborators WHERE session_id = ?", s.ID); err != nil {
		return fmt.Errorf("failed to clear session collaborators: %w", err)
	}

	if err := insertSessionLinks(tx, s); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete soft-deletes a session and removes its links.
func (r *SessionRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM session_tracks WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear session tracks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM session_collaborators WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear session collaborators: %w", err)
	}

	result, err := tx.Exec(
		"UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := requireAffected(result, "session", id); err != nil {
		return err
	}

	return tx.Commit()
}

// List retrieves sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: organization_id, scope ("upcoming" or "past" relative to
// the "now" criterion, defaulting to wall clock), from/to (time.Time bounds
// on start_time). Linked ids are loaded for every returned session.
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if org, ok := criteria["organization_id"].(string); ok && org != "" {
		query += " AND organization_id = ?"
		args = append(args, org)
	}

	now, ok := criteria["now"].(time.Time)
	if !ok {
		now = time.Now()
	}

	switch criteria["scope"] {
	case "upcoming":
		query += " AND start_time >= ?"
		args = append(args, now)
	case "past":
		query += " AND start_time < ?"
		args = append(args, now)
	}

	if from, ok := criteria["from"].(time.Time); ok {
		query += " AND start_time >= ?"
		args = append(args, from)
	}
	if to, ok := criteria["to"].(time.Time); ok {
		query += " AND start_time <= ?"
		args = append(args, to)
	}

	query += " ORDER BY start_time ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, s := range sessions {
		if err := r.loadLinks(s); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// loadLinks populates s.TrackIDs and s.CollaboratorIDs.
func (r *SessionRepository) loadLinks(s *models.Session) error {
	rows, err := r.db.Query("SELECT track_id FROM session_tracks WHERE session_id = ?", s.ID)
	if err != nil {
		return fmt.Errorf("failed to query session tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID string
		if err := rows.Scan(&trackID); err != nil {
			return fmt.Errorf("failed to scan session track: %w", err)
		}
		s.TrackIDs = append(s.TrackIDs, trackID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	collabRows, err := r.db.Query("SELECT collaborator_id FROM session_collaborators WHERE session_id = ?", s.ID)
	if err != nil {
		return fmt.Errorf("failed to query session collaborators: %w", err)
	}
	defer collabRows.Close()

	for collabRows.Next() {
		var collaboratorID string
		if err := collabRows.Scan(&collaboratorID); err != nil {
			return fmt.Errorf("failed to scan session collaborator: %w", err)
		}
		s.CollaboratorIDs = append(s.CollaboratorIDs, collaboratorID)
	}

	return collabRows.Err()
}

func insertSessionLinks(tx *sql.Tx, s *models.Session) error {
	for _, trackID := range s.TrackIDs {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO session_tracks (session_id, track_id) VALUES (?, ?)",
			s.ID, trackID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session track: %w", err)
		}
	}

	for _, collaboratorID := range s.CollaboratorIDs {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO session_collaborators (session_id, collaborator_id) VALUES (?, ?)",
			s.ID, collaboratorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session collaborator: %w", err)
		}
	}

	return nil
}

func (r *SessionRepository) scanOne(row *sql.Row) (*models.Session, error) {
	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) scanRow(rows *sql.Rows) (*models.Session, error) {
	s, err := scanSession(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

func scanSession(scan func(...any) error) (*models.Session, error) {
	var (
		s         models.Session
		deletedAt sql.NullTime
	)

	err := scan(
		&s.ID, &s.Sequence, &s.OrganizationID, &s.Title, &s.Location,
		&s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		s.DeletedAt = &deletedAt.Time
	}

	return &s, nil
}
