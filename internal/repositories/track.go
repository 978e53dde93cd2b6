package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

const trackColumns = `
	id, sequence, organization_id, album_id, primary_artist_id, title,
	status, isrc, spotify_track_id, created_at, updated_at, deleted_at
`

// CascadeCounts reports the dependent rows removed by a track delete.
type CascadeCounts struct {
	SplitRows   int `json:"split_rows"`
	Links       int `json:"external_links"`
	SessionRefs int `json:"session_references"`
}

// TrackRepository implements models.Repository[*models.Track].
//
// Handles track CRUD with soft delete support, Spotify-keyed lookups for
// import dedup, split-row and external-link management, and cascading deletes
// that report removed dependent counts.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.Track] with generated ID and sequence.
// Split rows present on the model are inserted alongside it.
func (r *TrackRepository) Create(t *models.Track) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	t.ID = shared.GenerateID()
	t.Sequence = sequence
	if t.Status == "" {
		t.Status = models.StatusDraft
	}
	t.Touch(time.Now())

	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		t.ID,
		t.Sequence,
		t.OrganizationID,
		nullable(t.AlbumID),
		nullable(t.PrimaryArtistID),
		t.Title,
		t.Status,
		t.ISRC,
		nullable(t.SpotifyTrackID),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	if len(t.Collaborators) > 0 {
		if err := r.SetCollaborators(t.ID, t.Collaborators); err != nil {
			return err
		}
	}

	return nil
}

// Get retrieves a track by ID with split rows and links, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE id = ? AND deleted_at IS NULL
	`

	t, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadCollaborators(t); err != nil {
		return nil, err
	}
	if err := r.loadLinks(t); err != nil {
		return nil, err
	}

	return t, nil
}

// GetBySpotifyID retrieves a track by (spotify_track_id, organization_id).
// Returns [shared.ErrNotFound] when no matching row exists.
func (r *TrackRepository) GetBySpotifyID(spotifyTrackID, organizationID string) (*models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE spotify_track_id = ? AND organization_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, spotifyTrackID, organizationID))
}

// Update modifies an existing track's basic fields in the database
func (r *TrackRepository) Update(t *models.Track) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	t.UpdatedAt = now

	query := `
		UPDATE tracks
		SET album_id = ?, primary_artist_id = ?, title = ?, status = ?,
			isrc = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(t.AlbumID),
		nullable(t.PrimaryArtistID),
		t.Title,
		t.Status,
		t.ISRC,
		now,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return requireAffected(result, "track", t.ID)
}

// Delete soft-deletes a track without touching dependent rows.
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec(
		"UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	return requireAffected(result, "track", id)
}

// DeleteCascade soft-deletes a track and removes its split rows, external
// links, and session references, reporting how many of each were removed.
func (r *TrackRepository) DeleteCascade(id string) (*CascadeCounts, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	counts := &CascadeCounts{}

	cascades := []struct {
		target *int
		query  string
	}{
		{&counts.SplitRows, "DELETE FROM track_collaborators WHERE track_id = ?"},
		{&counts.Links, "DELETE FROM external_links WHERE track_id = ?"},
		{&counts.SessionRefs, "DELETE FROM session_tracks WHERE track_id = ?"},
	}

	for _, cascade := range cascades {
		result, err := tx.Exec(cascade.query, id)
		if err != nil {
			return nil, fmt.Errorf("failed to cascade track delete: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get affected rows: %w", err)
		}
		*cascade.target = int(removed)
	}

	result, err := tx.Exec(
		"UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete track: %w", err)
	}
	if err := requireAffected(result, "track", id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit track delete: %w", err)
	}

	return counts, nil
}

// List retrieves tracks matching the given criteria, excluding soft-deleted tracks.
//
// Supported criteria: organization_id, search (title match), status,
// album_id, limit, offset. Split rows and links are not loaded here.
func (r *TrackRepository) List(criteria map[string]any) ([]*models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE deleted_at IS NULL
	`

	query, args := applyTrackCriteria(query, criteria)
	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset, ok := criteria["offset"].(int); ok && offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of tracks matching the filter criteria (limit and
// offset are ignored), for pagination metadata.
func (r *TrackRepository) Count(criteria map[string]any) (int, error) {
	query := "SELECT COUNT(*) FROM tracks WHERE deleted_at IS NULL"
	query, args := applyTrackCriteria(query, criteria)

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// SetCollaborators replaces all split rows for a track.
func (r *TrackRepository) SetCollaborators(trackID string, rows []models.TrackCollaborator) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM track_collaborators WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("failed to clear split rows: %w", err)
	}

	for _, row := range rows {
		role := row.Role
		if role == "" {
			role = "writer"
		}
		_, err := tx.Exec(`
			INSERT INTO track_collaborators
				(track_id, collaborator_id, role, songwriting_split, publishing_split, master_split)
			VALUES (?, ?, ?, ?, ?, ?)`,
			trackID, row.CollaboratorID, role,
			row.SongwritingSplit, row.PublishingSplit, row.MasterSplit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split row: %w", err)
		}
	}

	return tx.Commit()
}

// LinkCollaborator inserts a single split row if the collaborator is not
// already linked to the track. Used by the import pipeline.
func (r *TrackRepository) LinkCollaborator(trackID, collaboratorID, role string) (bool, error) {
	result, err := r.db.Exec(`
		INSERT OR IGNORE INTO track_collaborators (track_id, collaborator_id, role)
		VALUES (?, ?, ?)`,
		trackID, collaboratorID, role,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link collaborator: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// SetLinks replaces all external links for a track.
func (r *TrackRepository) SetLinks(trackID string, links []models.ExternalLink) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM external_links WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}

	for _, link := range links {
		if err := link.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		_, err := tx.Exec(
			"INSERT INTO external_links (id, track_id, link_type, url) VALUES (?, ?, ?, ?)",
			shared.GenerateID(), trackID, link.Type, link.URL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	return tx.Commit()
}

// loadCollaborators populates t.Collaborators with split rows joined to names.
func (r *TrackRepository) loadCollaborators(t *models.Track) error {
	rows, err := r.db.Query(`
		SELECT tc.collaborator_id,
			CASE WHEN c.artist_name != '' THEN c.artist_name ELSE c.legal_name END,
			tc.role, tc.songwriting_split, tc.publishing_split, tc.master_split
		FROM track_collaborators tc
		JOIN collaborators c ON c.id = tc.collaborator_id
		WHERE tc.track_id = ?
		ORDER BY c.sequence ASC`,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query split rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row := models.TrackCollaborator{TrackID: t.ID}
		err := rows.Scan(
			&row.CollaboratorID, &row.CollaboratorName, &row.Role,
			&row.SongwritingSplit, &row.PublishingSplit, &row.MasterSplit,
		)
		if err != nil {
			return fmt.Errorf("failed to scan split row: %w", err)
		}
		t.Collaborators = append(t.Collaborators, row)
	}

	return rows.Err()
}

// loadLinks populates t.Links.
func (r *TrackRepository) loadLinks(t *models.Track) error {
	rows, err := r.db.Query(
		"SELECT id, link_type, url FROM external_links WHERE track_id = ?",
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		link := models.ExternalLink{TrackID: t.ID}
		if err := rows.Scan(&link.ID, &link.Type, &link.URL); err != nil {
			return fmt.Errorf("failed to scan link: %w", err)
		}
		t.Links = append(t.Links, link)
	}

	return rows.Err()
}

func (r *TrackRepository) scanOne(row *sql.Row) (*models.Track, error) {
	t, err := scanTrack(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: track", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return t, nil
}

func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.Track, error) {
	t, err := scanTrack(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return t, nil
}

func scanTrack(scan func(...any) error) (*models.Track, error) {
	var (
		t         models.Track
		albumID   sql.NullString
		artistID  sql.NullString
		spotifyID sql.NullString
		deletedAt sql.NullTime
	)

	err := scan(
		&t.ID, &t.Sequence, &t.OrganizationID, &albumID, &artistID,
		&t.Title, &t.Status, &t.ISRC, &spotifyID,
		&t.CreatedAt, &t.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.AlbumID = stringOrEmpty(albumID)
	t.PrimaryArtistID = stringOrEmpty(artistID)
	t.SpotifyTrackID = stringOrEmpty(spotifyID)
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}

	return &t, nil
}

// applyTrackCriteria appends the shared filter clauses used by List and Count.
func applyTrackCriteria(query string, criteria map[string]any) (string, []any) {
	args := []any{}

	if org, ok := criteria["organization_id"].(string); ok && org != "" {
		query += " AND organization_id = ?"
		args = append(args, org)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND title LIKE ?"
		args = append(args, "%"+search+"%")
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if albumID, ok := criteria["album_id"].(string); ok && albumID != "" {
		query += " AND album_id = ?"
		args = append(args, albumID)
	}

	return query, args
}
