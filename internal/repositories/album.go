package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

const albumColumns = `
	id, sequence, organization_id, title, release_date, upc, ean,
	spotify_album_id, created_at, updated_at, deleted_at
`

// AlbumRepository implements models.Repository[*models.Album].
//
// Handles album CRUD with soft delete support and Spotify-keyed lookups for
// import dedup.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Create inserts a new [models.Album] with generated ID and sequence
func (r *AlbumRepository) Create(a *models.Album) error {
	sequence, err := NextSequence(r.db, "albums")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	a.ID = shared.GenerateID()
	a.Sequence = sequence
	a.Touch(time.Now())

	if err := a.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO albums (` + albumColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		a.ID,
		a.Sequence,
		a.OrganizationID,
		a.Title,
		a.ReleaseDate,
		a.UPC,
		a.EAN,
		nullable(a.SpotifyAlbumID),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	return nil
}

// Get retrieves an album by ID, excluding soft-deleted albums
func (r *AlbumRepository) Get(id string) (*models.Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves an album by (spotify_album_id, organization_id).
// Returns [shared.ErrNotFound] when no matching row exists.
func (r *AlbumRepository) GetBySpotifyID(spotifyAlbumID, organizationID string) (*models.Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
		WHERE spotify_album_id = ? AND organization_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, spotifyAlbumID, organizationID))
}

// Update modifies an existing album in the database
func (r *AlbumRepository) Update(a *models.Album) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	a.UpdatedAt = now

	query := `
		UPDATE albums
		SET title = ?, release_date = ?, upc = ?, ean = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, a.Title, a.ReleaseDate, a.UPC, a.EAN, now, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}

	return requireAffected(result, "album", a.ID)
}

// Delete soft-deletes an album and detaches its tracks.
func (r *AlbumRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE tracks SET album_id = NULL WHERE album_id = ?", id); err != nil {
		return fmt.Errorf("failed to detach tracks: %w", err)
	}

	result, err := tx.Exec(
		"UPDATE albums SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	if err := requireAffected(result, "album", id); err != nil {
		return err
	}

	return tx.Commit()
}

// List retrieves albums matching the given criteria, excluding soft-deleted albums.
//
// Supported criteria: organization_id, search (title match).
func (r *AlbumRepository) List(criteria map[string]any) ([]*models.Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if org, ok := criteria["organization_id"].(string); ok && org != "" {
		query += " AND organization_id = ?"
		args = append(args, org)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND title LIKE ?"
		args = append(args, "%"+search+"%")
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

func (r *AlbumRepository) scanOne(row *sql.Row) (*models.Album, error) {
	a, err := scanAlbum(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: album", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return a, nil
}

func (r *AlbumRepository) scanRow(rows *sql.Rows) (*models.Album, error) {
	a, err := scanAlbum(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return a, nil
}

func scanAlbum(scan func(...any) error) (*models.Album, error) {
	var (
		a         models.Album
		spotifyID sql.NullString
		deletedAt sql.NullTime
	)

	err := scan(
		&a.ID, &a.Sequence, &a.OrganizationID, &a.Title, &a.ReleaseDate,
		&a.UPC, &a.EAN, &spotifyID, &a.CreatedAt, &a.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.SpotifyAlbumID = stringOrEmpty(spotifyID)
	if deletedAt.Valid {
		a.DeletedAt = &deletedAt.Time
	}

	return &a, nil
}
