package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

const collaboratorColumns = `
	id, sequence, organization_id, legal_name, artist_name, email, phone,
	pro_name, pro_ipi, clerk_user_id, spotify_artist_id,
	created_at, updated_at, deleted_at
`

// CollaboratorRepository implements models.Repository[*models.Collaborator].
//
// Handles collaborator CRUD with soft delete support, Spotify-keyed lookups
// for import dedup, replacement-aware deletes, and relation management.
type CollaboratorRepository struct {
	db *sql.DB
}

// NewCollaboratorRepository creates a new CollaboratorRepository with the given database connection
func NewCollaboratorRepository(db *sql.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

// Create inserts a new [models.Collaborator] with generated ID and sequence
func (r *CollaboratorRepository) Create(c *models.Collaborator) error {
	sequence, err := NextSequence(r.db, "collaborators")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	c.ID = shared.GenerateID()
	c.Sequence = sequence
	c.Touch(time.Now())

	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO collaborators (` + collaboratorColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		c.ID,
		c.Sequence,
		c.OrganizationID,
		c.LegalName,
		c.ArtistName,
		c.Email,
		c.Phone,
		c.PROName,
		c.PROIPINumber,
		nullable(c.ClerkUserID),
		nullable(c.SpotifyArtistID),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collaborator: %w", err)
	}

	return nil
}

// Get retrieves a collaborator by ID with relations, excluding soft-deleted rows
func (r *CollaboratorRepository) Get(id string) (*models.Collaborator, error) {
	query := `
		SELECT ` + collaboratorColumns + `
		FROM collaborators
		WHERE id = ? AND deleted_at IS NULL
	`

	c, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadRelations(c); err != nil {
		return nil, err
	}

	return c, nil
}

// GetBySpotifyID retrieves a collaborator by (spotify_artist_id, organization_id).
// Returns [shared.ErrNotFound] when no matching row exists.
func (r *CollaboratorRepository) GetBySpotifyID(spotifyArtistID, organizationID string) (*models.Collaborator, error) {
	query := `
		SELECT ` + collaboratorColumns + `
		FROM collaborators
		WHERE spotify_artist_id = ? AND organization_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, spotifyArtistID, organizationID))
}

// Update modifies an existing collaborator in the database
func (r *CollaboratorRepository) Update(c *models.Collaborator) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	c.UpdatedAt = now

	query := `
		UPDATE collaborators
		SET legal_name = ?, artist_name = ?, email = ?, phone = ?,
			pro_name = ?, pro_ipi = ?, clerk_user_id = ?, spotify_artist_id = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		c.LegalName,
		c.ArtistName,
		c.Email,
		c.Phone,
		c.PROName,
		c.PROIPINumber,
		nullable(c.ClerkUserID),
		nullable(c.SpotifyArtistID),
		now,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collaborator: %w", err)
	}

	return requireAffected(result, "collaborator", c.ID)
}

// Delete soft-deletes a collaborator by ID
func (r *CollaboratorRepository) Delete(id string) error {
	result, err := r.db.Exec(
		"UPDATE collaborators SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete collaborator: %w", err)
	}

	return requireAffected(result, "collaborator", id)
}

// DeleteWithReplacement re-points split rows, session links, primary-artist
// references, and relations from the deleted collaborator to replacementID,
// then soft-deletes the original. The whole rewrite runs in one transaction.
func (r *CollaboratorRepository) DeleteWithReplacement(id, replacementID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := repointCollaborator(tx, id, replacementID); err != nil {
		return err
	}

	result, err := tx.Exec(
		"UPDATE collaborators SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete collaborator: %w", err)
	}
	if err := requireAffected(result, "collaborator", id); err != nil {
		return err
	}

	return tx.Commit()
}

// List retrieves collaborators matching the given criteria, excluding soft-deleted rows.
//
// Supported criteria: organization_id, search (matches legal or artist name).
func (r *CollaboratorRepository) List(criteria map[string]any) ([]*models.Collaborator, error) {
	query := `
		SELECT ` + collaboratorColumns + `
		FROM collaborators
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if org, ok := criteria["organization_id"].(string); ok && org != "" {
		query += " AND organization_id = ?"
		args = append(args, org)
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND (legal_name LIKE ? OR artist_name LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	var collaborators []*models.Collaborator
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		collaborators = append(collaborators, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return collaborators, nil
}

// SetRelations replaces all outgoing relations for a collaborator.
func (r *CollaboratorRepository) SetRelations(id string, relations map[string][]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM collaborator_relations WHERE collaborator_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear relations: %w", err)
	}

	for relation, related := range relations {
		for _, relatedID := range related {
			_, err := tx.Exec(
				"INSERT OR IGNORE INTO collaborator_relations (collaborator_id, related_id, relation) VALUES (?, ?, ?)",
				id, relatedID, relation,
			)
			if err != nil {
				return fmt.Errorf("failed to insert relation: %w", err)
			}
		}
	}

	return tx.Commit()
}

// loadRelations populates c.Relations from the join table.
func (r *CollaboratorRepository) loadRelations(c *models.Collaborator) error {
	rows, err := r.db.Query(
		"SELECT related_id, relation FROM collaborator_relations WHERE collaborator_id = ?",
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var relatedID, relation string
		if err := rows.Scan(&relatedID, &relation); err != nil {
			return fmt.Errorf("failed to scan relation: %w", err)
		}
		if c.Relations == nil {
			c.Relations = map[string][]string{}
		}
		c.Relations[relation] = append(c.Relations[relation], relatedID)
	}

	return rows.Err()
}

func (r *CollaboratorRepository) scanOne(row *sql.Row) (*models.Collaborator, error) {
	c, err := scanCollaborator(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: collaborator", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan collaborator: %w", err)
	}
	return c, nil
}

func (r *CollaboratorRepository) scanRow(rows *sql.Rows) (*models.Collaborator, error) {
	c, err := scanCollaborator(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collaborator: %w", err)
	}
	return c, nil
}

// scanCollaborator scans one collaborator row via the provided scan function.
func scanCollaborator(scan func(...any) error) (*models.Collaborator, error) {
	var (
		c         models.Collaborator
		clerkID   sql.NullString
		spotifyID sql.NullString
		deletedAt sql.NullTime
	)

	err := scan(
		&c.ID, &c.Sequence, &c.OrganizationID, &c.LegalName, &c.ArtistName,
		&c.Email, &c.Phone, &c.PROName, &c.PROIPINumber,
		&clerkID, &spotifyID, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ClerkUserID = stringOrEmpty(clerkID)
	c.SpotifyArtistID = stringOrEmpty(spotifyID)
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}

	return &c, nil
}

// requireAffected converts a zero-row UPDATE into a not-found error.
func requireAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, id)
	}
	return nil
}

// repointCollaborator rewrites every reference from sourceID to targetID
// inside an open transaction. Join rows that would collide with an existing
// target row are dropped instead of duplicated.
func repointCollaborator(tx *sql.Tx, sourceID, targetID string) error {
	steps := []struct {
		desc  string
		query string
	}{
		{"split rows", "UPDATE OR IGNORE track_collaborators SET collaborator_id = ? WHERE collaborator_id = ?"},
		{"leftover split rows", "DELETE FROM track_collaborators WHERE collaborator_id = ?2"},
		{"primary artist refs", "UPDATE tracks SET primary_artist_id = ?1 WHERE primary_artist_id = ?2"},
		{"session links", "UPDATE OR IGNORE session_collaborators SET collaborator_id = ? WHERE collaborator_id = ?"},
		{"leftover session links", "DELETE FROM session_collaborators WHERE collaborator_id = ?2"},
		{"outgoing relations", "UPDATE OR IGNORE collaborator_relations SET collaborator_id = ? WHERE collaborator_id = ?"},
		{"incoming relations", "UPDATE OR IGNORE collaborator_relations SET related_id = ? WHERE related_id = ?"},
		{"leftover relations", "DELETE FROM collaborator_relations WHERE collaborator_id = ?2 OR related_id = ?2"},
	}

	for _, step := range steps {
		if _, err := tx.Exec(step.query, targetID, sourceID); err != nil {
			return fmt.Errorf("failed to repoint %s: %w", step.desc, err)
		}
	}

	// Self-relations created by the rewrite are meaningless.
	if _, err := tx.Exec(
		"DELETE FROM collaborator_relations WHERE collaborator_id = ?1 AND related_id = ?1", targetID,
	); err != nil {
		return fmt.Errorf("failed to prune self relations: %w", err)
	}

	return nil
}
