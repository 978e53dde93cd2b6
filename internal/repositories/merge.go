package repositories

import (
	"fmt"
	"strings"
	"time"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// mergeFields lists the basic collaborator fields compared during a merge
// preview, in display order, with their column names.
var mergeFields = []struct {
	name   string
	column string
	get    func(*models.Collaborator) string
	set    func(*models.Collaborator, string)
}{
	{"legal_name", "legal_name",
		func(c *models.Collaborator) string { return c.LegalName },
		func(c *models.Collaborator, v string) { c.LegalName = v }},
	{"artist_name", "artist_name",
		func(c *models.Collaborator) string { return c.ArtistName },
		func(c *models.Collaborator, v string) { c.ArtistName = v }},
	{"email", "email",
		func(c *models.Collaborator) string { return c.Email },
		func(c *models.Collaborator, v string) { c.Email = v }},
	{"phone", "phone",
		func(c *models.Collaborator) string { return c.Phone },
		func(c *models.Collaborator, v string) { c.Phone = v }},
	{"pro_name", "pro_name",
		func(c *models.Collaborator) string { return c.PROName },
		func(c *models.Collaborator, v string) { c.PROName = v }},
	{"pro_ipi_number", "pro_ipi",
		func(c *models.Collaborator) string { return c.PROIPINumber },
		func(c *models.Collaborator, v string) { c.PROIPINumber = v }},
	{"clerk_user_id", "clerk_user_id",
		func(c *models.Collaborator) string { return c.ClerkUserID },
		func(c *models.Collaborator, v string) { c.ClerkUserID = v }},
	{"spotify_artist_id", "spotify_artist_id",
		func(c *models.Collaborator) string { return c.SpotifyArtistID },
		func(c *models.Collaborator, v string) { c.SpotifyArtistID = v }},
}

// FieldValue is one record's value for a previewed field.
type FieldValue struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Value      string `json:"value"`
}

// PreviewField describes one basic field whose values differ across the
// merge target and sources. HasConflict is true when more than one distinct
// non-empty value exists; such fields must be resolved before merging.
type PreviewField struct {
	FieldName   string       `json:"field_name"`
	HasConflict bool         `json:"has_conflict"`
	Values      []FieldValue `json:"values"`
}

// MergePreview is the result of a preview-only merge call.
type MergePreview struct {
	Fields []PreviewField       `json:"fields"`
	Merged *models.Collaborator `json:"merged"`
}

// MergeResult is the outcome of an applied merge.
type MergeResult struct {
	Success          bool                 `json:"success"`
	AffectedSongs    int                  `json:"affected_songs"`
	AffectedSessions int                  `json:"affected_sessions"`
	Collaborator     *models.Collaborator `json:"collaborator,omitempty"`
}

// MergePreview computes field-level conflicts across the target and source
// collaborators and a speculative merged record with unioned relations.
// No rows are modified.
func (r *CollaboratorRepository) MergePreview(targetID string, sourceIDs []string) (*MergePreview, error) {
	target, sources, err := r.loadMergeSet(targetID, sourceIDs)
	if err != nil {
		return nil, err
	}

	preview := &MergePreview{}
	records := append([]*models.Collaborator{target}, sources...)

	for _, field := range mergeFields {
		var values []FieldValue
		distinct := map[string]bool{}

		for _, record := range records {
			v := field.get(record)
			if v == "" {
				continue
			}
			distinct[v] = true
			values = append(values, FieldValue{
				SourceID:   record.ID,
				SourceName: record.DisplayName(),
				Value:      v,
			})
		}

		// A field appears in the preview when the records disagree, or when
		// the target is empty and a source would fill it in.
		switch {
		case len(distinct) > 1:
			preview.Fields = append(preview.Fields, PreviewField{
				FieldName:   field.name,
				HasConflict: true,
				Values:      values,
			})
		case len(distinct) == 1 && field.get(target) == "":
			preview.Fields = append(preview.Fields, PreviewField{
				FieldName: field.name,
				Values:    values,
			})
		}
	}

	preview.Merged = speculativeMerge(target, sources)
	return preview, nil
}

// Merge combines the source collaborators into the target.
//
// Every conflicted field from the preview must have an entry in resolved;
// otherwise [shared.ErrUnresolvedConflict] is returned and nothing changes.
// Within one transaction the sources' split rows, session links, primary
// artist references, and relations are re-pointed to the target, the sources
// are soft-deleted, and resolved field values are applied to the target.
func (r *CollaboratorRepository) Merge(targetID string, sourceIDs []string, resolved map[string]string) (*MergeResult, error) {
	preview, err := r.MergePreview(targetID, sourceIDs)
	if err != nil {
		return nil, err
	}

	for _, field := range preview.Fields {
		if field.HasConflict {
			if _, ok := resolved[field.FieldName]; !ok {
				return nil, fmt.Errorf("%w: %s", shared.ErrUnresolvedConflict, field.FieldName)
			}
		}
	}

	affectedSongs, affectedSessions, err := r.countAffected(sourceIDs)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, sourceID := range sourceIDs {
		if err := repointCollaborator(tx, sourceID, targetID); err != nil {
			return nil, err
		}

		result, err := tx.Exec(
			"UPDATE collaborators SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
			now, sourceID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to delete merge source: %w", err)
		}
		if err := requireAffected(result, "collaborator", sourceID); err != nil {
			return nil, err
		}
	}

	// Sources are gone, so applying a source's external id to the target
	// cannot collide with the partial unique index.
	merged := preview.Merged
	for _, field := range mergeFields {
		if v, ok := resolved[field.name]; ok {
			field.set(merged, v)
		}
	}

	_, err = tx.Exec(`
		UPDATE collaborators
		SET legal_name = ?, artist_name = ?, email = ?, phone = ?,
			pro_name = ?, pro_ipi = ?, clerk_user_id = ?, spotify_artist_id = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		merged.LegalName, merged.ArtistName, merged.Email, merged.Phone,
		merged.PROName, merged.PROIPINumber,
		nullable(merged.ClerkUserID), nullable(merged.SpotifyArtistID),
		now, targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to apply merged fields: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	collaborator, err := r.Get(targetID)
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		Success:          true,
		AffectedSongs:    affectedSongs,
		AffectedSessions: affectedSessions,
		Collaborator:     collaborator,
	}, nil
}

// loadMergeSet fetches the target and all sources, validating the id set.
func (r *CollaboratorRepository) loadMergeSet(targetID string, sourceIDs []string) (*models.Collaborator, []*models.Collaborator, error) {
	if len(sourceIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: merge requires at least one source", shared.ErrInvalidInput)
	}

	target, err := r.Get(targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("merge target: %w", err)
	}

	var sources []*models.Collaborator
	for _, sourceID := range sourceIDs {
		if sourceID == targetID {
			return nil, nil, fmt.Errorf("%w: target cannot be a merge source", shared.ErrInvalidInput)
		}

		source, err := r.Get(sourceID)
		if err != nil {
			return nil, nil, fmt.Errorf("merge source %s: %w", sourceID, err)
		}
		if source.OrganizationID != target.OrganizationID {
			return nil, nil, fmt.Errorf("%w: merge spans organizations", shared.ErrInvalidInput)
		}
		sources = append(sources, source)
	}

	return target, sources, nil
}

// speculativeMerge returns a copy of target with empty fields filled from the
// first source carrying a value and relations unioned across all records.
func speculativeMerge(target *models.Collaborator, sources []*models.Collaborator) *models.Collaborator {
	merged := *target
	merged.Relations = map[string][]string{}

	for _, field := range mergeFields {
		if field.get(&merged) != "" {
			continue
		}
		for _, source := range sources {
			if v := field.get(source); v != "" {
				field.set(&merged, v)
				break
			}
		}
	}

	seen := map[string]bool{}
	for _, record := range append([]*models.Collaborator{target}, sources...) {
		for relation, related := range record.Relations {
			for _, relatedID := range related {
				key := relation + ":" + relatedID
				if seen[key] || relatedID == target.ID {
					continue
				}
				seen[key] = true
				merged.Relations[relation] = append(merged.Relations[relation], relatedID)
			}
		}
	}

	return &merged
}

// countAffected reports how many distinct songs and sessions reference the
// source collaborators, measured before any rewiring.
func (r *CollaboratorRepository) countAffected(sourceIDs []string) (songs, sessions int, err error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sourceIDs)), ",")
	args := make([]any, 0, len(sourceIDs)*2)
	for _, id := range sourceIDs {
		args = append(args, id)
	}

	songQuery := fmt.Sprintf(`
		SELECT COUNT(DISTINCT track_id) FROM (
			SELECT track_id FROM track_collaborators WHERE collaborator_id IN (%s)
			UNION
			SELECT id AS track_id FROM tracks WHERE primary_artist_id IN (%s)
		)`, placeholders, placeholders)

	if err = r.db.QueryRow(songQuery, append(args, args...)...).Scan(&songs); err != nil {
		return 0, 0, fmt.Errorf("failed to count affected songs: %w", err)
	}

	sessionQuery := fmt.Sprintf(
		"SELECT COUNT(DISTINCT session_id) FROM session_collaborators WHERE collaborator_id IN (%s)",
		placeholders,
	)

	if err = r.db.QueryRow(sessionQuery, args...).Scan(&sessions); err != nil {
		return 0, 0, fmt.Errorf("failed to count affected sessions: %w", err)
	}

	return songs, sessions, nil
}
