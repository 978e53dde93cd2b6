package repositories

import (
	"errors"
	"testing"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

func previewField(preview *MergePreview, name string) *PreviewField {
	for i := range preview.Fields {
		if preview.Fields[i].FieldName == name {
			return &preview.Fields[i]
		}
	}
	return nil
}

func TestMergePreview(t *testing.T) {
	t.Run("Conflicting Values Flagged", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{
			ArtistName: "Iris",
			Email:      "iris@label.com",
		})
		source := createCollaborator(t, repo, models.Collaborator{
			ArtistName: "Iris B.",
			Email:      "iris@personal.com",
		})

		preview, err := repo.MergePreview(target.ID, []string{source.ID})
		if err != nil {
			t.Fatalf("failed to preview: %v", err)
		}

		email := previewField(preview, "email")
		if email == nil {
			t.Fatal("expected email in preview")
		}
		if !email.HasConflict {
			t.Error("expected email conflict")
		}
		if len(email.Values) != 2 {
			t.Errorf("expected both values listed, got %d", len(email.Values))
		}

		name := previewField(preview, "artist_name")
		if name == nil || !name.HasConflict {
			t.Error("expected artist_name conflict")
		}
	})

	t.Run("Source Filling Empty Target Is Not A Conflict", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "Same"})
		source := createCollaborator(t, repo, models.Collaborator{
			ArtistName: "Same",
			Email:      "only@source.com",
		})

		preview, err := repo.MergePreview(target.ID, []string{source.ID})
		if err != nil {
			t.Fatalf("failed to preview: %v", err)
		}

		email := previewField(preview, "email")
		if email == nil {
			t.Fatal("expected email in preview")
		}
		if email.HasConflict {
			t.Error("expected no conflict when target is empty")
		}

		if name := previewField(preview, "artist_name"); name != nil {
			t.Errorf("expected agreeing field omitted from preview, got %+v", name)
		}

		if preview.Merged.Email != "only@source.com" {
			t.Errorf("expected speculative merge to fill email, got %q", preview.Merged.Email)
		}
	})

	t.Run("Rejects Cross Organization Merge", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "Here"})
		source := createCollaborator(t, repo, models.Collaborator{ArtistName: "There", OrganizationID: "other_org"})

		if _, err := repo.MergePreview(target.ID, []string{source.ID}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Rejects Target As Source", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "Selfie"})

		if _, err := repo.MergePreview(target.ID, []string{target.ID}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestMerge(t *testing.T) {
	t.Run("Unresolved Conflict Blocks Merge", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "A", Email: "a@x.com"})
		source := createCollaborator(t, repo, models.Collaborator{ArtistName: "A", Email: "b@x.com"})

		if _, err := repo.Merge(target.ID, []string{source.ID}, nil); !errors.Is(err, shared.ErrUnresolvedConflict) {
			t.Fatalf("expected ErrUnresolvedConflict, got %v", err)
		}

		// Nothing changed.
		if _, err := repo.Get(source.ID); err != nil {
			t.Errorf("expected source to survive blocked merge: %v", err)
		}
	})

	t.Run("Merge Repoints And Reports Affected Counts", func(t *testing.T) {
		db := setupTestDB(t)
		collaborators := NewCollaboratorRepository(db)
		tracks := NewTrackRepository(db)

		target := createCollaborator(t, collaborators, models.Collaborator{ArtistName: "Keeper"})
		source := createCollaborator(t, collaborators, models.Collaborator{
			ArtistName: "Keeper",
			Email:      "keeper@x.com",
			PROName:    "BMI",
		})

		songA := createTrack(t, tracks, models.Track{
			Title: "Song A",
			Collaborators: []models.TrackCollaborator{
				{CollaboratorID: source.ID, Role: "writer", SongwritingSplit: 100},
			},
		})
		createTrack(t, tracks, models.Track{Title: "Song B", PrimaryArtistID: source.ID})

		result, err := collaborators.Merge(target.ID, []string{source.ID}, nil)
		if err != nil {
			t.Fatalf("failed to merge: %v", err)
		}

		if !result.Success {
			t.Error("expected success")
		}
		if result.AffectedSongs != 2 {
			t.Errorf("expected 2 affected songs, got %d", result.AffectedSongs)
		}
		if result.AffectedSessions != 0 {
			t.Errorf("expected 0 affected sessions, got %d", result.AffectedSessions)
		}

		if result.Collaborator.Email != "keeper@x.com" {
			t.Errorf("expected empty target field filled from source, got %q", result.Collaborator.Email)
		}
		if result.Collaborator.PROName != "BMI" {
			t.Errorf("expected PRO carried over, got %q", result.Collaborator.PROName)
		}

		got, err := tracks.Get(songA.ID)
		if err != nil {
			t.Fatalf("failed to reload track: %v", err)
		}
		if len(got.Collaborators) != 1 || got.Collaborators[0].CollaboratorID != target.ID {
			t.Errorf("expected split row repointed to target, got %+v", got.Collaborators)
		}

		if _, err := collaborators.Get(source.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected source deleted, got %v", err)
		}
	})

	t.Run("Resolved Conflicts Applied To Target", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "V1", Email: "v1@x.com"})
		source := createCollaborator(t, repo, models.Collaborator{ArtistName: "V2", Email: "v2@x.com"})

		result, err := repo.Merge(target.ID, []string{source.ID}, map[string]string{
			"artist_name": "V2",
			"email":       "v1@x.com",
		})
		if err != nil {
			t.Fatalf("failed to merge: %v", err)
		}

		if result.Collaborator.ArtistName != "V2" {
			t.Errorf("expected resolved artist name V2, got %q", result.Collaborator.ArtistName)
		}
		if result.Collaborator.Email != "v1@x.com" {
			t.Errorf("expected resolved email, got %q", result.Collaborator.Email)
		}
	})

	t.Run("Merge Unions Relations", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCollaboratorRepository(db)

		manager := createCollaborator(t, repo, models.Collaborator{LegalName: "Mgr"})
		target := createCollaborator(t, repo, models.Collaborator{ArtistName: "T"})
		source := createCollaborator(t, repo, models.Collaborator{ArtistName: "T"})

		if err := repo.SetRelations(source.ID, map[string][]string{models.RelationManager: {manager.ID}}); err != nil {
			t.Fatalf("failed to set relations: %v", err)
		}

		result, err := repo.Merge(target.ID, []string{source.ID}, nil)
		if err != nil {
			t.Fatalf("failed to merge: %v", err)
		}

		got, err := repo.Get(result.Collaborator.ID)
		if err != nil {
			t.Fatalf("failed to reload target: %v", err)
		}
		if len(got.Relations[models.RelationManager]) != 1 {
			t.Errorf("expected manager relation carried to target, got %+v", got.Relations)
		}
	})
}
