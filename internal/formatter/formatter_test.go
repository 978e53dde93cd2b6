package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

func exportFixture() ([]*models.Track, Names) {
	tracks := []*models.Track{
		{
			ID:              "trk_1",
			Title:           "Two Writers",
			Status:          models.StatusReleased,
			ISRC:            "USX0000001",
			AlbumID:         "alb_1",
			PrimaryArtistID: "col_1",
			Collaborators: []models.TrackCollaborator{
				{CollaboratorID: "col_1", CollaboratorName: "Ana", Role: "writer", SongwritingSplit: 60, PublishingSplit: 50, MasterSplit: 100},
				{CollaboratorID: "col_2", Role: "producer", SongwritingSplit: 40, PublishingSplit: 50},
			},
		},
		{ID: "trk_2", Title: "Bare", Status: models.StatusDraft},
	}
	names := Names{
		Albums:        map[string]string{"alb_1": "First LP"},
		Collaborators: map[string]string{"col_1": "Ana", "col_2": "Bo"},
	}
	return tracks, names
}

func TestFlatten(t *testing.T) {
	tracks, names := exportFixture()
	rows := Flatten(tracks, names)

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (2 splits + 1 bare), got %d", len(rows))
	}

	t.Run("Split Rows Carry Resolved Names", func(t *testing.T) {
		if rows[0].Collaborator != "Ana" || rows[0].Album != "First LP" || rows[0].PrimaryArtist != "Ana" {
			t.Errorf("unexpected first row: %+v", rows[0])
		}
		if rows[1].Collaborator != "Bo" {
			t.Errorf("expected name resolved from id map, got %q", rows[1].Collaborator)
		}
		if rows[0].SongwritingSplit != "60" || rows[1].MasterSplit != "" {
			t.Errorf("unexpected split formatting: %+v %+v", rows[0], rows[1])
		}
	})

	t.Run("Track Without Splits Exports One Bare Row", func(t *testing.T) {
		bare := rows[2]
		if bare.TrackID != "trk_2" || bare.Collaborator != "" || bare.Role != "" {
			t.Errorf("unexpected bare row: %+v", bare)
		}
	})
}

func TestWriteCSV(t *testing.T) {
	tracks, names := exportFixture()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Flatten(tracks, names)); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "track_id" || len(records[0]) != 11 {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][1] != "Two Writers" || records[1][8] != "60" {
		t.Errorf("unexpected data row: %v", records[1])
	}
}

func TestWriteJSON(t *testing.T) {
	tracks, names := exportFixture()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Flatten(tracks, names)); err != nil {
		t.Fatalf("failed to write json: %v", err)
	}

	var rows []ExportRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if len(rows) != 3 || rows[0].Title != "Two Writers" {
		t.Errorf("unexpected decoded rows: %+v", rows)
	}
}

func TestParseOnboarding(t *testing.T) {
	t.Run("Header Variants", func(t *testing.T) {
		sheet := "Track, Artist ,ALBUM,isrc,Status\nSong One,Ana,First LP,USX0000001,released\n"
		rows, err := ParseOnboarding(strings.NewReader(sheet))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		row := rows[0]
		if row.Title != "Song One" || row.ArtistName != "Ana" || row.AlbumTitle != "First LP" || row.Status != "released" {
			t.Errorf("unexpected row: %+v", row)
		}
	})

	t.Run("Unknown Columns Ignored", func(t *testing.T) {
		sheet := "title,notes,artist\nSong,ignore me,Ana\n"
		rows, err := ParseOnboarding(strings.NewReader(sheet))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if rows[0].ArtistName != "Ana" {
			t.Errorf("expected known columns still applied, got %+v", rows[0])
		}
	})

	t.Run("Missing Title Column Rejected", func(t *testing.T) {
		_, err := ParseOnboarding(strings.NewReader("artist,album\nAna,LP\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Empty Title Rows Skipped", func(t *testing.T) {
		sheet := "title,artist\nKept,Ana\n,Bo\n"
		rows, err := ParseOnboarding(strings.NewReader(sheet))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if len(rows) != 1 || rows[0].Title != "Kept" {
			t.Errorf("expected only the titled row, got %+v", rows)
		}
	})

	t.Run("Invalid Status Names The Line", func(t *testing.T) {
		sheet := "title,status\nSong,draft\nBad,mixtape\n"
		_, err := ParseOnboarding(strings.NewReader(sheet))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if !strings.Contains(err.Error(), "line 3") {
			t.Errorf("expected line number in error, got %v", err)
		}
	})
}
