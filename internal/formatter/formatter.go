// package formatter renders catalog exports and parses onboarding sheets.
//
// Exports flatten tracks with their split rows into CSV or JSON. The
// onboarding parser is the reverse direction: a spreadsheet of titles,
// artists, and identifiers becomes track create payloads.
package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// exportHeader is the column layout of the CSV export. One row per split; a
// track with no splits still exports one row with the split columns empty.
var exportHeader = []string{
	"track_id", "title", "status", "isrc", "album", "primary_artist",
	"collaborator", "role", "songwriting_split", "publishing_split", "master_split",
}

// ExportRow is one flattened line of the catalog export.
type ExportRow struct {
	TrackID          string `json:"track_id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	ISRC             string `json:"isrc,omitempty"`
	Album            string `json:"album,omitempty"`
	PrimaryArtist    string `json:"primary_artist,omitempty"`
	Collaborator     string `json:"collaborator,omitempty"`
	Role             string `json:"role,omitempty"`
	SongwritingSplit string `json:"songwriting_split,omitempty"`
	PublishingSplit  string `json:"publishing_split,omitempty"`
	MasterSplit      string `json:"master_split,omitempty"`
}

// Names resolves referenced entity ids to display names for the export.
type Names struct {
	Albums        map[string]string
	Collaborators map[string]string
}

// Flatten expands tracks into export rows, one per split row.
func Flatten(tracks []*models.Track, names Names) []ExportRow {
	var rows []ExportRow
	for _, track := range tracks {
		base := ExportRow{
			TrackID:       track.ID,
			Title:         track.Title,
			Status:        track.Status,
			ISRC:          track.ISRC,
			Album:         names.Albums[track.AlbumID],
			PrimaryArtist: names.Collaborators[track.PrimaryArtistID],
		}

		if len(track.Collaborators) == 0 {
			rows = append(rows, base)
			continue
		}

		for _, split := range track.Collaborators {
			row := base
			row.Collaborator = split.CollaboratorName
			if row.Collaborator == "" {
				row.Collaborator = names.Collaborators[split.CollaboratorID]
			}
			row.Role = split.Role
			row.SongwritingSplit = formatSplit(split.SongwritingSplit)
			row.PublishingSplit = formatSplit(split.PublishingSplit)
			row.MasterSplit = formatSplit(split.MasterSplit)
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes the flattened export as CSV.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.TrackID, row.Title, row.Status, row.ISRC, row.Album, row.PrimaryArtist,
			row.Collaborator, row.Role, row.SongwritingSplit, row.PublishingSplit, row.MasterSplit,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the flattened export as indented JSON.
func WriteJSON(w io.Writer, rows []ExportRow) error {
	data, err := shared.MarshalJSON(rows, true)
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// OnboardingRow is one parsed line of an onboarding sheet.
type OnboardingRow struct {
	Title      string
	ArtistName string
	AlbumTitle string
	ISRC       string
	Status     string
}

// onboardingColumns maps accepted header names onto row fields. Matching is
// case-insensitive and tolerant of surrounding whitespace.
var onboardingColumns = map[string]func(*OnboardingRow, string){
	"title":  func(r *OnboardingRow, v string) { r.Title = v },
	"track":  func(r *OnboardingRow, v string) { r.Title = v },
	"artist": func(r *OnboardingRow, v string) { r.ArtistName = v },
	"album":  func(r *OnboardingRow, v string) { r.AlbumTitle = v },
	"isrc":   func(r *OnboardingRow, v string) { r.ISRC = v },
	"status": func(r *OnboardingRow, v string) { r.Status = v },
}

// ParseOnboarding reads a CSV onboarding sheet into rows.
//
// The first record is the header; unknown columns are ignored, and a sheet
// without a title column is rejected. Rows with an empty title are skipped.
func ParseOnboarding(r io.Reader) ([]OnboardingRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", shared.ErrInvalidInput, err)
	}

	setters := make([]func(*OnboardingRow, string), len(header))
	hasTitle := false
	for i, column := range header {
		name := strings.ToLower(strings.TrimSpace(column))
		setters[i] = onboardingColumns[name]
		if name == "title" || name == "track" {
			hasTitle = true
		}
	}
	if !hasTitle {
		return nil, fmt.Errorf("%w: onboarding sheet has no title column", shared.ErrInvalidInput)
	}

	var rows []OnboardingRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, line, err)
		}

		var row OnboardingRow
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(value))
			}
		}
		if row.Title == "" {
			continue
		}
		if row.Status != "" && !validOnboardingStatus(row.Status) {
			return nil, fmt.Errorf("%w: line %d: invalid status %q", shared.ErrInvalidInput, line, row.Status)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func validOnboardingStatus(s string) bool {
	for _, valid := range models.TrackStatuses {
		if strings.EqualFold(s, valid) {
			return true
		}
	}
	return false
}

func formatSplit(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
