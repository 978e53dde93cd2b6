// package splits implements the royalty splits editor model.
//
// A Sheet is the editable in-memory form of a track's split rows. Percentage
// fields are strings so the editor can hold partial input ("33.", "") without
// losing it; totals parse empty cells as zero. Totals reaching exactly 100%
// per category is advisory only: the save gate blocks structural problems
// (missing or duplicate collaborators), never imbalanced percentages.
package splits

import (
	"fmt"
	"strconv"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
)

// Split categories.
const (
	CategorySongwriting = "songwriting"
	CategoryPublishing  = "publishing"
	CategoryMaster      = "master"
)

// Categories lists the three rights categories in display order.
var Categories = []string{CategorySongwriting, CategoryPublishing, CategoryMaster}

// Balance states for a category total.
const (
	BalanceExact = "exact"
	BalanceUnder = "under"
	BalanceOver  = "over"
)

// Row is one editable split line. Percentages are kept as raw strings until
// save so in-progress edits round-trip unchanged.
type Row struct {
	CollaboratorID   string `json:"id"`
	CollaboratorName string `json:"name,omitempty"`
	Role             string `json:"role"`
	Songwriting      string `json:"songwriting_split"`
	Publishing       string `json:"publishing_split"`
	Master           string `json:"master_split"`
}

// Total is the running sum for one category.
type Total struct {
	Category string  `json:"category"`
	Sum      float64 `json:"sum"`
	Balance  string  `json:"balance"`
}

// Sheet is the editor state for one track's splits.
type Sheet struct {
	TrackID string `json:"track_id"`
	Rows    []Row  `json:"rows"`
}

// NewSheet builds an editable sheet from a track's stored split rows.
func NewSheet(track *models.Track) *Sheet {
	sheet := &Sheet{TrackID: track.ID}
	for _, row := range track.Collaborators {
		sheet.Rows = append(sheet.Rows, Row{
			CollaboratorID:   row.CollaboratorID,
			CollaboratorName: row.CollaboratorName,
			Role:             row.Role,
			Songwriting:      formatPercent(row.SongwritingSplit),
			Publishing:       formatPercent(row.PublishingSplit),
			Master:           formatPercent(row.MasterSplit),
		})
	}
	return sheet
}

// AddRow appends an empty row for the given collaborator.
func (s *Sheet) AddRow(collaboratorID, name, role string) {
	s.Rows = append(s.Rows, Row{
		CollaboratorID:   collaboratorID,
		CollaboratorName: name,
		Role:             role,
	})
}

// RemoveRow deletes the row at index, preserving order. Out-of-range indexes
// are ignored.
func (s *Sheet) RemoveRow(index int) {
	if index < 0 || index >= len(s.Rows) {
		return
	}
	s.Rows = append(s.Rows[:index], s.Rows[index+1:]...)
}

// UpdateField sets one percentage cell by row index and category. The raw
// string is stored as typed; parsing happens only in totals and on save.
func (s *Sheet) UpdateField(index int, category, value string) error {
	if index < 0 || index >= len(s.Rows) {
		return fmt.Errorf("%w: row %d", shared.ErrInvalidArgument, index)
	}

	switch category {
	case CategorySongwriting:
		s.Rows[index].Songwriting = value
	case CategoryPublishing:
		s.Rows[index].Publishing = value
	case CategoryMaster:
		s.Rows[index].Master = value
	default:
		return fmt.Errorf("%w: split category %q", shared.ErrInvalidArgument, category)
	}
	return nil
}

// Totals computes the running sum for every category. Cells that do not parse
// as numbers count as zero, matching how the editor displays partial input.
func (s *Sheet) Totals() []Total {
	totals := make([]Total, 0, len(Categories))
	for _, category := range Categories {
		var sum float64
		for _, row := range s.Rows {
			sum += parsePercent(row.cell(category))
		}
		totals = append(totals, Total{
			Category: category,
			Sum:      sum,
			Balance:  balance(sum),
		})
	}
	return totals
}

// Validate is the save gate. It rejects rows with no collaborator selected
// and duplicate collaborator rows. Category totals are not checked here;
// imbalance is reported through [Sheet.Totals] and never blocks saving.
func (s *Sheet) Validate() error {
	seen := map[string]bool{}
	for i, row := range s.Rows {
		if row.CollaboratorID == "" {
			return fmt.Errorf("%w: row %d has no collaborator", shared.ErrInvalidInput, i+1)
		}
		if seen[row.CollaboratorID] {
			return fmt.Errorf("%w: duplicate collaborator %s", shared.ErrInvalidInput, row.CollaboratorID)
		}
		seen[row.CollaboratorID] = true
	}
	return nil
}

// SplitRows converts the sheet into storable split rows. Validate must have
// passed; unparseable cells persist as zero.
func (s *Sheet) SplitRows() []models.TrackCollaborator {
	rows := make([]models.TrackCollaborator, 0, len(s.Rows))
	for _, row := range s.Rows {
		rows = append(rows, models.TrackCollaborator{
			TrackID:          s.TrackID,
			CollaboratorID:   row.CollaboratorID,
			Role:             row.Role,
			SongwritingSplit: parsePercent(row.Songwriting),
			PublishingSplit:  parsePercent(row.Publishing),
			MasterSplit:      parsePercent(row.Master),
		})
	}
	return rows
}

func (r *Row) cell(category string) string {
	switch category {
	case CategorySongwriting:
		return r.Songwriting
	case CategoryPublishing:
		return r.Publishing
	case CategoryMaster:
		return r.Master
	}
	return ""
}

func parsePercent(v string) float64 {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatTotal renders a category total without trailing zeros, for display.
func FormatTotal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPercent(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func balance(sum float64) string {
	// Float accumulation tolerance of a hundredth of a percent.
	const epsilon = 0.01
	switch {
	case sum > 100+epsilon:
		return BalanceOver
	case sum < 100-epsilon:
		return BalanceUnder
	default:
		return BalanceExact
	}
}
