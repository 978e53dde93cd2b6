// package reminders derives dashboard tasks from catalog state.
//
// Reminders are computed on every read and never stored: fixing the
// underlying data resolves the reminder on the next fetch.
package reminders

import (
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/splits"
)

// Reminder types.
const (
	MissingInfo             = "missing_info"
	MissingCollaboratorInfo = "missing_collaborator_info"
	MissingSplits           = "missing_splits"
	ConfirmSplits           = "confirm_splits"
)

// Reminder is one derived task tied to a track.
type Reminder struct {
	Type       string `json:"type"`
	TrackID    string `json:"track_id"`
	TrackTitle string `json:"track_title"`
	Detail     string `json:"detail,omitempty"`
}

// Engine computes reminders for an organization's catalog.
type Engine struct {
	tracks        *repositories.TrackRepository
	collaborators *repositories.CollaboratorRepository
}

// NewEngine creates a reminder engine over the catalog repositories.
func NewEngine(tracks *repositories.TrackRepository, collaborators *repositories.CollaboratorRepository) *Engine {
	return &Engine{tracks: tracks, collaborators: collaborators}
}

// ForOrganization scans every track in the organization and derives its
// reminders, in stable track order.
func (e *Engine) ForOrganization(organizationID string) ([]Reminder, error) {
	list, err := e.tracks.List(map[string]any{"organization_id": organizationID})
	if err != nil {
		return nil, err
	}

	reminders := []Reminder{}
	for _, summary := range list {
		// List rows omit split rows; the full record is needed per track.
		track, err := e.tracks.Get(summary.ID)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, e.forTrack(track)...)
	}

	return reminders, nil
}

func (e *Engine) forTrack(track *models.Track) []Reminder {
	var out []Reminder

	if detail := missingInfoDetail(track); detail != "" {
		out = append(out, Reminder{
			Type:       MissingInfo,
			TrackID:    track.ID,
			TrackTitle: track.Title,
			Detail:     detail,
		})
	}

	if detail := e.missingCollaboratorDetail(track); detail != "" {
		out = append(out, Reminder{
			Type:       MissingCollaboratorInfo,
			TrackID:    track.ID,
			TrackTitle: track.Title,
			Detail:     detail,
		})
	}

	if len(track.Collaborators) == 0 {
		out = append(out, Reminder{
			Type:       MissingSplits,
			TrackID:    track.ID,
			TrackTitle: track.Title,
		})
		return out
	}

	if detail := unbalancedDetail(track); detail != "" {
		out = append(out, Reminder{
			Type:       ConfirmSplits,
			TrackID:    track.ID,
			TrackTitle: track.Title,
			Detail:     detail,
		})
	}

	return out
}

func missingInfoDetail(track *models.Track) string {
	switch {
	case track.ISRC == "":
		return "missing ISRC"
	case track.Status == "":
		return "missing status"
	case track.AlbumID == "":
		return "not assigned to an album"
	}
	return ""
}

// missingCollaboratorDetail reports the first linked collaborator lacking
// contact or PRO details.
func (e *Engine) missingCollaboratorDetail(track *models.Track) string {
	for _, row := range track.Collaborators {
		collaborator, err := e.collaborators.Get(row.CollaboratorID)
		if err != nil {
			continue
		}
		if collaborator.Email == "" {
			return collaborator.DisplayName() + " has no email"
		}
		if collaborator.PROName == "" || collaborator.PROIPINumber == "" {
			return collaborator.DisplayName() + " has no PRO details"
		}
	}
	return ""
}

// unbalancedDetail reports the first split category whose total is not 100.
func unbalancedDetail(track *models.Track) string {
	sheet := splits.NewSheet(track)
	for _, total := range sheet.Totals() {
		if total.Balance != splits.BalanceExact {
			return total.Category + " splits total " + splits.FormatTotal(total.Sum) + "%"
		}
	}
	return ""
}
