package models

import "fmt"

// Track statuses. Free-form strings elsewhere in the product, but creates and
// updates are validated against this set.
const (
	StatusDraft    = "draft"
	StatusRelease  = "release"
	StatusReleased = "released"
)

// TrackStatuses lists valid track status values.
var TrackStatuses = []string{StatusDraft, StatusRelease, StatusReleased}

// Track is a song owned by an organization.
//
// A track optionally belongs to an album, has exactly one primary artist, and
// carries split rows assigning songwriting/publishing/master percentages to
// collaborators. SpotifyTrackID dedups catalog imports per organization.
type Track struct {
	ID              string `json:"id"`
	Sequence        int    `json:"-"`
	OrganizationID  string `json:"organization_id"`
	AlbumID         string `json:"album_id,omitempty"`
	PrimaryArtistID string `json:"primary_artist_id,omitempty"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	ISRC            string `json:"isrc,omitempty"`
	SpotifyTrackID  string `json:"spotify_track_id,omitempty"`
	Timestamps

	Collaborators []TrackCollaborator `json:"collaborators,omitempty"`
	Links         []ExternalLink      `json:"external_links,omitempty"`
}

// TrackCollaborator is a split row: one collaborator's role and percentage
// ownership of a track across the three rights categories.
type TrackCollaborator struct {
	TrackID          string  `json:"track_id,omitempty"`
	CollaboratorID   string  `json:"id"`
	CollaboratorName string  `json:"name,omitempty"`
	Role             string  `json:"role"`
	SongwritingSplit float64 `json:"songwriting_split"`
	PublishingSplit  float64 `json:"publishing_split"`
	MasterSplit      float64 `json:"master_split"`
}

// Validate checks required fields and the status enum.
func (t *Track) Validate() error {
	if t.OrganizationID == "" {
		return fmt.Errorf("track organization_id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.Status != "" && !validStatus(t.Status) {
		return fmt.Errorf("invalid track status: %s", t.Status)
	}
	return nil
}

func validStatus(s string) bool {
	for _, valid := range TrackStatuses {
		if s == valid {
			return true
		}
	}
	return false
}
