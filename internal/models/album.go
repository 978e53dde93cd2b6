package models

import "fmt"

// Album is a release owned by an organization.
//
// SpotifyAlbumID dedups catalog imports per organization; UPC/EAN are the
// product identifiers carried through to distributors.
type Album struct {
	ID             string `json:"id"`
	Sequence       int    `json:"-"`
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	ReleaseDate    string `json:"release_date,omitempty"`
	UPC            string `json:"upc,omitempty"`
	EAN            string `json:"ean,omitempty"`
	SpotifyAlbumID string `json:"spotify_album_id,omitempty"`
	Timestamps
}

// Validate checks required fields.
func (a *Album) Validate() error {
	if a.OrganizationID == "" {
		return fmt.Errorf("album organization_id is required")
	}
	if a.Title == "" {
		return fmt.Errorf("album title is required")
	}
	return nil
}
