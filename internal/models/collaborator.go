package models

import (
	"fmt"
	"regexp"
)

// Relation types linking collaborators to each other.
const (
	RelationManager   = "manager"
	RelationMember    = "member"
	RelationPublisher = "publisher"
)

// ipiPattern matches CISAC IPI name numbers (9-11 digits).
var ipiPattern = regexp.MustCompile(`^\d{9,11}$`)

// Collaborator is a person or entity (artist, manager, publisher) associated
// with songs or an organization.
//
// Identity is externally keyed: ClerkUserID ties a collaborator to a platform
// account, SpotifyArtistID ties it to the Spotify catalog for import dedup.
type Collaborator struct {
	ID              string `json:"id"`
	Sequence        int    `json:"-"`
	OrganizationID  string `json:"organization_id"`
	LegalName       string `json:"legal_name"`
	ArtistName      string `json:"artist_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PROName         string `json:"pro_name"`
	PROIPINumber    string `json:"pro_ipi_number"`
	ClerkUserID     string `json:"clerk_user_id,omitempty"`
	SpotifyArtistID string `json:"spotify_artist_id,omitempty"`
	Timestamps

	// Relations holds related collaborator ids grouped by relation type
	// (manager, member, publisher). Populated on reads that request it.
	Relations map[string][]string `json:"relations,omitempty"`
}

// DisplayName returns the artist name, falling back to the legal name.
func (c *Collaborator) DisplayName() string {
	if c.ArtistName != "" {
		return c.ArtistName
	}
	return c.LegalName
}

// Validate checks required fields and identifier formats.
func (c *Collaborator) Validate() error {
	if c.OrganizationID == "" {
		return fmt.Errorf("collaborator organization_id is required")
	}
	if c.LegalName == "" && c.ArtistName == "" {
		return fmt.Errorf("collaborator requires a legal or artist name")
	}
	if c.PROIPINumber != "" && !ipiPattern.MatchString(c.PROIPINumber) {
		return fmt.Errorf("invalid IPI number: %s", c.PROIPINumber)
	}
	return nil
}
