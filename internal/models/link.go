package models

import (
	"fmt"
	"net/url"
)

// Link sections used to group external links in the product UI.
const (
	SectionStreaming = "streaming"
	SectionVersions  = "versions"
	SectionOther     = "other"
)

// linkSections maps link types to their display section. Unknown types fall
// into the "other" section.
var linkSections = map[string]string{
	"spotify":      SectionStreaming,
	"apple_music":  SectionStreaming,
	"youtube":      SectionStreaming,
	"soundcloud":   SectionStreaming,
	"tidal":        SectionStreaming,
	"remix":        SectionVersions,
	"acoustic":     SectionVersions,
	"instrumental": SectionVersions,
	"live":         SectionVersions,
	"demo":         SectionVersions,
}

// ExternalLink is a typed URL attached to a track.
type ExternalLink struct {
	ID      string `json:"id"`
	TrackID string `json:"track_id,omitempty"`
	Type    string `json:"type"`
	URL     string `json:"url"`
}

// Section returns the display section for the link's type.
func (l ExternalLink) Section() string {
	if section, ok := linkSections[l.Type]; ok {
		return section
	}
	return SectionOther
}

// Validate checks the link has a type and a parseable absolute URL.
func (l ExternalLink) Validate() error {
	if l.Type == "" {
		return fmt.Errorf("link type is required")
	}
	parsed, err := url.Parse(l.URL)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("invalid link url: %s", l.URL)
	}
	return nil
}
