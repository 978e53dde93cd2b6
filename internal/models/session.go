package models

import (
	"fmt"
	"time"
)

// Session is a scheduled recording or collaboration event with linked tracks
// and collaborators.
type Session struct {
	ID             string    `json:"id"`
	Sequence       int       `json:"-"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Location       string    `json:"location,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Timestamps

	TrackIDs        []string `json:"track_ids,omitempty"`
	CollaboratorIDs []string `json:"collaborator_ids,omitempty"`
}

// Upcoming reports whether the session starts at or after now.
// The upcoming/past distinction is purely a comparison against wall clock.
func (s *Session) Upcoming(now time.Time) bool {
	return !s.StartTime.Before(now)
}

// Validate checks required fields and time ordering.
func (s *Session) Validate() error {
	if s.OrganizationID == "" {
		return fmt.Errorf("session organization_id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("session title is required")
	}
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return fmt.Errorf("session start and end times are required")
	}
	if s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("session end time precedes start time")
	}
	return nil
}
