// Package models defines domain entities and persistence interfaces for the
// Tunesmith rights management service.
//
// Persisted entities:
//   - [Collaborator] : people and entities attached to songs, externally keyed
//     to platform accounts and Spotify artists
//   - [Track] : songs with status, ISRC, split rows, and external links
//   - [Album] : releases with UPC/EAN and Spotify dedup keys
//   - [Session] : scheduled recording events linking tracks and collaborators
//
// Supporting types:
//   - [TrackCollaborator] : a royalty split row (songwriting/publishing/master)
//   - [ExternalLink] : typed URLs grouped into display sections
//
// All entities implement [Entity]; the [Repository] interface defines the
// standard CRUD operations implemented in internal/repositories. Invariants
// that span rows (external-id uniqueness, split reconciliation) live in the
// repositories and internal/splits, not here.
package models
