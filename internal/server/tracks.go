package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"github.com/tunesmith-hq/tunesmith/internal/splits"
)

// handleListTracks lists tracks with search/status/album filters and
// limit/offset pagination.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	limit, offset := pageParams(r)

	criteria := map[string]any{
		"organization_id": identity.OrganizationID,
		"limit":           limit,
		"offset":          offset,
	}
	for _, key := range []string{"search", "status", "album_id"} {
		if v := r.URL.Query().Get(key); v != "" {
			criteria[key] = v
		}
	}

	tracks, err := s.tracks.List(criteria)
	if err != nil {
		respondFromError(w, err)
		return
	}

	total, err := s.tracks.Count(criteria)
	if err != nil {
		respondFromError(w, err)
		return
	}

	respondList(w, tracks, ListMeta{Limit: limit, Offset: offset, Total: total})
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.ownedTrack(r)
	if err != nil {
		respondFromError(w, err)
		return
	}
	respondData(w, http.StatusOK, track)
}

func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var track models.Track
	if err := decodeBody(r, &track); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	track.OrganizationID = identity.OrganizationID

	if err := s.tracks.Create(&track); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, track.ID, &track)
	respondData(w, http.StatusCreated, &track)
}

func (s *Server) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedTrack(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var track models.Track
	if err := decodeBody(r, &track); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	track.ID = existing.ID
	track.OrganizationID = existing.OrganizationID

	if err := s.tracks.Update(&track); err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, track.ID, &track)
	respondData(w, http.StatusOK, &track)
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedTrack(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	counts, err := s.tracks.DeleteCascade(existing.ID)
	if err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, existing.ID, nil)
	respondData(w, http.StatusOK, map[string]any{"id": existing.ID, "cascade": counts})
}

type splitsRequest struct {
	Collaborators []splits.Row `json:"collaborators"`
}

// handleSetTrackSplits replaces a track's split rows.
//
// The save gate rejects rows with no collaborator or duplicate collaborators;
// category totals not summing to 100 are reported back but never block the
// save.
func (s *Server) handleSetTrackSplits(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedTrack(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var req splitsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	sheet := &splits.Sheet{TrackID: existing.ID, Rows: req.Collaborators}
	if err := sheet.Validate(); err != nil {
		respondFromError(w, err)
		return
	}

	if err := s.tracks.SetCollaborators(existing.ID, sheet.SplitRows()); err != nil {
		respondFromError(w, err)
		return
	}

	track, err := s.tracks.Get(existing.ID)
	if err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventAssistantMessageUpdated, track.ID, track)
	respondData(w, http.StatusOK, map[string]any{
		"track":  track,
		"totals": sheet.Totals(),
	})
}

type linksRequest struct {
	Links []models.ExternalLink `json:"links"`
}

func (s *Server) handleSetTrackLinks(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	existing, err := s.ownedTrack(r)
	if err != nil {
		respondFromError(w, err)
		return
	}

	var req linksRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	if err := s.tracks.SetLinks(existing.ID, req.Links); err != nil {
		respondFromError(w, err)
		return
	}

	track, err := s.tracks.Get(existing.ID)
	if err != nil {
		respondFromError(w, err)
		return
	}

	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, track.ID, track)
	respondData(w, http.StatusOK, track)
}

func (s *Server) ownedTrack(r *http.Request) (*models.Track, error) {
	identity, _ := IdentityFrom(r.Context())

	track, err := s.tracks.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if track.OrganizationID != identity.OrganizationID {
		return nil, shared.ErrNotFound
	}
	return track, nil
}
