package server

import (
	"net/http"

	"github.com/tunesmith-hq/tunesmith/internal/importer"
	"github.com/tunesmith-hq/tunesmith/internal/realtime"
)

// handleImport runs a Spotify import synchronously and returns its summary.
//
// The organization always comes from the token, never the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var req importer.ImportRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	req.OrganizationID = identity.OrganizationID

	summary, err := s.importEngine.Run(r.Context(), req, nil)
	if err != nil {
		s.logger.Error("import failed", "type", req.Type, "spotify_id", req.SpotifyID, "error", err)
		respondFromError(w, err)
		return
	}

	s.logger.Info("import complete",
		"type", summary.Type, "imported", summary.Imported, "total", summary.Total)
	s.publish(identity.OrganizationID, realtime.EventThreadUpdated, req.SpotifyID, summary)

	respondData(w, http.StatusOK, summary)
}
